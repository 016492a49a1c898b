package kafka

import (
	"encoding/json"
	"time"
)

// Event types carried in the event_type header of every message on the
// handover events topic.
const (
	EventTypeCoverageAssigned  = "coverage.assigned"
	EventTypeHandoverCompleted = "handover.completed"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// EventType returns the event_type header, empty when absent
func (m *IncomingMessage) EventType() string {
	return m.Headers["event_type"]
}

// CoverageAssignedEvent is emitted after a coverage row is committed. The
// chaining consumer uses primary assignments to open the next handover.
type CoverageAssignedEvent struct {
	EventType       string    `json:"event_type"`
	CoverageID      string    `json:"coverage_id"`
	PatientID       string    `json:"patient_id"`
	UnitID          string    `json:"unit_id"`
	ShiftInstanceID string    `json:"shift_instance_id"`
	ShiftTemplateID string    `json:"shift_template_id"`
	UserID          string    `json:"user_id"`
	IsPrimary       bool      `json:"is_primary"`
	Timestamp       time.Time `json:"timestamp"`
}

// HandoverCompletedEvent is emitted after a handover completes. The chaining
// consumer opens the follow-up handover with the receiver as sender.
type HandoverCompletedEvent struct {
	EventType         string    `json:"event_type"`
	HandoverID        string    `json:"handover_id"`
	PatientID         string    `json:"patient_id"`
	UnitID            string    `json:"unit_id"`
	ShiftWindowID     string    `json:"shift_window_id"`
	ToShiftTemplateID string    `json:"to_shift_template_id"`
	ReceiverUserID    string    `json:"receiver_user_id"`
	CompletedBy       string    `json:"completed_by"`
	Timestamp         time.Time `json:"timestamp"`
}

// ParseCoverageAssigned parses the message value as a coverage.assigned event
func (m *IncomingMessage) ParseCoverageAssigned() (*CoverageAssignedEvent, error) {
	var evt CoverageAssignedEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// ParseHandoverCompleted parses the message value as a handover.completed event
func (m *IncomingMessage) ParseHandoverCompleted() (*HandoverCompletedEvent, error) {
	var evt HandoverCompletedEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
