// Package events handles event emission for handover lifecycle changes
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Emitter publishes workflow events after the owning transaction commits.
// Emission is fire-and-forget from the caller's perspective: a publish
// failure is logged and returned, but callers never roll back committed
// state over it.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitCoverageAssigned emits a coverage.assigned event
func (e *Emitter) EmitCoverageAssigned(ctx context.Context, cov *models.Coverage, unitID, shiftTemplateID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCoverageAssigned")
	defer span.End()

	event := &kafka.CoverageAssignedEvent{
		EventType:       kafka.EventTypeCoverageAssigned,
		CoverageID:      cov.ID,
		PatientID:       cov.PatientID,
		UnitID:          unitID,
		ShiftInstanceID: cov.ShiftInstanceID,
		ShiftTemplateID: shiftTemplateID,
		UserID:          cov.UserID,
		IsPrimary:       cov.IsPrimary,
		Timestamp:       time.Now().UTC(),
	}

	if err := e.producer.Publish(ctx, cov.PatientID, event.EventType, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit coverage.assigned event")
		return err
	}

	return nil
}

// EmitHandoverCompleted emits a handover.completed event
func (e *Emitter) EmitHandoverCompleted(ctx context.Context, h *models.Handover, toShiftTemplateID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitHandoverCompleted")
	defer span.End()

	event := &kafka.HandoverCompletedEvent{
		EventType:         kafka.EventTypeHandoverCompleted,
		HandoverID:        h.ID,
		PatientID:         h.PatientID,
		UnitID:            h.UnitID,
		ShiftWindowID:     h.ShiftWindowID,
		ToShiftTemplateID: toShiftTemplateID,
		Timestamp:         time.Now().UTC(),
	}
	if h.ReceiverUserID != nil {
		event.ReceiverUserID = *h.ReceiverUserID
	}
	if h.CompletedBy != nil {
		event.CompletedBy = *h.CompletedBy
	}

	if err := e.producer.Publish(ctx, h.PatientID, event.EventType, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit handover.completed event")
		return err
	}

	return nil
}
