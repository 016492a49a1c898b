package models

import "time"

// HandoverState is derived from which lifecycle timestamps are populated,
// never stored. Keeping the write path to guarded updates on the timestamps
// means state and timestamps cannot diverge.
type HandoverState string

const (
	HandoverStateDraft      HandoverState = "draft"
	HandoverStateReady      HandoverState = "ready"
	HandoverStateInProgress HandoverState = "in_progress"
	HandoverStateCompleted  HandoverState = "completed"
	HandoverStateCancelled  HandoverState = "cancelled"
)

// Handover records the transfer of responsibility for one patient across one
// shift window. It is the aggregate root for a single patient transition:
// unique per (patient_id, shift_window_id).
type Handover struct {
	ID                 string     `json:"id" db:"id"`
	PatientID          string     `json:"patient_id" db:"patient_id"`
	ShiftWindowID      string     `json:"shift_window_id" db:"shift_window_id"`
	UnitID             string     `json:"unit_id" db:"unit_id"`
	PreviousHandoverID *string    `json:"previous_handover_id,omitempty" db:"previous_handover_id"`
	SenderUserID       *string    `json:"sender_user_id,omitempty" db:"sender_user_id"`
	ReceiverUserID     *string    `json:"receiver_user_id,omitempty" db:"receiver_user_id"`
	CreatedBy          string     `json:"created_by" db:"created_by"`
	Notes              *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	ReadyAt            *time.Time `json:"ready_at,omitempty" db:"ready_at"`
	ReadyBy            *string    `json:"ready_by,omitempty" db:"ready_by"`
	StartedAt          *time.Time `json:"started_at,omitempty" db:"started_at"`
	StartedBy          *string    `json:"started_by,omitempty" db:"started_by"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy        *string    `json:"completed_by,omitempty" db:"completed_by"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy        *string    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelReason       *string    `json:"cancel_reason,omitempty" db:"cancel_reason"`
}

// State derives the lifecycle state from the populated timestamps. Cancelled
// wins over everything, then Completed, then InProgress, then Ready.
func (h *Handover) State() HandoverState {
	switch {
	case h.CancelledAt != nil:
		return HandoverStateCancelled
	case h.CompletedAt != nil:
		return HandoverStateCompleted
	case h.StartedAt != nil:
		return HandoverStateInProgress
	case h.ReadyAt != nil:
		return HandoverStateReady
	default:
		return HandoverStateDraft
	}
}

// IsTerminal reports whether the handover can no longer transition.
func (h *Handover) IsTerminal() bool {
	state := h.State()
	return state == HandoverStateCompleted || state == HandoverStateCancelled
}

// CreateHandoverRequest creates (or idempotently returns) the handover for a
// patient's transition between two shift templates on the current day.
// SenderUserID is optional: when empty the sender is derived from coverage of
// the FROM instance (primary first, then earliest assigned).
type CreateHandoverRequest struct {
	PatientID           string  `json:"patient_id" validate:"required"`
	FromShiftTemplateID string  `json:"from_shift_template_id" validate:"required"`
	ToShiftTemplateID   string  `json:"to_shift_template_id" validate:"required"`
	ReceiverUserID      *string `json:"receiver_user_id,omitempty"`
	SenderUserID        *string `json:"sender_user_id,omitempty"`
	CreatedBy           string  `json:"created_by" validate:"required"`
	Notes               *string `json:"notes,omitempty"`
}

// HandoverDetail is the read model for a single handover: the row itself plus
// resolved display names, content sections, and child records.
type HandoverDetail struct {
	Handover
	State            HandoverState     `json:"state"`
	SenderName       string            `json:"sender_name,omitempty"`
	ReceiverName     string            `json:"receiver_name,omitempty"`
	PatientName      string            `json:"patient_name,omitempty"`
	Contents         *HandoverContents `json:"contents,omitempty"`
	ActionItems      []ActionItem      `json:"action_items,omitempty"`
	ContingencyPlans []ContingencyPlan `json:"contingency_plans,omitempty"`
	Messages         []Message         `json:"messages,omitempty"`
}

// HandoverListResponse is a page of handovers for one patient
type HandoverListResponse struct {
	Items      []Handover `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
