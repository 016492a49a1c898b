package models

import "time"

// ActionItem is a task attached to a handover
type ActionItem struct {
	ID          string     `json:"id" db:"id"`
	HandoverID  string     `json:"handover_id" db:"handover_id"`
	Description string     `json:"description" db:"description"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ContingencyPlan is an "if X then Y" instruction attached to a handover
type ContingencyPlan struct {
	ID            string    `json:"id" db:"id"`
	HandoverID    string    `json:"handover_id" db:"handover_id"`
	ConditionText string    `json:"condition_text" db:"condition_text"`
	ActionText    string    `json:"action_text" db:"action_text"`
	CreatedBy     string    `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Message is a free-form discussion entry attached to a handover
type Message struct {
	ID         string    `json:"id" db:"id"`
	HandoverID string    `json:"handover_id" db:"handover_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Text       string    `json:"text" db:"text"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreateActionItemRequest adds a task to a handover
type CreateActionItemRequest struct {
	Description string `json:"description" validate:"required"`
	CreatedBy   string `json:"created_by" validate:"required"`
}

// CreateContingencyPlanRequest adds an "if X then Y" plan to a handover
type CreateContingencyPlanRequest struct {
	ConditionText string `json:"condition_text" validate:"required"`
	ActionText    string `json:"action_text" validate:"required"`
	CreatedBy     string `json:"created_by" validate:"required"`
}

// CreateMessageRequest adds a discussion message to a handover
type CreateMessageRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Text   string `json:"text" validate:"required"`
}
