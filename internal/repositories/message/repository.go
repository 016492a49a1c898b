package message

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Repository persists discussion messages attached to a handover
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new message repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create adds a message to a handover's discussion
func (r *Repository) Create(ctx context.Context, handoverID string, req models.CreateMessageRequest) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.Create")
	defer span.End()

	msg := &models.Message{
		ID:         uuid.New().String(),
		HandoverID: handoverID,
		UserID:     req.UserID,
		Text:       req.Text,
		CreatedAt:  time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("handover_messages")
	sb.Cols("id", "handover_id", "user_id", "text", "created_at")
	sb.Values(msg.ID, msg.HandoverID, msg.UserID, msg.Text, msg.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"handover_id": handoverID,
		}).Error("Failed to create message")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create message")
	}

	return msg, nil
}

// ListByHandover retrieves a handover's messages in chronological order
func (r *Repository) ListByHandover(ctx context.Context, handoverID string) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.ListByHandover")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "handover_id", "user_id", "text", "created_at")
	sb.From("handover_messages")
	sb.Where(sb.Equal("handover_id", handoverID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list messages")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	return messages, nil
}
