package actionitem

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

// Repository persists action items attached to a handover
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new action item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create adds a task to a handover
func (r *Repository) Create(ctx context.Context, handoverID string, req models.CreateActionItemRequest) (*models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "actionitem.Repository.Create")
	defer span.End()

	item := &models.ActionItem{
		ID:          uuid.New().String(),
		HandoverID:  handoverID,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("action_items")
	sb.Cols("id", "handover_id", "description", "is_completed", "created_by", "created_at")
	sb.Values(item.ID, item.HandoverID, item.Description, item.IsCompleted, item.CreatedBy, item.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"handover_id": handoverID,
		}).Error("Failed to create action item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create action item")
	}

	return item, nil
}

// Complete marks a task done. Returns false when the item does not exist or
// was already completed.
func (r *Repository) Complete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "actionitem.Repository.Complete")
	defer span.End()

	query := `UPDATE action_items
		SET is_completed = true, completed_at = $1
		WHERE id = $2 AND NOT is_completed`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id": id,
		}).Error("Failed to complete action item")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete action item")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete action item")
	}

	return rows > 0, nil
}

// ListByHandover retrieves a handover's action items, oldest first
func (r *Repository) ListByHandover(ctx context.Context, handoverID string) ([]models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "actionitem.Repository.ListByHandover")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "handover_id", "description", "is_completed", "created_by", "created_at", "completed_at")
	sb.From("action_items")
	sb.Where(sb.Equal("handover_id", handoverID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var items []models.ActionItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list action items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list action items")
	}

	return items, nil
}
