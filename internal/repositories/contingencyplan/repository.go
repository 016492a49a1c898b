package contingencyplan

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

// Repository persists contingency plans attached to a handover
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contingency plan repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create adds an "if X then Y" plan to a handover
func (r *Repository) Create(ctx context.Context, handoverID string, req models.CreateContingencyPlanRequest) (*models.ContingencyPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "contingencyplan.Repository.Create")
	defer span.End()

	plan := &models.ContingencyPlan{
		ID:            uuid.New().String(),
		HandoverID:    handoverID,
		ConditionText: req.ConditionText,
		ActionText:    req.ActionText,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contingency_plans")
	sb.Cols("id", "handover_id", "condition_text", "action_text", "created_by", "created_at")
	sb.Values(plan.ID, plan.HandoverID, plan.ConditionText, plan.ActionText, plan.CreatedBy, plan.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"handover_id": handoverID,
		}).Error("Failed to create contingency plan")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contingency plan")
	}

	return plan, nil
}

// ListByHandover retrieves a handover's contingency plans, oldest first
func (r *Repository) ListByHandover(ctx context.Context, handoverID string) ([]models.ContingencyPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "contingencyplan.Repository.ListByHandover")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "handover_id", "condition_text", "action_text", "created_by", "created_at")
	sb.From("contingency_plans")
	sb.Where(sb.Equal("handover_id", handoverID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var plans []models.ContingencyPlan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list contingency plans")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contingency plans")
	}

	return plans, nil
}
