package shifttemplate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Repository reads the static shift template catalog. Templates are seeded by
// migration; there is no write path.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new shift template repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a shift template by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ShiftTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "shifttemplate.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "start_time", "end_time", "created_at")
	sb.From("shift_templates")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var template models.ShiftTemplate
	if err := r.db.GetContext(ctx, &template, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("shift template %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get shift template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get shift template")
	}

	return &template, nil
}

// List retrieves all shift templates ordered by start-of-day time
func (r *Repository) List(ctx context.Context) ([]models.ShiftTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "shifttemplate.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "start_time", "end_time", "created_at")
	sb.From("shift_templates")
	sb.OrderBy("start_time ASC")

	query, args := sb.Build()
	var templates []models.ShiftTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list shift templates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list shift templates")
	}

	return templates, nil
}
