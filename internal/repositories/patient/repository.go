package patient

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

// Repository reads patient master data. Patients are owned by the admissions
// system; sage never writes them.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new patient repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a patient by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	ctx, span := tracing.StartSpan(ctx, "patient.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "unit_id", "full_name", "mrn", "is_active", "created_at")
	sb.From("patients")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("patient %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get patient")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get patient")
	}

	return &patient, nil
}

// ListByUnit retrieves the active patients of a unit
func (r *Repository) ListByUnit(ctx context.Context, unitID string) ([]models.Patient, error) {
	ctx, span := tracing.StartSpan(ctx, "patient.Repository.ListByUnit")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "unit_id", "full_name", "mrn", "is_active", "created_at")
	sb.From("patients")
	sb.Where(
		sb.Equal("unit_id", unitID),
		sb.Equal("is_active", true),
	)
	sb.OrderBy("full_name ASC")

	query, args := sb.Build()
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list patients")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list patients")
	}

	return patients, nil
}
