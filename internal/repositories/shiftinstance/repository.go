package shiftinstance

import (
	"context"
	"fmt"
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

// Repository handles shift instance persistence. Instances are created on
// first reference and immutable afterwards.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new shift instance repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate returns the instance for (unit, template, startAt), creating it
// when absent. Concurrent first-use is safe: a unique violation on insert
// means another caller won the race, so the loser re-reads and returns the
// winner's row.
func (r *Repository) GetOrCreate(ctx context.Context, templateID, unitID string, startAt, endAt time.Time) (*models.ShiftInstance, error) {
	ctx, span := tracing.StartSpan(ctx, "shiftinstance.Repository.GetOrCreate")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":      "GetOrCreate",
		"template_id": templateID,
		"unit_id":     unitID,
		"start_at":    startAt,
	})

	if existing, err := r.find(ctx, templateID, unitID, startAt); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	instance := &models.ShiftInstance{
		ID:         uuid.New().String(),
		TemplateID: templateID,
		UnitID:     unitID,
		StartAt:    startAt.UTC(),
		EndAt:      endAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("shift_instances")
	sb.Cols("id", "template_id", "unit_id", "start_at", "end_at", "created_at")
	sb.Values(instance.ID, instance.TemplateID, instance.UnitID, instance.StartAt, instance.EndAt, instance.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			// concurrent caller created it first
			winner, findErr := r.find(ctx, templateID, unitID, startAt)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		log.WithError(err).Error("Failed to create shift instance")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create shift instance")
	}

	log.WithFields(map[string]any{"id": instance.ID}).Info("Created shift instance")
	return instance, nil
}

func (r *Repository) find(ctx context.Context, templateID, unitID string, startAt time.Time) (*models.ShiftInstance, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "template_id", "unit_id", "start_at", "end_at", "created_at")
	sb.From("shift_instances")
	sb.Where(
		sb.Equal("unit_id", unitID),
		sb.Equal("template_id", templateID),
		sb.Equal("start_at", startAt.UTC()),
	)

	query, args := sb.Build()
	var instance models.ShiftInstance
	if err := r.db.GetContext(ctx, &instance, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up shift instance")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up shift instance")
	}
	return &instance, nil
}

// GetByID retrieves a shift instance by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ShiftInstance, error) {
	ctx, span := tracing.StartSpan(ctx, "shiftinstance.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "template_id", "unit_id", "start_at", "end_at", "created_at")
	sb.From("shift_instances")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var instance models.ShiftInstance
	if err := r.db.GetContext(ctx, &instance, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("shift instance %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get shift instance")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get shift instance")
	}

	return &instance, nil
}

// List retrieves instances for a unit, optionally bounded to a start-time range
func (r *Repository) List(ctx context.Context, unitID string, from, to *time.Time) ([]models.ShiftInstance, error) {
	ctx, span := tracing.StartSpan(ctx, "shiftinstance.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "template_id", "unit_id", "start_at", "end_at", "created_at")
	sb.From("shift_instances")
	where := []string{sb.Equal("unit_id", unitID)}
	if from != nil {
		where = append(where, sb.GreaterEqualThan("start_at", from.UTC()))
	}
	if to != nil {
		where = append(where, sb.LessEqualThan("start_at", to.UTC()))
	}
	sb.Where(where...)
	sb.OrderBy("start_at ASC")

	query, args := sb.Build()
	var instances []models.ShiftInstance
	if err := r.db.SelectContext(ctx, &instances, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list shift instances")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list shift instances")
	}

	return instances, nil
}
