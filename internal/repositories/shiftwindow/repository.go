package shiftwindow

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

// Repository handles shift window persistence. A window is the transition
// boundary between an ordered pair of shift instances; it is created on first
// reference and shared by every patient crossing that transition.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new shift window repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate returns the window for (fromInstance, toInstance), creating it
// when absent, with the same race-safe re-read as shift instances.
func (r *Repository) GetOrCreate(ctx context.Context, fromInstanceID, toInstanceID, unitID string) (*models.ShiftWindow, error) {
	ctx, span := tracing.StartSpan(ctx, "shiftwindow.Repository.GetOrCreate")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":           "GetOrCreate",
		"from_instance_id": fromInstanceID,
		"to_instance_id":   toInstanceID,
	})

	if existing, err := r.find(ctx, fromInstanceID, toInstanceID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	window := &models.ShiftWindow{
		ID:             uuid.New().String(),
		UnitID:         unitID,
		FromInstanceID: fromInstanceID,
		ToInstanceID:   toInstanceID,
		CreatedAt:      time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("shift_windows")
	sb.Cols("id", "unit_id", "from_instance_id", "to_instance_id", "created_at")
	sb.Values(window.ID, window.UnitID, window.FromInstanceID, window.ToInstanceID, window.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			winner, findErr := r.find(ctx, fromInstanceID, toInstanceID)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		log.WithError(err).Error("Failed to create shift window")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create shift window")
	}

	log.WithFields(map[string]any{"id": window.ID}).Info("Created shift window")
	return window, nil
}

func (r *Repository) find(ctx context.Context, fromInstanceID, toInstanceID string) (*models.ShiftWindow, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "unit_id", "from_instance_id", "to_instance_id", "created_at")
	sb.From("shift_windows")
	sb.Where(
		sb.Equal("from_instance_id", fromInstanceID),
		sb.Equal("to_instance_id", toInstanceID),
	)

	query, args := sb.Build()
	var window models.ShiftWindow
	if err := r.db.GetContext(ctx, &window, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up shift window")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up shift window")
	}
	return &window, nil
}

// GetByID retrieves a shift window by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ShiftWindow, error) {
	ctx, span := tracing.StartSpan(ctx, "shiftwindow.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "unit_id", "from_instance_id", "to_instance_id", "created_at")
	sb.From("shift_windows")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var window models.ShiftWindow
	if err := r.db.GetContext(ctx, &window, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("shift window %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get shift window")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get shift window")
	}

	return &window, nil
}
