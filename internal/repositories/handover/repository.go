package handover

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var columns = []string{
	"id", "patient_id", "shift_window_id", "unit_id", "previous_handover_id",
	"sender_user_id", "receiver_user_id", "created_by", "notes",
	"created_at", "updated_at",
	"ready_at", "ready_by", "started_at", "started_by",
	"completed_at", "completed_by", "cancelled_at", "cancelled_by", "cancel_reason",
}

// Repository persists handovers. All lifecycle writes are guarded updates: the
// WHERE clause restates the precondition of the transition, so a lost race
// shows up as zero rows affected instead of a corrupt row. Repositories report
// that as a bool; callers decide whether it is a conflict or an idempotent
// no-op.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new handover repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the handover for (patient, window). The unique constraint on
// that pair plus ON CONFLICT DO NOTHING makes creation idempotent under
// concurrency; when another writer won, the winner's row is returned with
// created=false.
func (r *Repository) Create(ctx context.Context, h *models.Handover) (*models.Handover, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":          "Create",
		"patient_id":      h.PatientID,
		"shift_window_id": h.ShiftWindowID,
	})

	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	sb := database.NewInsertBuilder()
	sb.InsertInto("handovers")
	sb.Cols(
		"id", "patient_id", "shift_window_id", "unit_id", "previous_handover_id",
		"sender_user_id", "receiver_user_id", "created_by", "notes",
		"created_at", "updated_at",
	)
	sb.Values(
		h.ID, h.PatientID, h.ShiftWindowID, h.UnitID, h.PreviousHandoverID,
		h.SenderUserID, h.ReceiverUserID, h.CreatedBy, h.Notes,
		h.CreatedAt, h.UpdatedAt,
	)
	sb.OnConflictDoNothing("patient_id", "shift_window_id")

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to create handover")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create handover")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read create result")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create handover")
	}

	if rows == 0 {
		existing, err := r.GetByPatientWindow(ctx, h.PatientID, h.ShiftWindowID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			// the conflicting insert has not committed yet; surface the
			// conflict rather than a phantom row
			return nil, false, httperror.NewHTTPError(http.StatusConflict, "handover already exists for this shift window")
		}
		return existing, false, nil
	}

	log.WithFields(map[string]any{"id": h.ID}).Info("Created handover")
	return h, true, nil
}

// GetByID retrieves a handover by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("handovers")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var h models.Handover
	if err := r.db.GetContext(ctx, &h, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("handover %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get handover")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover")
	}

	return &h, nil
}

// GetByPatientWindow retrieves the handover for a (patient, window) pair, or
// nil when none exists
func (r *Repository) GetByPatientWindow(ctx context.Context, patientID, shiftWindowID string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.GetByPatientWindow")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("handovers")
	sb.Where(
		sb.Equal("patient_id", patientID),
		sb.Equal("shift_window_id", shiftWindowID),
	)

	query, args := sb.Build()
	var h models.Handover
	if err := r.db.GetContext(ctx, &h, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up handover")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up handover")
	}

	return &h, nil
}

// LatestCompleted returns the patient's most recently completed handover, or
// nil when the patient has never completed one. Cancelled rows never qualify.
func (r *Repository) LatestCompleted(ctx context.Context, patientID string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.LatestCompleted")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("handovers")
	sb.Where(
		sb.Equal("patient_id", patientID),
		sb.IsNotNull("completed_at"),
		sb.IsNull("cancelled_at"),
	)
	sb.OrderBy("completed_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var h models.Handover
	if err := r.db.GetContext(ctx, &h, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up latest completed handover")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up latest completed handover")
	}

	return &h, nil
}

// ListByPatient retrieves a page of a patient's handovers, newest first
func (r *Repository) ListByPatient(ctx context.Context, patientID string, page, pageSize int) ([]models.Handover, int, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.ListByPatient")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "ListByPatient",
		"patient_id": patientID,
	})

	countQuery := `SELECT COUNT(*) FROM handovers WHERE patient_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, patientID); err != nil {
		log.WithError(err).Error("Failed to count handovers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list handovers")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("handovers")
	sb.Where(sb.Equal("patient_id", patientID))
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var handovers []models.Handover
	if err := r.db.SelectContext(ctx, &handovers, query, args...); err != nil {
		log.WithError(err).Error("Failed to list handovers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list handovers")
	}

	return handovers, total, nil
}

// ListPendingForUser retrieves non-terminal handovers where the user is the
// sender or the receiver, oldest first
func (r *Repository) ListPendingForUser(ctx context.Context, userID string) ([]models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.ListPendingForUser")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM handovers
		WHERE (sender_user_id = $1 OR receiver_user_id = $1)
			AND completed_at IS NULL AND cancelled_at IS NULL
		ORDER BY created_at ASC`, strings.Join(columns, ", "))

	var handovers []models.Handover
	if err := r.db.SelectContext(ctx, &handovers, query, userID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending handovers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending handovers")
	}

	return handovers, nil
}

// CurrentHandoverID returns the ID of the patient's most recent non-terminal
// handover, or nil when none is open
func (r *Repository) CurrentHandoverID(ctx context.Context, patientID string) (*string, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.CurrentHandoverID")
	defer span.End()

	query := `SELECT id FROM handovers
		WHERE patient_id = $1 AND completed_at IS NULL AND cancelled_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`

	var id string
	if err := r.db.GetContext(ctx, &id, query, patientID); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up current handover")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up current handover")
	}

	return &id, nil
}

// MarkReady flips a draft to ready. The sender is bound here if creation left
// it unset. Returns false when the row was not in a state that allows the
// transition.
func (r *Repository) MarkReady(ctx context.Context, id, userID string, senderUserID *string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.MarkReady")
	defer span.End()

	query := `UPDATE handovers
		SET ready_at = $1, ready_by = $2,
			sender_user_id = COALESCE(sender_user_id, $3),
			updated_at = $1
		WHERE id = $4
			AND ready_at IS NULL
			AND completed_at IS NULL AND cancelled_at IS NULL`

	return r.guardedUpdate(ctx, "MarkReady", id, query, time.Now().UTC(), userID, senderUserID, id)
}

// Start moves a ready handover to in progress. The actor becomes the receiver
// when none was assigned at creation. The sender may not receive their own
// handover.
func (r *Repository) Start(ctx context.Context, id, userID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.Start")
	defer span.End()

	query := `UPDATE handovers
		SET started_at = $1, started_by = $2,
			receiver_user_id = COALESCE(receiver_user_id, $2),
			updated_at = $1
		WHERE id = $3
			AND ready_at IS NOT NULL AND started_at IS NULL
			AND completed_at IS NULL AND cancelled_at IS NULL
			AND sender_user_id IS DISTINCT FROM $2`

	return r.guardedUpdate(ctx, "Start", id, query, time.Now().UTC(), userID, id)
}

// Complete finishes an in-progress handover, transferring responsibility to
// the receiver. Same actor rule as Start.
func (r *Repository) Complete(ctx context.Context, id, userID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.Complete")
	defer span.End()

	query := `UPDATE handovers
		SET completed_at = $1, completed_by = $2,
			receiver_user_id = COALESCE(receiver_user_id, $2),
			updated_at = $1
		WHERE id = $3
			AND started_at IS NOT NULL
			AND completed_at IS NULL AND cancelled_at IS NULL
			AND sender_user_id IS DISTINCT FROM $2`

	return r.guardedUpdate(ctx, "Complete", id, query, time.Now().UTC(), userID, id)
}

// Cancel abandons a handover from any non-terminal state
func (r *Repository) Cancel(ctx context.Context, id, userID, reason string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.Cancel")
	defer span.End()

	query := `UPDATE handovers
		SET cancelled_at = $1, cancelled_by = $2, cancel_reason = $3,
			updated_at = $1
		WHERE id = $4
			AND completed_at IS NULL AND cancelled_at IS NULL`

	return r.guardedUpdate(ctx, "Cancel", id, query, time.Now().UTC(), userID, reason, id)
}

// ReturnForChanges sends a ready handover back to draft by clearing the ready
// marks. Only valid before the receiver has started.
func (r *Repository) ReturnForChanges(ctx context.Context, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Repository.ReturnForChanges")
	defer span.End()

	query := `UPDATE handovers
		SET ready_at = NULL, ready_by = NULL,
			updated_at = $1
		WHERE id = $2
			AND ready_at IS NOT NULL AND started_at IS NULL
			AND completed_at IS NULL AND cancelled_at IS NULL`

	return r.guardedUpdate(ctx, "ReturnForChanges", id, query, time.Now().UTC(), id)
}

func (r *Repository) guardedUpdate(ctx context.Context, method, id, query string, args ...any) (bool, error) {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": method,
		"id":     id,
	})

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to update handover")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update handover")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read update result")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update handover")
	}

	if rows == 0 {
		return false, nil
	}

	log.Info("Updated handover")
	return true, nil
}
