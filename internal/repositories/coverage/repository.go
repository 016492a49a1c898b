package coverage

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

// Repository is the coverage ledger: the only code allowed to mutate coverage
// rows. Exposing one method per use case (Assign, Unassign) keeps the
// one-primary-per-(patient,instance) invariant from being bypassed by ad hoc
// row-level writes.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new coverage repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Assign binds a clinician to a patient for a shift instance. The first row
// for a (patient, instance) is always primary regardless of the caller's
// preference; a later row asked to be primary demotes the current one inside
// the same transaction.
func (r *Repository) Assign(ctx context.Context, req models.AssignCoverageRequest) (*models.Coverage, error) {
	ctx, span := tracing.StartSpan(ctx, "coverage.Repository.Assign")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":            "Assign",
		"user_id":           req.UserID,
		"patient_id":        req.PatientID,
		"shift_instance_id": req.ShiftInstanceID,
	})

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var primaryExists bool
	existsQuery := `SELECT EXISTS (
		SELECT 1 FROM coverages
		WHERE patient_id = $1 AND shift_instance_id = $2 AND is_primary
		FOR UPDATE
	)`
	if err := tx.GetContext(ctx, &primaryExists, existsQuery, req.PatientID, req.ShiftInstanceID); err != nil {
		log.WithError(err).Error("Failed to check for existing primary coverage")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign coverage")
	}

	isPrimary := req.MakePrimary || !primaryExists
	if primaryExists && req.MakePrimary {
		demote := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		demote.Update("coverages")
		demote.Set(demote.Assign("is_primary", false))
		demote.Where(
			demote.Equal("patient_id", req.PatientID),
			demote.Equal("shift_instance_id", req.ShiftInstanceID),
			demote.Equal("is_primary", true),
		)
		query, args := demote.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			log.WithError(err).Error("Failed to demote existing primary coverage")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign coverage")
		}
	}

	cov := &models.Coverage{
		ID:              uuid.New().String(),
		PatientID:       req.PatientID,
		ShiftInstanceID: req.ShiftInstanceID,
		UserID:          req.UserID,
		IsPrimary:       isPrimary,
		AssignedAt:      time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("coverages")
	sb.Cols("id", "patient_id", "shift_instance_id", "user_id", "is_primary", "assigned_at")
	sb.Values(cov.ID, cov.PatientID, cov.ShiftInstanceID, cov.UserID, cov.IsPrimary, cov.AssignedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "user already covers this patient for this shift instance")
		}
		log.WithError(err).Error("Failed to insert coverage")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign coverage")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign coverage")
	}

	log.WithFields(map[string]any{"id": cov.ID, "is_primary": cov.IsPrimary}).Info("Assigned coverage")
	return cov, nil
}

// Unassign removes a clinician's coverage of a patient for a shift instance.
// When the removed row was primary, the remaining row with the earliest
// assigned_at is promoted in the same transaction, so a covered patient never
// ends up with zero or duplicate primaries. Returns false when no matching
// row existed.
func (r *Repository) Unassign(ctx context.Context, req models.UnassignCoverageRequest) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "coverage.Repository.Unassign")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":            "Unassign",
		"user_id":           req.UserID,
		"patient_id":        req.PatientID,
		"shift_instance_id": req.ShiftInstanceID,
	})

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var target struct {
		ID        string `db:"id"`
		IsPrimary bool   `db:"is_primary"`
	}
	findQuery := `SELECT id, is_primary FROM coverages
		WHERE patient_id = $1 AND shift_instance_id = $2 AND user_id = $3
		FOR UPDATE`
	if err := tx.GetContext(ctx, &target, findQuery, req.PatientID, req.ShiftInstanceID, req.UserID); err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		log.WithError(err).Error("Failed to look up coverage for removal")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to unassign coverage")
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("coverages")
	db.Where(db.Equal("id", target.ID))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to delete coverage")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to unassign coverage")
	}

	if target.IsPrimary {
		// promote the longest-standing remaining assignment, if any
		promoteQuery := `UPDATE coverages SET is_primary = true
			WHERE id = (
				SELECT id FROM coverages
				WHERE patient_id = $1 AND shift_instance_id = $2
				ORDER BY assigned_at ASC, id ASC
				LIMIT 1
			)`
		if _, err := tx.ExecContext(ctx, promoteQuery, req.PatientID, req.ShiftInstanceID); err != nil {
			log.WithError(err).Error("Failed to promote replacement primary coverage")
			return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to unassign coverage")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to unassign coverage")
	}

	log.WithFields(map[string]any{"was_primary": target.IsPrimary}).Info("Unassigned coverage")
	return true, nil
}

// ListForInstance returns all coverage rows for a (patient, instance),
// primary first, then oldest assignment first. The handover state machine
// uses this ordering directly for sender selection.
func (r *Repository) ListForInstance(ctx context.Context, patientID, shiftInstanceID string) ([]models.Coverage, error) {
	ctx, span := tracing.StartSpan(ctx, "coverage.Repository.ListForInstance")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "patient_id", "shift_instance_id", "user_id", "is_primary", "assigned_at")
	sb.From("coverages")
	sb.Where(
		sb.Equal("patient_id", patientID),
		sb.Equal("shift_instance_id", shiftInstanceID),
	)
	sb.OrderBy("is_primary DESC", "assigned_at ASC")

	query, args := sb.Build()
	var rows []models.Coverage
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list coverage")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list coverage")
	}

	return rows, nil
}

// ListForUser returns a user's coverage rows for a shift instance range,
// newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]models.Coverage, error) {
	ctx, span := tracing.StartSpan(ctx, "coverage.Repository.ListForUser")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "patient_id", "shift_instance_id", "user_id", "is_primary", "assigned_at")
	sb.From("coverages")
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("assigned_at DESC")

	query, args := sb.Build()
	var rows []models.Coverage
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list coverage for user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list coverage")
	}

	return rows, nil
}
