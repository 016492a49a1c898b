package handovercontent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var columns = []string{
	"handover_id",
	"clinical_summary", "clinical_summary_status", "clinical_summary_updated_by",
	"situation_awareness", "situation_awareness_status", "situation_awareness_updated_by",
	"synthesis", "synthesis_status", "synthesis_updated_by",
	"updated_at",
}

// Repository persists the free-text content sections of a handover. The row
// is created alongside the handover (seeded with any carried-forward summary)
// or lazily on first read for rows that predate seeding.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new handover content repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create seeds the content row for a handover. initialSummary carries forward
// the previous completed handover's clinical summary text; all statuses start
// as draft. Idempotent: a concurrent or repeated create returns the existing
// row.
func (r *Repository) Create(ctx context.Context, handoverID, initialSummary string) (*models.HandoverContents, error) {
	ctx, span := tracing.StartSpan(ctx, "handovercontent.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":      "Create",
		"handover_id": handoverID,
	})

	contents := &models.HandoverContents{
		HandoverID:               handoverID,
		ClinicalSummary:          initialSummary,
		ClinicalSummaryStatus:    models.SectionStatusDraft,
		SituationAwarenessStatus: models.SectionStatusDraft,
		SynthesisStatus:          models.SectionStatusDraft,
		UpdatedAt:                time.Now().UTC(),
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto("handover_contents")
	sb.Cols(
		"handover_id",
		"clinical_summary", "clinical_summary_status",
		"situation_awareness", "situation_awareness_status",
		"synthesis", "synthesis_status",
		"updated_at",
	)
	sb.Values(
		contents.HandoverID,
		contents.ClinicalSummary, contents.ClinicalSummaryStatus,
		contents.SituationAwareness, contents.SituationAwarenessStatus,
		contents.Synthesis, contents.SynthesisStatus,
		contents.UpdatedAt,
	)
	sb.OnConflictDoNothing("handover_id")

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to create handover contents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create handover contents")
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return r.get(ctx, handoverID)
	}

	return contents, nil
}

// GetOrCreate returns the content row for a handover, creating an empty one
// when absent
func (r *Repository) GetOrCreate(ctx context.Context, handoverID string) (*models.HandoverContents, error) {
	ctx, span := tracing.StartSpan(ctx, "handovercontent.Repository.GetOrCreate")
	defer span.End()

	contents, err := r.get(ctx, handoverID)
	if err != nil {
		if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound {
			return r.Create(ctx, handoverID, "")
		}
		return nil, err
	}

	return contents, nil
}

func (r *Repository) get(ctx context.Context, handoverID string) (*models.HandoverContents, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("handover_contents")
	sb.Where(sb.Equal("handover_id", handoverID))

	query, args := sb.Build()
	var contents models.HandoverContents
	if err := r.db.GetContext(ctx, &contents, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contents for handover %s not found", handoverID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get handover contents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get handover contents")
	}

	return &contents, nil
}

// UpdateSection overwrites one section's text and status. The section name is
// validated upstream, so interpolating the column prefix here is safe.
func (r *Repository) UpdateSection(ctx context.Context, handoverID string, req models.UpdateSectionRequest) (*models.HandoverContents, error) {
	ctx, span := tracing.StartSpan(ctx, "handovercontent.Repository.UpdateSection")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":      "UpdateSection",
		"handover_id": handoverID,
		"section":     req.Section,
	})

	switch req.Section {
	case models.SectionClinicalSummary, models.SectionSituationAwareness, models.SectionSynthesis:
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown content section %q", req.Section))
	}

	status := req.Status
	if status == "" {
		status = models.SectionStatusDraft
	}

	query := fmt.Sprintf(`UPDATE handover_contents
		SET %[1]s = $1, %[1]s_status = $2, %[1]s_updated_by = $3, updated_at = $4
		WHERE handover_id = $5`, string(req.Section))

	result, err := r.db.ExecContext(ctx, query, req.Text, status, req.UpdatedBy, time.Now().UTC(), handoverID)
	if err != nil {
		log.WithError(err).Error("Failed to update content section")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update content section")
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contents for handover %s not found", handoverID))
	}

	log.Info("Updated content section")
	return r.get(ctx, handoverID)
}
