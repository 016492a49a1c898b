package models

import "time"

// Content section status values
const (
	SectionStatusDraft     = "draft"
	SectionStatusCompleted = "completed"
)

// HandoverContents holds the free-text sections of a handover: one row per
// handover, lazily created on first read. Only the clinical summary text is
// carried forward from the previous completed handover; section statuses and
// the synthesis always start fresh.
type HandoverContents struct {
	HandoverID                  string    `json:"handover_id" db:"handover_id"`
	ClinicalSummary             string    `json:"clinical_summary" db:"clinical_summary"`
	ClinicalSummaryStatus       string    `json:"clinical_summary_status" db:"clinical_summary_status"`
	ClinicalSummaryUpdatedBy    *string   `json:"clinical_summary_updated_by,omitempty" db:"clinical_summary_updated_by"`
	SituationAwareness          string    `json:"situation_awareness" db:"situation_awareness"`
	SituationAwarenessStatus    string    `json:"situation_awareness_status" db:"situation_awareness_status"`
	SituationAwarenessUpdatedBy *string   `json:"situation_awareness_updated_by,omitempty" db:"situation_awareness_updated_by"`
	Synthesis                   string    `json:"synthesis" db:"synthesis"`
	SynthesisStatus             string    `json:"synthesis_status" db:"synthesis_status"`
	SynthesisUpdatedBy          *string   `json:"synthesis_updated_by,omitempty" db:"synthesis_updated_by"`
	UpdatedAt                   time.Time `json:"updated_at" db:"updated_at"`
}

// ContentSection names one of the three free-text sections
type ContentSection string

const (
	SectionClinicalSummary    ContentSection = "clinical_summary"
	SectionSituationAwareness ContentSection = "situation_awareness"
	SectionSynthesis          ContentSection = "synthesis"
)

// UpdateSectionRequest updates one content section's text and status
type UpdateSectionRequest struct {
	Section   ContentSection `json:"section" validate:"required,oneof=clinical_summary situation_awareness synthesis"`
	Text      string         `json:"text"`
	Status    string         `json:"status" validate:"omitempty,oneof=draft completed"`
	UpdatedBy string         `json:"updated_by" validate:"required"`
}
