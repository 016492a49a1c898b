// Package coverage manages which clinicians are responsible for which
// patients during a shift instance.
package coverage

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// CoverageRepo defines the coverage ledger operations the service needs
type CoverageRepo interface {
	Assign(ctx context.Context, req models.AssignCoverageRequest) (*models.Coverage, error)
	Unassign(ctx context.Context, req models.UnassignCoverageRequest) (bool, error)
	ListForInstance(ctx context.Context, patientID, shiftInstanceID string) ([]models.Coverage, error)
	ListForUser(ctx context.Context, userID string) ([]models.Coverage, error)
}

// PatientRepo defines the patient lookups the service needs
type PatientRepo interface {
	GetByID(ctx context.Context, id string) (*models.Patient, error)
}

// ShiftInstanceRepo defines the shift instance lookups the service needs
type ShiftInstanceRepo interface {
	GetByID(ctx context.Context, id string) (*models.ShiftInstance, error)
}

// EventEmitter publishes coverage lifecycle events
type EventEmitter interface {
	EmitCoverageAssigned(ctx context.Context, cov *models.Coverage, unitID, shiftTemplateID string) error
}

// Service validates coverage changes against master data and emits events
// after they commit
type Service struct {
	logger       ectologger.Logger
	coverageRepo CoverageRepo
	patientRepo  PatientRepo
	instanceRepo ShiftInstanceRepo
	emitter      EventEmitter
}

// NewService creates a new coverage service
func NewService(
	logger ectologger.Logger,
	coverageRepo CoverageRepo,
	patientRepo PatientRepo,
	instanceRepo ShiftInstanceRepo,
	emitter EventEmitter,
) *Service {
	return &Service{
		logger:       logger,
		coverageRepo: coverageRepo,
		patientRepo:  patientRepo,
		instanceRepo: instanceRepo,
		emitter:      emitter,
	}
}

// Assign binds a clinician to a patient for a shift instance and emits a
// coverage.assigned event once the row is committed. Event emission failures
// are logged, never surfaced: the assignment already happened.
func (s *Service) Assign(ctx context.Context, req models.AssignCoverageRequest) (*models.Coverage, error) {
	ctx, span := tracing.StartSpan(ctx, "coverage.Service.Assign")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"method":            "Assign",
		"patient_id":        req.PatientID,
		"user_id":           req.UserID,
		"shift_instance_id": req.ShiftInstanceID,
	})

	patient, err := s.patientRepo.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if !patient.IsActive {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "patient is not active")
	}

	instance, err := s.instanceRepo.GetByID(ctx, req.ShiftInstanceID)
	if err != nil {
		return nil, err
	}
	if instance.UnitID != patient.UnitID {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "shift instance belongs to a different unit")
	}

	cov, err := s.coverageRepo.Assign(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.emitter.EmitCoverageAssigned(ctx, cov, instance.UnitID, instance.TemplateID); err != nil {
		log.WithError(err).Warn("Coverage assigned but event emission failed")
	}

	return cov, nil
}

// Unassign removes a clinician's coverage. Returns NotFound when no matching
// assignment exists.
func (s *Service) Unassign(ctx context.Context, req models.UnassignCoverageRequest) error {
	ctx, span := tracing.StartSpan(ctx, "coverage.Service.Unassign")
	defer span.End()

	removed, err := s.coverageRepo.Unassign(ctx, req)
	if err != nil {
		return err
	}
	if !removed {
		return httperror.NewHTTPError(http.StatusNotFound, "coverage assignment not found")
	}

	return nil
}

// ListForInstance returns the coverage rows for a patient and shift instance,
// primary first
func (s *Service) ListForInstance(ctx context.Context, patientID, shiftInstanceID string) ([]models.Coverage, error) {
	ctx, span := tracing.StartSpan(ctx, "coverage.Service.ListForInstance")
	defer span.End()

	return s.coverageRepo.ListForInstance(ctx, patientID, shiftInstanceID)
}

// ListForUser returns a user's coverage assignments, newest first
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Coverage, error) {
	ctx, span := tracing.StartSpan(ctx, "coverage.Service.ListForUser")
	defer span.End()

	return s.coverageRepo.ListForUser(ctx, userID)
}
