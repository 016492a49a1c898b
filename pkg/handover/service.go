// Package handover orchestrates the lifecycle of patient handovers across
// shift windows: creation, readiness, acceptance, completion, and
// cancellation.
package handover

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/schedule"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// HandoverRepo defines the handover persistence operations the service needs.
// The bool results of the transition methods report whether the guarded
// update matched; the service turns a false into an idempotent success or a
// conflict by re-reading the row.
type HandoverRepo interface {
	Create(ctx context.Context, h *models.Handover) (*models.Handover, bool, error)
	GetByID(ctx context.Context, id string) (*models.Handover, error)
	GetByPatientWindow(ctx context.Context, patientID, shiftWindowID string) (*models.Handover, error)
	LatestCompleted(ctx context.Context, patientID string) (*models.Handover, error)
	ListByPatient(ctx context.Context, patientID string, page, pageSize int) ([]models.Handover, int, error)
	ListPendingForUser(ctx context.Context, userID string) ([]models.Handover, error)
	CurrentHandoverID(ctx context.Context, patientID string) (*string, error)
	MarkReady(ctx context.Context, id, userID string, senderUserID *string) (bool, error)
	Start(ctx context.Context, id, userID string) (bool, error)
	Complete(ctx context.Context, id, userID string) (bool, error)
	Cancel(ctx context.Context, id, userID, reason string) (bool, error)
	ReturnForChanges(ctx context.Context, id string) (bool, error)
}

// ContentRepo defines the content section operations the service needs
type ContentRepo interface {
	Create(ctx context.Context, handoverID, initialSummary string) (*models.HandoverContents, error)
	GetOrCreate(ctx context.Context, handoverID string) (*models.HandoverContents, error)
	UpdateSection(ctx context.Context, handoverID string, req models.UpdateSectionRequest) (*models.HandoverContents, error)
}

// CoverageRepo defines the coverage reads used for sender selection
type CoverageRepo interface {
	ListForInstance(ctx context.Context, patientID, shiftInstanceID string) ([]models.Coverage, error)
}

// PatientRepo defines the patient lookups the service needs
type PatientRepo interface {
	GetByID(ctx context.Context, id string) (*models.Patient, error)
}

// UserRepo resolves display names for the detail view
type UserRepo interface {
	GetNames(ctx context.Context, ids []string) (map[string]string, error)
}

// ShiftTemplateRepo defines the template lookups the service needs
type ShiftTemplateRepo interface {
	GetByID(ctx context.Context, id string) (*models.ShiftTemplate, error)
}

// ShiftInstanceRepo defines the instance operations the service needs
type ShiftInstanceRepo interface {
	GetOrCreate(ctx context.Context, templateID, unitID string, startAt, endAt time.Time) (*models.ShiftInstance, error)
	GetByID(ctx context.Context, id string) (*models.ShiftInstance, error)
}

// ShiftWindowRepo defines the window operations the service needs
type ShiftWindowRepo interface {
	GetOrCreate(ctx context.Context, fromInstanceID, toInstanceID, unitID string) (*models.ShiftWindow, error)
	GetByID(ctx context.Context, id string) (*models.ShiftWindow, error)
}

// ActionItemRepo defines the action item operations the service needs
type ActionItemRepo interface {
	Create(ctx context.Context, handoverID string, req models.CreateActionItemRequest) (*models.ActionItem, error)
	Complete(ctx context.Context, id string) (bool, error)
	ListByHandover(ctx context.Context, handoverID string) ([]models.ActionItem, error)
}

// ContingencyPlanRepo defines the contingency plan operations the service needs
type ContingencyPlanRepo interface {
	Create(ctx context.Context, handoverID string, req models.CreateContingencyPlanRequest) (*models.ContingencyPlan, error)
	ListByHandover(ctx context.Context, handoverID string) ([]models.ContingencyPlan, error)
}

// MessageRepo defines the message operations the service needs
type MessageRepo interface {
	Create(ctx context.Context, handoverID string, req models.CreateMessageRequest) (*models.Message, error)
	ListByHandover(ctx context.Context, handoverID string) ([]models.Message, error)
}

// EventEmitter publishes handover lifecycle events
type EventEmitter interface {
	EmitHandoverCompleted(ctx context.Context, h *models.Handover, toShiftTemplateID string) error
}

// Service is the handover state machine. Transitions go through guarded
// repository updates; this layer decides what a failed guard means and keeps
// reads, sender selection, and event emission around the writes.
type Service struct {
	logger          ectologger.Logger
	handoverRepo    HandoverRepo
	contentRepo     ContentRepo
	coverageRepo    CoverageRepo
	patientRepo     PatientRepo
	userRepo        UserRepo
	templateRepo    ShiftTemplateRepo
	instanceRepo    ShiftInstanceRepo
	windowRepo      ShiftWindowRepo
	actionItemRepo  ActionItemRepo
	contingencyRepo ContingencyPlanRepo
	messageRepo     MessageRepo
	emitter         EventEmitter
	defaultPageSize int
	maxPageSize     int
}

// NewService creates a new handover service
func NewService(
	logger ectologger.Logger,
	handoverRepo HandoverRepo,
	contentRepo ContentRepo,
	coverageRepo CoverageRepo,
	patientRepo PatientRepo,
	userRepo UserRepo,
	templateRepo ShiftTemplateRepo,
	instanceRepo ShiftInstanceRepo,
	windowRepo ShiftWindowRepo,
	actionItemRepo ActionItemRepo,
	contingencyRepo ContingencyPlanRepo,
	messageRepo MessageRepo,
	emitter EventEmitter,
	defaultPageSize, maxPageSize int,
) *Service {
	return &Service{
		logger:          logger,
		handoverRepo:    handoverRepo,
		contentRepo:     contentRepo,
		coverageRepo:    coverageRepo,
		patientRepo:     patientRepo,
		userRepo:        userRepo,
		templateRepo:    templateRepo,
		instanceRepo:    instanceRepo,
		windowRepo:      windowRepo,
		actionItemRepo:  actionItemRepo,
		contingencyRepo: contingencyRepo,
		messageRepo:     messageRepo,
		emitter:         emitter,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Create opens the handover for a patient's transition between two shift
// templates on the current day. Creation is idempotent per (patient, window):
// a second call returns the existing handover with created=false. The sender
// defaults to the patient's coverage of the outgoing shift (primary first,
// then earliest assigned) unless the request names one, which the chaining
// consumer does.
func (s *Service) Create(ctx context.Context, req models.CreateHandoverRequest) (*models.Handover, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.Create")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Create",
		"patient_id": req.PatientID,
		"from":       req.FromShiftTemplateID,
		"to":         req.ToShiftTemplateID,
	})

	if req.FromShiftTemplateID == req.ToShiftTemplateID {
		return nil, false, httperror.NewHTTPError(http.StatusUnprocessableEntity, "handover must cross two different shift templates")
	}

	patient, err := s.patientRepo.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, false, err
	}
	if !patient.IsActive {
		return nil, false, httperror.NewHTTPError(http.StatusUnprocessableEntity, "patient is not active")
	}

	fromTemplate, err := s.templateRepo.GetByID(ctx, req.FromShiftTemplateID)
	if err != nil {
		return nil, false, err
	}
	toTemplate, err := s.templateRepo.GetByID(ctx, req.ToShiftTemplateID)
	if err != nil {
		return nil, false, err
	}

	bounds, err := schedule.Boundaries(*fromTemplate, *toTemplate, time.Now().UTC())
	if err != nil {
		return nil, false, httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	fromInstance, err := s.instanceRepo.GetOrCreate(ctx, fromTemplate.ID, patient.UnitID, bounds.FromStart, bounds.FromEnd)
	if err != nil {
		return nil, false, err
	}
	toInstance, err := s.instanceRepo.GetOrCreate(ctx, toTemplate.ID, patient.UnitID, bounds.ToStart, bounds.ToEnd)
	if err != nil {
		return nil, false, err
	}
	window, err := s.windowRepo.GetOrCreate(ctx, fromInstance.ID, toInstance.ID, patient.UnitID)
	if err != nil {
		return nil, false, err
	}

	// Idempotency check before sender selection: an existing handover is
	// returned as-is even if the coverage that justified it has since changed.
	if existing, err := s.handoverRepo.GetByPatientWindow(ctx, req.PatientID, window.ID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	sender := req.SenderUserID
	if sender == nil {
		derived, err := s.deriveSender(ctx, req.PatientID, fromInstance.ID)
		if err != nil {
			return nil, false, err
		}
		sender = derived
	}

	previous, err := s.handoverRepo.LatestCompleted(ctx, req.PatientID)
	if err != nil {
		return nil, false, err
	}

	h := &models.Handover{
		PatientID:      req.PatientID,
		ShiftWindowID:  window.ID,
		UnitID:         patient.UnitID,
		SenderUserID:   sender,
		ReceiverUserID: req.ReceiverUserID,
		CreatedBy:      req.CreatedBy,
		Notes:          req.Notes,
	}

	carriedSummary := ""
	if previous != nil {
		h.PreviousHandoverID = &previous.ID
		if contents, err := s.contentRepo.GetOrCreate(ctx, previous.ID); err == nil {
			carriedSummary = contents.ClinicalSummary
		} else {
			log.WithError(err).Warn("Failed to read previous handover contents; starting with empty summary")
		}
	}

	created, wasCreated, err := s.handoverRepo.Create(ctx, h)
	if err != nil {
		return nil, false, err
	}

	if wasCreated {
		if _, err := s.contentRepo.Create(ctx, created.ID, carriedSummary); err != nil {
			log.WithError(err).Warn("Handover created but content seeding failed; contents will be created lazily")
		}
		log.WithFields(map[string]any{"id": created.ID}).Info("Created handover")
	}

	return created, wasCreated, nil
}

// deriveSender picks the responsible clinician of the outgoing shift: the
// primary if one exists, otherwise the earliest assigned.
func (s *Service) deriveSender(ctx context.Context, patientID, fromInstanceID string) (*string, error) {
	covs, err := s.coverageRepo.ListForInstance(ctx, patientID, fromInstanceID)
	if err != nil {
		return nil, err
	}
	if len(covs) == 0 {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "patient has no coverage for the outgoing shift")
	}
	// ListForInstance orders primary first, then earliest assigned
	return &covs[0].UserID, nil
}

// MarkReady flips a draft handover to ready so the receiver can start it.
// Requires at least one coverage row on the outgoing shift; binds the sender
// here if creation left it unset. Marking an already-ready handover is a
// no-op.
func (s *Service) MarkReady(ctx context.Context, id, userID string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.MarkReady")
	defer span.End()

	h, err := s.handoverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	window, err := s.windowRepo.GetByID(ctx, h.ShiftWindowID)
	if err != nil {
		return nil, err
	}

	covs, err := s.coverageRepo.ListForInstance(ctx, h.PatientID, window.FromInstanceID)
	if err != nil {
		return nil, err
	}
	if len(covs) == 0 {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "patient has no coverage for the outgoing shift")
	}

	var sender *string
	if h.SenderUserID == nil {
		sender = &covs[0].UserID
	}

	updated, err := s.handoverRepo.MarkReady(ctx, id, userID, sender)
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.reloadAfterGuard(ctx, id, models.HandoverStateReady, "handover cannot be marked ready in its current state")
	}

	return s.handoverRepo.GetByID(ctx, id)
}

// Start moves a ready handover to in progress. The actor becomes the
// receiver when creation named none. The sender may not start their own
// handover.
func (s *Service) Start(ctx context.Context, id, userID string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.Start")
	defer span.End()

	updated, err := s.handoverRepo.Start(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !updated {
		h, err := s.handoverRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if h.State() == models.HandoverStateInProgress && h.StartedBy != nil && *h.StartedBy == userID {
			return h, nil
		}
		if h.SenderUserID != nil && *h.SenderUserID == userID {
			return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "sender cannot receive their own handover")
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, "handover cannot be started in its current state")
	}

	return s.handoverRepo.GetByID(ctx, id)
}

// Complete finishes an in-progress handover and emits a handover.completed
// event. Responsibility transfers to the receiver the moment the guarded
// update lands; event emission failures are logged, never rolled back.
func (s *Service) Complete(ctx context.Context, id, userID string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.Complete")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Complete",
		"id":     id,
	})

	updated, err := s.handoverRepo.Complete(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !updated {
		h, err := s.handoverRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if h.State() == models.HandoverStateCompleted && h.CompletedBy != nil && *h.CompletedBy == userID {
			return h, nil
		}
		if h.SenderUserID != nil && *h.SenderUserID == userID {
			return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "sender cannot complete their own handover")
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, "handover cannot be completed in its current state")
	}

	h, err := s.handoverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	toTemplateID, err := s.toTemplateID(ctx, h.ShiftWindowID)
	if err != nil {
		log.WithError(err).Warn("Completed handover but could not resolve the incoming shift template for the event")
	} else if err := s.emitter.EmitHandoverCompleted(ctx, h, toTemplateID); err != nil {
		log.WithError(err).Warn("Completed handover but event emission failed")
	}

	return h, nil
}

func (s *Service) toTemplateID(ctx context.Context, windowID string) (string, error) {
	window, err := s.windowRepo.GetByID(ctx, windowID)
	if err != nil {
		return "", err
	}
	toInstance, err := s.instanceRepo.GetByID(ctx, window.ToInstanceID)
	if err != nil {
		return "", err
	}
	return toInstance.TemplateID, nil
}

// Cancel abandons a handover from any non-terminal state. A reason is
// required. Cancelling an already-cancelled handover is a no-op.
func (s *Service) Cancel(ctx context.Context, id, userID, reason string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.Cancel")
	defer span.End()

	if reason == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cancel reason is required")
	}

	updated, err := s.handoverRepo.Cancel(ctx, id, userID, reason)
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.reloadAfterGuard(ctx, id, models.HandoverStateCancelled, "handover cannot be cancelled in its current state")
	}

	return s.handoverRepo.GetByID(ctx, id)
}

// ReturnForChanges sends a ready handover back to draft, typically when the
// receiver wants more detail before accepting
func (s *Service) ReturnForChanges(ctx context.Context, id, userID string) (*models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.ReturnForChanges")
	defer span.End()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"method":  "ReturnForChanges",
		"id":      id,
		"user_id": userID,
	}).Info("Returning handover for changes")

	updated, err := s.handoverRepo.ReturnForChanges(ctx, id)
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.reloadAfterGuard(ctx, id, models.HandoverStateDraft, "handover cannot be returned in its current state")
	}

	return s.handoverRepo.GetByID(ctx, id)
}

// reloadAfterGuard re-reads a row whose guarded update matched nothing. When
// the row already sits in the state the transition targets, the lost race is
// an idempotent success; anything else is a conflict.
func (s *Service) reloadAfterGuard(ctx context.Context, id string, want models.HandoverState, conflictMsg string) (*models.Handover, error) {
	h, err := s.handoverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.State() == want {
		return h, nil
	}
	return nil, httperror.NewHTTPError(http.StatusConflict, conflictMsg)
}

// GetDetail returns a handover with its derived state, display names,
// content sections, and child records
func (s *Service) GetDetail(ctx context.Context, id string) (*models.HandoverDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.GetDetail")
	defer span.End()

	h, err := s.handoverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.HandoverDetail{
		Handover: *h,
		State:    h.State(),
	}

	if patient, err := s.patientRepo.GetByID(ctx, h.PatientID); err == nil {
		detail.PatientName = patient.FullName
	}

	ids := make([]string, 0, 2)
	if h.SenderUserID != nil {
		ids = append(ids, *h.SenderUserID)
	}
	if h.ReceiverUserID != nil {
		ids = append(ids, *h.ReceiverUserID)
	}
	if len(ids) > 0 {
		if names, err := s.userRepo.GetNames(ctx, ids); err == nil {
			if h.SenderUserID != nil {
				detail.SenderName = names[*h.SenderUserID]
			}
			if h.ReceiverUserID != nil {
				detail.ReceiverName = names[*h.ReceiverUserID]
			}
		}
	}

	contents, err := s.contentRepo.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Contents = contents

	if detail.ActionItems, err = s.actionItemRepo.ListByHandover(ctx, id); err != nil {
		return nil, err
	}
	if detail.ContingencyPlans, err = s.contingencyRepo.ListByHandover(ctx, id); err != nil {
		return nil, err
	}
	if detail.Messages, err = s.messageRepo.ListByHandover(ctx, id); err != nil {
		return nil, err
	}

	return detail, nil
}

// ListByPatient returns a page of a patient's handovers, newest first
func (s *Service) ListByPatient(ctx context.Context, patientID string, page, pageSize int) (*models.HandoverListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.ListByPatient")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	items, total, err := s.handoverRepo.ListByPatient(ctx, patientID, page, pageSize)
	if err != nil {
		return nil, err
	}

	return &models.HandoverListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// ListPendingForUser returns the open handovers where the user is sender or
// receiver
func (s *Service) ListPendingForUser(ctx context.Context, userID string) ([]models.Handover, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.ListPendingForUser")
	defer span.End()

	return s.handoverRepo.ListPendingForUser(ctx, userID)
}

// GetCurrentHandoverID returns the patient's open handover ID, nil when none
func (s *Service) GetCurrentHandoverID(ctx context.Context, patientID string) (*string, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.GetCurrentHandoverID")
	defer span.End()

	return s.handoverRepo.CurrentHandoverID(ctx, patientID)
}

// UpdateSection overwrites one content section. Terminal handovers are
// read-only.
func (s *Service) UpdateSection(ctx context.Context, handoverID string, req models.UpdateSectionRequest) (*models.HandoverContents, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.UpdateSection")
	defer span.End()

	if err := s.requireEditable(ctx, handoverID); err != nil {
		return nil, err
	}

	return s.contentRepo.UpdateSection(ctx, handoverID, req)
}

// AddActionItem attaches a task to an editable handover
func (s *Service) AddActionItem(ctx context.Context, handoverID string, req models.CreateActionItemRequest) (*models.ActionItem, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.AddActionItem")
	defer span.End()

	if err := s.requireEditable(ctx, handoverID); err != nil {
		return nil, err
	}

	return s.actionItemRepo.Create(ctx, handoverID, req)
}

// CompleteActionItem marks a task done. Completing an already-done item is a
// no-op.
func (s *Service) CompleteActionItem(ctx context.Context, handoverID, itemID string) error {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.CompleteActionItem")
	defer span.End()

	if err := s.requireEditable(ctx, handoverID); err != nil {
		return err
	}

	if _, err := s.actionItemRepo.Complete(ctx, itemID); err != nil {
		return err
	}
	return nil
}

// AddContingencyPlan attaches an "if X then Y" plan to an editable handover
func (s *Service) AddContingencyPlan(ctx context.Context, handoverID string, req models.CreateContingencyPlanRequest) (*models.ContingencyPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.AddContingencyPlan")
	defer span.End()

	if err := s.requireEditable(ctx, handoverID); err != nil {
		return nil, err
	}

	return s.contingencyRepo.Create(ctx, handoverID, req)
}

// AddMessage appends to the handover discussion
func (s *Service) AddMessage(ctx context.Context, handoverID string, req models.CreateMessageRequest) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "handover.Service.AddMessage")
	defer span.End()

	if err := s.requireEditable(ctx, handoverID); err != nil {
		return nil, err
	}

	return s.messageRepo.Create(ctx, handoverID, req)
}

func (s *Service) requireEditable(ctx context.Context, handoverID string) error {
	h, err := s.handoverRepo.GetByID(ctx, handoverID)
	if err != nil {
		return err
	}
	if h.IsTerminal() {
		return httperror.NewHTTPError(http.StatusConflict, "handover is closed")
	}
	return nil
}
