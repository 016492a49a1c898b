package handover

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/schedule"
)

type fakeHandoverRepo struct {
	byID map[string]*models.Handover
	seq  int
}

func newFakeHandoverRepo() *fakeHandoverRepo {
	return &fakeHandoverRepo{byID: make(map[string]*models.Handover)}
}

func (r *fakeHandoverRepo) Create(_ context.Context, h *models.Handover) (*models.Handover, bool, error) {
	for _, existing := range r.byID {
		if existing.PatientID == h.PatientID && existing.ShiftWindowID == h.ShiftWindowID {
			return existing, false, nil
		}
	}
	r.seq++
	cp := *h
	cp.ID = fmt.Sprintf("h-%d", r.seq)
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[cp.ID] = &cp
	return &cp, true, nil
}

func (r *fakeHandoverRepo) GetByID(_ context.Context, id string) (*models.Handover, error) {
	h, ok := r.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "handover not found")
	}
	cp := *h
	return &cp, nil
}

func (r *fakeHandoverRepo) GetByPatientWindow(_ context.Context, patientID, windowID string) (*models.Handover, error) {
	for _, h := range r.byID {
		if h.PatientID == patientID && h.ShiftWindowID == windowID {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeHandoverRepo) LatestCompleted(_ context.Context, patientID string) (*models.Handover, error) {
	var latest *models.Handover
	for _, h := range r.byID {
		if h.PatientID != patientID || h.CompletedAt == nil || h.CancelledAt != nil {
			continue
		}
		if latest == nil || h.CompletedAt.After(*latest.CompletedAt) {
			latest = h
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeHandoverRepo) ListByPatient(_ context.Context, patientID string, page, pageSize int) ([]models.Handover, int, error) {
	var items []models.Handover
	for _, h := range r.byID {
		if h.PatientID == patientID {
			items = append(items, *h)
		}
	}
	return items, len(items), nil
}

func (r *fakeHandoverRepo) ListPendingForUser(_ context.Context, userID string) ([]models.Handover, error) {
	var items []models.Handover
	for _, h := range r.byID {
		if h.IsTerminal() {
			continue
		}
		if (h.SenderUserID != nil && *h.SenderUserID == userID) || (h.ReceiverUserID != nil && *h.ReceiverUserID == userID) {
			items = append(items, *h)
		}
	}
	return items, nil
}

func (r *fakeHandoverRepo) CurrentHandoverID(_ context.Context, patientID string) (*string, error) {
	for _, h := range r.byID {
		if h.PatientID == patientID && !h.IsTerminal() {
			id := h.ID
			return &id, nil
		}
	}
	return nil, nil
}

func (r *fakeHandoverRepo) MarkReady(_ context.Context, id, userID string, senderUserID *string) (bool, error) {
	h, ok := r.byID[id]
	if !ok || h.ReadyAt != nil || h.IsTerminal() {
		return false, nil
	}
	now := time.Now().UTC()
	h.ReadyAt = &now
	h.ReadyBy = &userID
	if h.SenderUserID == nil {
		h.SenderUserID = senderUserID
	}
	return true, nil
}

func (r *fakeHandoverRepo) Start(_ context.Context, id, userID string) (bool, error) {
	h, ok := r.byID[id]
	if !ok || h.ReadyAt == nil || h.StartedAt != nil || h.IsTerminal() {
		return false, nil
	}
	if h.SenderUserID != nil && *h.SenderUserID == userID {
		return false, nil
	}
	now := time.Now().UTC()
	h.StartedAt = &now
	h.StartedBy = &userID
	if h.ReceiverUserID == nil {
		h.ReceiverUserID = &userID
	}
	return true, nil
}

func (r *fakeHandoverRepo) Complete(_ context.Context, id, userID string) (bool, error) {
	h, ok := r.byID[id]
	if !ok || h.StartedAt == nil || h.CompletedAt != nil || h.CancelledAt != nil {
		return false, nil
	}
	if h.SenderUserID != nil && *h.SenderUserID == userID {
		return false, nil
	}
	now := time.Now().UTC()
	h.CompletedAt = &now
	h.CompletedBy = &userID
	if h.ReceiverUserID == nil {
		h.ReceiverUserID = &userID
	}
	return true, nil
}

func (r *fakeHandoverRepo) Cancel(_ context.Context, id, userID, reason string) (bool, error) {
	h, ok := r.byID[id]
	if !ok || h.CompletedAt != nil || h.CancelledAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	h.CancelledAt = &now
	h.CancelledBy = &userID
	h.CancelReason = &reason
	return true, nil
}

func (r *fakeHandoverRepo) ReturnForChanges(_ context.Context, id string) (bool, error) {
	h, ok := r.byID[id]
	if !ok || h.ReadyAt == nil || h.StartedAt != nil || h.IsTerminal() {
		return false, nil
	}
	h.ReadyAt = nil
	h.ReadyBy = nil
	return true, nil
}

type fakeContentRepo struct {
	byHandover map[string]*models.HandoverContents
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{byHandover: make(map[string]*models.HandoverContents)}
}

func (r *fakeContentRepo) Create(_ context.Context, handoverID, initialSummary string) (*models.HandoverContents, error) {
	if existing, ok := r.byHandover[handoverID]; ok {
		return existing, nil
	}
	c := &models.HandoverContents{
		HandoverID:               handoverID,
		ClinicalSummary:          initialSummary,
		ClinicalSummaryStatus:    models.SectionStatusDraft,
		SituationAwarenessStatus: models.SectionStatusDraft,
		SynthesisStatus:          models.SectionStatusDraft,
		UpdatedAt:                time.Now().UTC(),
	}
	r.byHandover[handoverID] = c
	return c, nil
}

func (r *fakeContentRepo) GetOrCreate(ctx context.Context, handoverID string) (*models.HandoverContents, error) {
	return r.Create(ctx, handoverID, "")
}

func (r *fakeContentRepo) UpdateSection(_ context.Context, handoverID string, req models.UpdateSectionRequest) (*models.HandoverContents, error) {
	c, ok := r.byHandover[handoverID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "contents not found")
	}
	if req.Section == models.SectionClinicalSummary {
		c.ClinicalSummary = req.Text
	}
	return c, nil
}

type fakeCoverageRepo struct {
	byKey map[string][]models.Coverage
}

func (r *fakeCoverageRepo) ListForInstance(_ context.Context, patientID, instanceID string) ([]models.Coverage, error) {
	return r.byKey[patientID+"|"+instanceID], nil
}

type fakePatientRepo struct {
	patients map[string]*models.Patient
}

func (r *fakePatientRepo) GetByID(_ context.Context, id string) (*models.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return p, nil
}

type fakeUserRepo struct{}

func (r *fakeUserRepo) GetNames(_ context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string)
	for _, id := range ids {
		names[id] = "Dr " + id
	}
	return names, nil
}

type fakeTemplateRepo struct {
	templates map[string]*models.ShiftTemplate
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id string) (*models.ShiftTemplate, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "shift template not found")
	}
	return t, nil
}

type fakeInstanceRepo struct {
	byID map[string]*models.ShiftInstance
}

func newFakeInstanceRepo() *fakeInstanceRepo {
	return &fakeInstanceRepo{byID: make(map[string]*models.ShiftInstance)}
}

func (r *fakeInstanceRepo) GetOrCreate(_ context.Context, templateID, unitID string, startAt, endAt time.Time) (*models.ShiftInstance, error) {
	id := templateID + "@" + startAt.Format(time.RFC3339)
	if inst, ok := r.byID[id]; ok {
		return inst, nil
	}
	inst := &models.ShiftInstance{ID: id, TemplateID: templateID, UnitID: unitID, StartAt: startAt, EndAt: endAt}
	r.byID[id] = inst
	return inst, nil
}

func (r *fakeInstanceRepo) GetByID(_ context.Context, id string) (*models.ShiftInstance, error) {
	inst, ok := r.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "shift instance not found")
	}
	return inst, nil
}

type fakeWindowRepo struct {
	byID map[string]*models.ShiftWindow
}

func newFakeWindowRepo() *fakeWindowRepo {
	return &fakeWindowRepo{byID: make(map[string]*models.ShiftWindow)}
}

func (r *fakeWindowRepo) GetOrCreate(_ context.Context, fromInstanceID, toInstanceID, unitID string) (*models.ShiftWindow, error) {
	id := fromInstanceID + ">" + toInstanceID
	if w, ok := r.byID[id]; ok {
		return w, nil
	}
	w := &models.ShiftWindow{ID: id, UnitID: unitID, FromInstanceID: fromInstanceID, ToInstanceID: toInstanceID}
	r.byID[id] = w
	return w, nil
}

func (r *fakeWindowRepo) GetByID(_ context.Context, id string) (*models.ShiftWindow, error) {
	w, ok := r.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "shift window not found")
	}
	return w, nil
}

type fakeActionItemRepo struct {
	items []models.ActionItem
}

func (r *fakeActionItemRepo) Create(_ context.Context, handoverID string, req models.CreateActionItemRequest) (*models.ActionItem, error) {
	item := models.ActionItem{ID: fmt.Sprintf("ai-%d", len(r.items)+1), HandoverID: handoverID, Description: req.Description, CreatedBy: req.CreatedBy}
	r.items = append(r.items, item)
	return &item, nil
}

func (r *fakeActionItemRepo) Complete(_ context.Context, id string) (bool, error) {
	for i := range r.items {
		if r.items[i].ID == id && !r.items[i].IsCompleted {
			r.items[i].IsCompleted = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeActionItemRepo) ListByHandover(_ context.Context, handoverID string) ([]models.ActionItem, error) {
	var out []models.ActionItem
	for _, item := range r.items {
		if item.HandoverID == handoverID {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeContingencyRepo struct {
	plans []models.ContingencyPlan
}

func (r *fakeContingencyRepo) Create(_ context.Context, handoverID string, req models.CreateContingencyPlanRequest) (*models.ContingencyPlan, error) {
	plan := models.ContingencyPlan{ID: fmt.Sprintf("cp-%d", len(r.plans)+1), HandoverID: handoverID, ConditionText: req.ConditionText, ActionText: req.ActionText}
	r.plans = append(r.plans, plan)
	return &plan, nil
}

func (r *fakeContingencyRepo) ListByHandover(_ context.Context, handoverID string) ([]models.ContingencyPlan, error) {
	return nil, nil
}

type fakeMessageRepo struct {
	messages []models.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, handoverID string, req models.CreateMessageRequest) (*models.Message, error) {
	msg := models.Message{ID: fmt.Sprintf("m-%d", len(r.messages)+1), HandoverID: handoverID, UserID: req.UserID, Text: req.Text}
	r.messages = append(r.messages, msg)
	return &msg, nil
}

func (r *fakeMessageRepo) ListByHandover(_ context.Context, handoverID string) ([]models.Message, error) {
	return nil, nil
}

type fakeEmitter struct {
	completed []string
}

func (e *fakeEmitter) EmitHandoverCompleted(_ context.Context, h *models.Handover, toShiftTemplateID string) error {
	e.completed = append(e.completed, h.ID+":"+toShiftTemplateID)
	return nil
}

type fixture struct {
	svc       *Service
	handovers *fakeHandoverRepo
	contents  *fakeContentRepo
	coverage  *fakeCoverageRepo
	emitter   *fakeEmitter
	instances *fakeInstanceRepo
	windows   *fakeWindowRepo
}

func newFixture() *fixture {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	handovers := newFakeHandoverRepo()
	contents := newFakeContentRepo()
	coverage := &fakeCoverageRepo{byKey: make(map[string][]models.Coverage)}
	patients := &fakePatientRepo{patients: map[string]*models.Patient{
		"p1": {ID: "p1", UnitID: "u1", FullName: "Ada Example", IsActive: true},
		"p2": {ID: "p2", UnitID: "u1", FullName: "Grace Sample", IsActive: false},
	}}
	templates := &fakeTemplateRepo{templates: map[string]*models.ShiftTemplate{
		"day":   {ID: "day", Name: "Day", StartTime: "07:00", EndTime: "19:00"},
		"night": {ID: "night", Name: "Night", StartTime: "19:00", EndTime: "07:00"},
	}}
	instances := newFakeInstanceRepo()
	windows := newFakeWindowRepo()
	emitter := &fakeEmitter{}

	svc := NewService(
		logger, handovers, contents, coverage, patients, &fakeUserRepo{},
		templates, instances, windows,
		&fakeActionItemRepo{}, &fakeContingencyRepo{}, &fakeMessageRepo{},
		emitter, 20, 100,
	)

	return &fixture{
		svc:       svc,
		handovers: handovers,
		contents:  contents,
		coverage:  coverage,
		emitter:   emitter,
		instances: instances,
		windows:   windows,
	}
}

// fromInstanceID materializes the FROM instance the day->night transition
// resolves to today, the same way the service does, so coverage rows can be
// registered against it before Create runs.
func (f *fixture) fromInstanceID(t *testing.T) string {
	t.Helper()
	day := models.ShiftTemplate{ID: "day", StartTime: "07:00", EndTime: "19:00"}
	night := models.ShiftTemplate{ID: "night", StartTime: "19:00", EndTime: "07:00"}
	b, err := schedule.Boundaries(day, night, time.Now().UTC())
	require.NoError(t, err)
	inst, err := f.instances.GetOrCreate(context.Background(), "day", "u1", b.FromStart, b.FromEnd)
	require.NoError(t, err)
	return inst.ID
}

func TestCreate_DerivesSenderFromPrimaryCoverage(t *testing.T) {
	f := newFixture()
	// primary-first ordering is the repository's contract
	f.coverage.byKey["p1|"+f.fromInstanceID(t)] = []models.Coverage{
		{UserID: "nurse-1", IsPrimary: true},
		{UserID: "nurse-2", IsPrimary: false},
	}

	h, created, err := f.svc.Create(context.Background(), models.CreateHandoverRequest{
		PatientID:           "p1",
		FromShiftTemplateID: "day",
		ToShiftTemplateID:   "night",
		CreatedBy:           "nurse-1",
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, h.SenderUserID)
	assert.Equal(t, "nurse-1", *h.SenderUserID)
	assert.Equal(t, models.HandoverStateDraft, h.State())

	// content row seeded
	_, ok := f.contents.byHandover[h.ID]
	assert.True(t, ok)
}

func TestCreate_IsIdempotentPerWindow(t *testing.T) {
	f := newFixture()
	sender := "nurse-1"
	req := models.CreateHandoverRequest{
		PatientID:           "p1",
		FromShiftTemplateID: "day",
		ToShiftTemplateID:   "night",
		SenderUserID:        &sender,
		CreatedBy:           "nurse-1",
	}

	first, created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreate_FailsWithoutCoverageOrSender(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.Create(context.Background(), models.CreateHandoverRequest{
		PatientID:           "p1",
		FromShiftTemplateID: "day",
		ToShiftTemplateID:   "night",
		CreatedBy:           "nurse-1",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
}

func TestCreate_RejectsSameTemplate(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.Create(context.Background(), models.CreateHandoverRequest{
		PatientID:           "p1",
		FromShiftTemplateID: "day",
		ToShiftTemplateID:   "day",
		CreatedBy:           "nurse-1",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
}

func TestCreate_RejectsInactivePatient(t *testing.T) {
	f := newFixture()
	sender := "nurse-1"

	_, _, err := f.svc.Create(context.Background(), models.CreateHandoverRequest{
		PatientID:           "p2",
		FromShiftTemplateID: "day",
		ToShiftTemplateID:   "night",
		SenderUserID:        &sender,
		CreatedBy:           "nurse-1",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
}

func TestCreate_CarriesForwardPreviousSummary(t *testing.T) {
	f := newFixture()
	sender := "nurse-1"

	// A prior completed handover with a summary
	prev := &models.Handover{PatientID: "p1", ShiftWindowID: "old-window", UnitID: "u1", CreatedBy: "nurse-0"}
	prev, _, err := f.handovers.Create(context.Background(), prev)
	require.NoError(t, err)
	_, err = f.contents.Create(context.Background(), prev.ID, "long-standing cardiac history")
	require.NoError(t, err)
	now := time.Now().UTC()
	stored := f.handovers.byID[prev.ID]
	stored.ReadyAt, stored.StartedAt, stored.CompletedAt = &now, &now, &now
	by := "nurse-0"
	stored.CompletedBy = &by

	h, created, err := f.svc.Create(context.Background(), models.CreateHandoverRequest{
		PatientID:           "p1",
		FromShiftTemplateID: "day",
		ToShiftTemplateID:   "night",
		SenderUserID:        &sender,
		CreatedBy:           "nurse-1",
	})
	require.NoError(t, err)
	require.True(t, created)

	require.NotNil(t, h.PreviousHandoverID)
	assert.Equal(t, prev.ID, *h.PreviousHandoverID)
	assert.Equal(t, "long-standing cardiac history", f.contents.byHandover[h.ID].ClinicalSummary)
	// statuses start fresh
	assert.Equal(t, models.SectionStatusDraft, f.contents.byHandover[h.ID].ClinicalSummaryStatus)
}

func (f *fixture) createDraft(t *testing.T, sender string) *models.Handover {
	t.Helper()
	h, created, err := f.svc.Create(context.Background(), models.CreateHandoverRequest{
		PatientID:           "p1",
		FromShiftTemplateID: "day",
		ToShiftTemplateID:   "night",
		SenderUserID:        &sender,
		CreatedBy:           sender,
	})
	require.NoError(t, err)
	require.True(t, created)

	// MarkReady requires coverage on the outgoing shift
	w, err := f.windows.GetByID(context.Background(), h.ShiftWindowID)
	require.NoError(t, err)
	f.coverage.byKey["p1|"+w.FromInstanceID] = []models.Coverage{{UserID: sender, IsPrimary: true}}

	return h
}

func TestLifecycle_ReadyStartComplete(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	ready, err := f.svc.MarkReady(context.Background(), h.ID, "nurse-1")
	require.NoError(t, err)
	assert.Equal(t, models.HandoverStateReady, ready.State())

	started, err := f.svc.Start(context.Background(), h.ID, "nurse-2")
	require.NoError(t, err)
	assert.Equal(t, models.HandoverStateInProgress, started.State())
	require.NotNil(t, started.ReceiverUserID)
	assert.Equal(t, "nurse-2", *started.ReceiverUserID)

	completed, err := f.svc.Complete(context.Background(), h.ID, "nurse-2")
	require.NoError(t, err)
	assert.Equal(t, models.HandoverStateCompleted, completed.State())

	require.Len(t, f.emitter.completed, 1)
	assert.Equal(t, h.ID+":night", f.emitter.completed[0])
}

func TestStart_SenderCannotReceive(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.MarkReady(context.Background(), h.ID, "nurse-1")
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), h.ID, "nurse-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
}

func TestStart_RequiresReady(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.Start(context.Background(), h.ID, "nurse-2")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestMarkReady_RequiresCoverage(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	// remove coverage again
	w, err := f.windows.GetByID(context.Background(), h.ShiftWindowID)
	require.NoError(t, err)
	delete(f.coverage.byKey, "p1|"+w.FromInstanceID)

	_, err = f.svc.MarkReady(context.Background(), h.ID, "nurse-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
}

func TestMarkReady_IsIdempotent(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.MarkReady(context.Background(), h.ID, "nurse-1")
	require.NoError(t, err)

	again, err := f.svc.MarkReady(context.Background(), h.ID, "nurse-1")
	require.NoError(t, err)
	assert.Equal(t, models.HandoverStateReady, again.State())
}

func TestCancel_RequiresReason(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.Cancel(context.Background(), h.ID, "nurse-1", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestCancel_BlocksCompletedHandover(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.MarkReady(context.Background(), h.ID, "nurse-1")
	require.NoError(t, err)
	_, err = f.svc.Start(context.Background(), h.ID, "nurse-2")
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), h.ID, "nurse-2")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), h.ID, "nurse-1", "wrong patient")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestReturnForChanges_ReopensDraft(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.MarkReady(context.Background(), h.ID, "nurse-1")
	require.NoError(t, err)

	returned, err := f.svc.ReturnForChanges(context.Background(), h.ID, "nurse-2")
	require.NoError(t, err)
	assert.Equal(t, models.HandoverStateDraft, returned.State())
}

func TestAddActionItem_RejectsClosedHandover(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.Cancel(context.Background(), h.ID, "nurse-1", "duplicate")
	require.NoError(t, err)

	_, err = f.svc.AddActionItem(context.Background(), h.ID, models.CreateActionItemRequest{
		Description: "check labs",
		CreatedBy:   "nurse-1",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestGetDetail_ResolvesNamesAndChildren(t *testing.T) {
	f := newFixture()
	h := f.createDraft(t, "nurse-1")

	_, err := f.svc.AddActionItem(context.Background(), h.ID, models.CreateActionItemRequest{
		Description: "check labs",
		CreatedBy:   "nurse-1",
	})
	require.NoError(t, err)

	detail, err := f.svc.GetDetail(context.Background(), h.ID)
	require.NoError(t, err)

	assert.Equal(t, models.HandoverStateDraft, detail.State)
	assert.Equal(t, "Ada Example", detail.PatientName)
	assert.Equal(t, "Dr nurse-1", detail.SenderName)
	require.NotNil(t, detail.Contents)
	assert.Len(t, detail.ActionItems, 1)
}
