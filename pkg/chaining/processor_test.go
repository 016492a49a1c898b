package chaining

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
)

type fakeCreator struct {
	requests []models.CreateHandoverRequest
	err      error
}

func (c *fakeCreator) Create(_ context.Context, req models.CreateHandoverRequest) (*models.Handover, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	c.requests = append(c.requests, req)
	return &models.Handover{ID: "h-1", PatientID: req.PatientID}, true, nil
}

type fakeTemplateLister struct {
	templates []models.ShiftTemplate
	err       error
}

func (l *fakeTemplateLister) List(_ context.Context) ([]models.ShiftTemplate, error) {
	return l.templates, l.err
}

func dayNightTemplates() []models.ShiftTemplate {
	return []models.ShiftTemplate{
		{ID: "day", Name: "Day", StartTime: "07:00", EndTime: "19:00"},
		{ID: "night", Name: "Night", StartTime: "19:00", EndTime: "07:00"},
	}
}

func newProcessor(creator *fakeCreator, lister *fakeTemplateLister) *Processor {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewProcessor(logger, creator, lister)
}

func coverageAssignedMessage(t *testing.T, evt kafka.CoverageAssignedEvent) *kafka.IncomingMessage {
	t.Helper()
	evt.EventType = kafka.EventTypeCoverageAssigned
	value, err := json.Marshal(evt)
	require.NoError(t, err)
	return &kafka.IncomingMessage{
		Key:     evt.PatientID,
		Value:   value,
		Headers: map[string]string{"event_type": kafka.EventTypeCoverageAssigned},
	}
}

func handoverCompletedMessage(t *testing.T, evt kafka.HandoverCompletedEvent) *kafka.IncomingMessage {
	t.Helper()
	evt.EventType = kafka.EventTypeHandoverCompleted
	value, err := json.Marshal(evt)
	require.NoError(t, err)
	return &kafka.IncomingMessage{
		Key:     evt.PatientID,
		Value:   value,
		Headers: map[string]string{"event_type": kafka.EventTypeHandoverCompleted},
	}
}

func TestHandleMessage_PrimaryCoverageOpensNextHandover(t *testing.T) {
	creator := &fakeCreator{}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := coverageAssignedMessage(t, kafka.CoverageAssignedEvent{
		PatientID:       "p1",
		ShiftTemplateID: "day",
		UserID:          "nurse-1",
		IsPrimary:       true,
	})

	err := p.HandleMessage(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, creator.requests, 1)
	req := creator.requests[0]
	assert.Equal(t, "p1", req.PatientID)
	assert.Equal(t, "day", req.FromShiftTemplateID)
	assert.Equal(t, "night", req.ToShiftTemplateID)
	require.NotNil(t, req.SenderUserID)
	assert.Equal(t, "nurse-1", *req.SenderUserID)
	assert.Equal(t, "nurse-1", req.CreatedBy)
}

func TestHandleMessage_NonPrimaryCoverageIsIgnored(t *testing.T) {
	creator := &fakeCreator{}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := coverageAssignedMessage(t, kafka.CoverageAssignedEvent{
		PatientID:       "p1",
		ShiftTemplateID: "day",
		UserID:          "nurse-2",
		IsPrimary:       false,
	})

	err := p.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, creator.requests)
}

func TestHandleMessage_CompletedHandoverChainsFollowUp(t *testing.T) {
	creator := &fakeCreator{}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := handoverCompletedMessage(t, kafka.HandoverCompletedEvent{
		HandoverID:        "h-0",
		PatientID:         "p1",
		ToShiftTemplateID: "night",
		ReceiverUserID:    "nurse-2",
	})

	err := p.HandleMessage(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, creator.requests, 1)
	req := creator.requests[0]
	assert.Equal(t, "night", req.FromShiftTemplateID)
	assert.Equal(t, "day", req.ToShiftTemplateID)
	require.NotNil(t, req.SenderUserID)
	assert.Equal(t, "nurse-2", *req.SenderUserID)
}

func TestHandleMessage_CompletedWithoutReceiverIsDropped(t *testing.T) {
	creator := &fakeCreator{}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := handoverCompletedMessage(t, kafka.HandoverCompletedEvent{
		HandoverID:        "h-0",
		PatientID:         "p1",
		ToShiftTemplateID: "night",
	})

	err := p.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, creator.requests)
}

func TestHandleMessage_SingleTemplateHasNothingToChain(t *testing.T) {
	creator := &fakeCreator{}
	p := newProcessor(creator, &fakeTemplateLister{templates: []models.ShiftTemplate{
		{ID: "day", Name: "Day", StartTime: "07:00", EndTime: "19:00"},
	}})

	msg := coverageAssignedMessage(t, kafka.CoverageAssignedEvent{
		PatientID:       "p1",
		ShiftTemplateID: "day",
		UserID:          "nurse-1",
		IsPrimary:       true,
	})

	err := p.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, creator.requests)
}

func TestHandleMessage_PermanentFailureCommits(t *testing.T) {
	creator := &fakeCreator{err: httperror.NewHTTPError(http.StatusUnprocessableEntity, "patient is not active")}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := coverageAssignedMessage(t, kafka.CoverageAssignedEvent{
		PatientID:       "p1",
		ShiftTemplateID: "day",
		UserID:          "nurse-1",
		IsPrimary:       true,
	})

	// a 422 will fail identically on every redelivery, so the offset commits
	err := p.HandleMessage(context.Background(), msg)
	assert.NoError(t, err)
}

func TestHandleMessage_TransientFailurePropagates(t *testing.T) {
	creator := &fakeCreator{err: httperror.NewHTTPError(http.StatusInternalServerError, "failed to create handover")}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := coverageAssignedMessage(t, kafka.CoverageAssignedEvent{
		PatientID:       "p1",
		ShiftTemplateID: "day",
		UserID:          "nurse-1",
		IsPrimary:       true,
	})

	err := p.HandleMessage(context.Background(), msg)
	assert.Error(t, err)
}

func TestHandleMessage_UnknownEventTypeIsSkipped(t *testing.T) {
	creator := &fakeCreator{}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := &kafka.IncomingMessage{
		Key:     "p1",
		Value:   []byte(`{}`),
		Headers: map[string]string{"event_type": "patient.admitted"},
	}

	err := p.HandleMessage(context.Background(), msg)
	assert.NoError(t, err)
	assert.Empty(t, creator.requests)
}

func TestHandleMessage_MalformedPayloadIsDropped(t *testing.T) {
	creator := &fakeCreator{}
	p := newProcessor(creator, &fakeTemplateLister{templates: dayNightTemplates()})

	msg := &kafka.IncomingMessage{
		Key:     "p1",
		Value:   []byte(`{not json`),
		Headers: map[string]string{"event_type": kafka.EventTypeCoverageAssigned},
	}

	err := p.HandleMessage(context.Background(), msg)
	assert.NoError(t, err)
	assert.Empty(t, creator.requests)
}
