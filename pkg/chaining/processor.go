// Package chaining keeps the handover pipeline rolling: committed workflow
// events open the next handover in the rotation without anyone asking for it.
package chaining

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/schedule"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// HandoverCreator opens handovers; satisfied by the handover service
type HandoverCreator interface {
	Create(ctx context.Context, req models.CreateHandoverRequest) (*models.Handover, bool, error)
}

// ShiftTemplateLister lists the shift template catalog for adjacency lookups
type ShiftTemplateLister interface {
	List(ctx context.Context) ([]models.ShiftTemplate, error)
}

// Processor reacts to workflow events. A primary coverage assignment opens
// the handover out of that shift with the assigned clinician as sender; a
// completed handover opens the follow-up with the receiver as sender.
// Creation is idempotent, so replays and racing consumers are harmless.
type Processor struct {
	logger       ectologger.Logger
	handovers    HandoverCreator
	templateRepo ShiftTemplateLister
}

// NewProcessor creates a new chaining processor
func NewProcessor(logger ectologger.Logger, handovers HandoverCreator, templateRepo ShiftTemplateLister) *Processor {
	return &Processor{
		logger:       logger,
		handovers:    handovers,
		templateRepo: templateRepo,
	}
}

// HandleMessage dispatches an incoming event by its event_type header.
// Returning nil commits the offset, so permanent domain failures are logged
// and swallowed here; only transient failures propagate for redelivery.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "chaining.Processor.HandleMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": msg.EventType(),
		"key":        msg.Key,
		"offset":     msg.Offset,
	})

	switch msg.EventType() {
	case kafka.EventTypeCoverageAssigned:
		evt, err := msg.ParseCoverageAssigned()
		if err != nil {
			log.WithError(err).Error("Failed to parse coverage.assigned event")
			return nil
		}
		return p.onCoverageAssigned(ctx, evt)
	case kafka.EventTypeHandoverCompleted:
		evt, err := msg.ParseHandoverCompleted()
		if err != nil {
			log.WithError(err).Error("Failed to parse handover.completed event")
			return nil
		}
		return p.onHandoverCompleted(ctx, evt)
	default:
		// other consumers' events on the shared topic
		return nil
	}
}

func (p *Processor) onCoverageAssigned(ctx context.Context, evt *kafka.CoverageAssignedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "chaining.Processor.onCoverageAssigned")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"patient_id":        evt.PatientID,
		"user_id":           evt.UserID,
		"shift_template_id": evt.ShiftTemplateID,
	})

	if !evt.IsPrimary {
		return nil
	}

	next, err := p.nextTemplate(ctx, evt.ShiftTemplateID)
	if err != nil {
		return p.classify(log, err, "Skipping coverage.assigned event")
	}
	if next == nil {
		log.Debug("No successor shift template; nothing to chain")
		return nil
	}

	_, created, err := p.handovers.Create(ctx, models.CreateHandoverRequest{
		PatientID:           evt.PatientID,
		FromShiftTemplateID: evt.ShiftTemplateID,
		ToShiftTemplateID:   next.ID,
		SenderUserID:        &evt.UserID,
		CreatedBy:           evt.UserID,
	})
	if err != nil {
		return p.classify(log, err, "Failed to open handover for primary coverage")
	}

	if created {
		log.Info("Opened handover for primary coverage assignment")
	}
	return nil
}

func (p *Processor) onHandoverCompleted(ctx context.Context, evt *kafka.HandoverCompletedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "chaining.Processor.onHandoverCompleted")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"patient_id":  evt.PatientID,
		"handover_id": evt.HandoverID,
	})

	if evt.ReceiverUserID == "" {
		log.Error("handover.completed event has no receiver; cannot chain")
		return nil
	}

	next, err := p.nextTemplate(ctx, evt.ToShiftTemplateID)
	if err != nil {
		return p.classify(log, err, "Skipping handover.completed event")
	}
	if next == nil {
		log.Debug("No successor shift template; nothing to chain")
		return nil
	}

	_, created, err := p.handovers.Create(ctx, models.CreateHandoverRequest{
		PatientID:           evt.PatientID,
		FromShiftTemplateID: evt.ToShiftTemplateID,
		ToShiftTemplateID:   next.ID,
		SenderUserID:        &evt.ReceiverUserID,
		CreatedBy:           evt.ReceiverUserID,
	})
	if err != nil {
		return p.classify(log, err, "Failed to open follow-up handover")
	}

	if created {
		log.Info("Opened follow-up handover")
	}
	return nil
}

func (p *Processor) nextTemplate(ctx context.Context, templateID string) (*models.ShiftTemplate, error) {
	templates, err := p.templateRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.Next(templates, templateID)
}

// classify decides whether a failure is worth a redelivery. Server-side
// errors are transient and propagate; everything else is a permanent domain
// failure that would fail identically on every retry, so it is logged and
// the offset committed.
func (p *Processor) classify(log ectologger.Logger, err error, msg string) error {
	if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) < http.StatusInternalServerError {
		log.WithError(err).Warn(msg)
		return nil
	}
	return err
}
