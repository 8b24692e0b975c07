// Package service implements the contact form and waiting list workflows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"agency-forms/logger"
	"agency-forms/models"
	"agency-forms/notification"
	"agency-forms/storage"
	"agency-forms/tracker"
	"agency-forms/utils"
)

// ContactOptions wires a ContactService. Mailer may be nil when the relay
// credentials are missing; ConfigErr then explains why and every submission
// fails with KindConfiguration.
type ContactOptions struct {
	Mailer     notification.Mailer
	ConfigErr  error
	Renderer   *notification.Renderer
	Recipients []string
	Tracker    *tracker.Tracker
	Store      storage.Store
	Logger     *slog.Logger
	Location   *time.Location
	// Timeout bounds the relay work of one submission. Zero means no bound
	// beyond the caller's context.
	Timeout time.Duration
}

type ContactService struct {
	mailer     notification.Mailer
	configErr  error
	renderer   *notification.Renderer
	recipients []string
	tracker    *tracker.Tracker
	store      storage.Store
	log        *slog.Logger
	location   *time.Location
	timeout    time.Duration
	now        func() time.Time
}

// ContactResult is the outcome of an accepted submission.
type ContactResult struct {
	Deliveries models.Deliveries
	// Repeat is set when the submitter was seen recently.
	Repeat bool
}

// Degraded reports whether any email of the submission failed.
func (r ContactResult) Degraded() bool {
	return r.Deliveries.Internal != models.DeliverySent || r.Deliveries.Client != models.DeliverySent
}

func NewContactService(opts ContactOptions) *ContactService {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	configErr := opts.ConfigErr
	if opts.Mailer == nil && configErr == nil {
		configErr = errors.New("contact mailer is not configured")
	}
	return &ContactService{
		mailer:     opts.Mailer,
		configErr:  configErr,
		renderer:   opts.Renderer,
		recipients: opts.Recipients,
		tracker:    opts.Tracker,
		store:      opts.Store,
		log:        log.With(logger.Component("contact")),
		location:   loc,
		timeout:    opts.Timeout,
		now:        time.Now,
	}
}

// CheckConfig fails with KindConfiguration when the relay cannot be used.
func (s *ContactService) CheckConfig() error {
	if s.mailer == nil || len(s.recipients) == 0 {
		cause := s.configErr
		if cause == nil {
			cause = errors.New("no contact recipients configured")
		}
		return &Error{Kind: KindConfiguration, Op: "contact.config", Msg: MsgConfigError, Err: cause}
	}
	return nil
}

// Submit validates sub, verifies the relay and sends the staff notification
// and the client acknowledgment concurrently. Only a failed staff
// notification fails the submission.
func (s *ContactService) Submit(ctx context.Context, sub models.ContactSubmission) (ContactResult, error) {
	if err := s.CheckConfig(); err != nil {
		return ContactResult{}, err
	}

	sub.Normalize()
	if err := ValidateContact(sub); err != nil {
		return ContactResult{}, err
	}

	log := s.log.With(
		slog.String("email", utils.MaskEmail(sub.Email)),
		slog.String("domain", utils.ExtractDomain(sub.Email)),
	)

	ctx, cancel := withBudget(ctx, s.timeout)
	defer cancel()

	if err := s.mailer.Verify(ctx); err != nil {
		log.Error("mail relay verification failed", logger.Error(err))
		return ContactResult{}, mailError("contact.verify", err)
	}

	submittedAt := s.now()
	internal, client, err := s.buildMessages(sub, submittedAt)
	if err != nil {
		return ContactResult{}, &Error{Kind: KindUnknown, Op: "contact.render", Err: err}
	}

	var internalErr, clientErr error
	var wg sync.WaitGroup
	wg.Go(func() { internalErr = s.mailer.Send(ctx, internal) })
	wg.Go(func() { clientErr = s.mailer.Send(ctx, client) })
	wg.Wait()

	result := ContactResult{
		Deliveries: models.Deliveries{
			Internal: deliveryStatus(internalErr),
			Client:   deliveryStatus(clientErr),
		},
	}

	if internalErr != nil {
		log.Error("contact notification failed",
			slog.String("client_delivery", string(result.Deliveries.Client)),
			logger.Error(internalErr),
		)
		return result, mailError("contact.send_internal", internalErr)
	}
	if clientErr != nil {
		log.Warn("contact acknowledgment failed", logger.Error(clientErr))
	}

	if s.tracker != nil {
		result.Repeat = s.tracker.Record(sub.Email, submittedAt)
	}
	s.persist(ctx, sub, log)

	log.Info("contact form submitted",
		slog.String("urgency", string(models.ParseUrgency(sub.Urgency))),
		slog.Bool("repeat", result.Repeat),
		slog.String("client_delivery", string(result.Deliveries.Client)),
	)
	return result, nil
}

func (s *ContactService) buildMessages(sub models.ContactSubmission, at time.Time) (notification.Message, notification.Message, error) {
	urgency := models.ParseUrgency(sub.Urgency)
	appointment := FormatAppointment(sub.Appointment, s.location)

	internalHTML, err := s.renderer.RenderContactInternal(notification.ContactInternalData{
		Name:             sub.Name,
		Email:            sub.Email,
		Phone:            sub.Phone,
		Subject:          sub.Subject,
		Message:          sub.Message,
		Appointment:      appointment,
		PreferredContact: sub.PreferredContact,
		UrgencyLabel:     urgency.Label(),
		UrgencyColor:     urgency.Color(),
		SubmittedAt:      at.In(s.location).Format(displayLayout),
	})
	if err != nil {
		return notification.Message{}, notification.Message{}, err
	}

	clientHTML, err := s.renderer.RenderContactClient(notification.ContactClientData{
		Name:        sub.Name,
		Subject:     sub.Subject,
		Message:     sub.Message,
		Appointment: appointment,
	})
	if err != nil {
		return notification.Message{}, notification.Message{}, err
	}

	internal := notification.Message{
		To:      s.recipients,
		ReplyTo: []string{sub.Email},
		Subject: fmt.Sprintf("[%s] New contact form submission: %s", urgency.Label(), sub.Subject),
		HTML:    internalHTML,
		Tag:     "contact_internal",
	}
	client := notification.Message{
		To:      []string{sub.Email},
		Subject: "We received your message: " + sub.Subject,
		HTML:    clientHTML,
		Tag:     "contact_client",
	}
	return internal, client, nil
}

// persist stores the request for later review. Failures are only logged.
func (s *ContactService) persist(ctx context.Context, sub models.ContactSubmission, log *slog.Logger) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageTimeout)
	defer cancel()

	req, err := s.store.AddContactRequest(ctx, models.NewContactRequest(sub))
	if err != nil {
		log.Warn("failed to store contact request", logger.Error(err))
		return
	}
	log.Debug("contact request stored", slog.String("id", req.ID))
}

func deliveryStatus(err error) models.DeliveryStatus {
	if err != nil {
		return models.DeliveryFailed
	}
	return models.DeliverySent
}

// mailError classifies a transport failure, keeping the cause's text.
func mailError(op string, err error) *Error {
	kind := KindTransport
	if errors.Is(err, notification.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// withBudget bounds ctx by d when d is positive.
func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
