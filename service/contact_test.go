package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agency-forms/logger"
	"agency-forms/models"
	"agency-forms/notification"
	"agency-forms/service"
	"agency-forms/storage"
	"agency-forms/tracker"
)

func validSubmission() models.ContactSubmission {
	return models.ContactSubmission{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Phone:   "+1 555 0100",
		Subject: "Website redesign",
		Message: "We need a new site.",
	}
}

func newContactService(t *testing.T, m notification.Mailer, store storage.Store) (*service.ContactService, *tracker.Tracker) {
	t.Helper()
	tr := tracker.NewTracker(16, time.Hour)
	svc := service.NewContactService(service.ContactOptions{
		Mailer:     m,
		Renderer:   notification.MustNewRenderer(),
		Recipients: []string{"info@agency.example", "sales@agency.example"},
		Tracker:    tr,
		Store:      store,
		Logger:     logger.Discard(),
		Location:   time.UTC,
	})
	return svc, tr
}

func TestContactService_Submit(t *testing.T) {
	t.Parallel()
	mailer := &fakeMailer{}
	store := storage.NewMemoryStore()
	svc, tr := newContactService(t, mailer, store)

	sub := validSubmission()
	sub.Urgency = "high"
	sub.Appointment = "2026-03-06T14:30"

	result, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, models.DeliverySent, result.Deliveries.Internal)
	assert.Equal(t, models.DeliverySent, result.Deliveries.Client)
	assert.False(t, result.Degraded())
	assert.False(t, result.Repeat)
	require.Equal(t, 2, mailer.count())

	internal, ok := mailer.byTag("contact_internal")
	require.True(t, ok)
	assert.Equal(t, "[HIGH] New contact form submission: Website redesign", internal.Subject)
	assert.Equal(t, []string{"info@agency.example", "sales@agency.example"}, internal.To)
	assert.Equal(t, []string{"jane@example.com"}, internal.ReplyTo)
	assert.Contains(t, string(internal.HTML), "#dc2626")

	client, ok := mailer.byTag("contact_client")
	require.True(t, ok)
	assert.Equal(t, "We received your message: Website redesign", client.Subject)
	assert.Equal(t, []string{"jane@example.com"}, client.To)
	assert.Contains(t, string(client.HTML), "We need a new site.")
	assert.Contains(t, string(client.HTML), "Friday, March 6, 2026 at 2:30 PM UTC")

	_, seen := tr.LastSubmission("JANE@example.com")
	assert.True(t, seen)
	require.Len(t, store.ContactRequests(), 1)
	assert.Equal(t, "Website redesign", store.ContactRequests()[0].Subject)
}

func TestContactService_Submit_DefaultUrgencyAndRepeats(t *testing.T) {
	t.Parallel()
	mailer := &fakeMailer{}
	svc, _ := newContactService(t, mailer, nil)

	first, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	assert.False(t, first.Repeat)
	assert.True(t, second.Repeat, "identical submissions are sent again and flagged")
	assert.Equal(t, 4, mailer.count())

	internal, ok := mailer.byTag("contact_internal")
	require.True(t, ok)
	assert.Equal(t, "[LOW] New contact form submission: Website redesign", internal.Subject)
}

func TestContactService_Submit_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*models.ContactSubmission)
		wantMsg string
	}{
		{"missing name", func(s *models.ContactSubmission) { s.Name = "" }, service.MsgRequiredFields},
		{"blank phone", func(s *models.ContactSubmission) { s.Phone = "   " }, service.MsgRequiredFields},
		{"missing message", func(s *models.ContactSubmission) { s.Message = "" }, service.MsgRequiredFields},
		{"malformed email", func(s *models.ContactSubmission) { s.Email = "not-an-email" }, service.MsgInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mailer := &fakeMailer{}
			svc, _ := newContactService(t, mailer, nil)

			sub := validSubmission()
			tt.mutate(&sub)
			_, err := svc.Submit(context.Background(), sub)

			require.Error(t, err)
			assert.Equal(t, service.KindValidation, service.KindOf(err))
			assert.Equal(t, http.StatusBadRequest, service.StatusCode(err))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Zero(t, mailer.count(), "no email is attempted")
		})
	}
}

func TestContactService_Submit_NotConfigured(t *testing.T) {
	t.Parallel()
	svc := service.NewContactService(service.ContactOptions{
		ConfigErr:  errors.New("smtp credentials are not configured: missing username, password"),
		Renderer:   notification.MustNewRenderer(),
		Recipients: []string{"info@agency.example"},
		Logger:     logger.Discard(),
	})

	_, err := svc.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.Equal(t, service.KindConfiguration, service.KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, service.StatusCode(err))
	assert.Equal(t, service.MsgConfigError, service.Message(err, ""))
	assert.Contains(t, err.Error(), "missing username, password")
}

func TestContactService_Submit_VerifyFails(t *testing.T) {
	t.Parallel()
	mailer := &fakeMailer{verifyErr: errors.New("535 5.7.8 Username and Password not accepted")}
	svc, tr := newContactService(t, mailer, nil)

	_, err := svc.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.Equal(t, service.KindTransport, service.KindOf(err))
	assert.True(t, service.KindOf(err).Retryable())
	assert.Equal(t, "535 5.7.8 Username and Password not accepted", err.Error())
	assert.Zero(t, mailer.count())
	assert.Zero(t, tr.Len())
}

func TestContactService_Submit_InternalFails(t *testing.T) {
	t.Parallel()
	rejection := errors.New("550 5.1.1 Mailbox unavailable")
	mailer := &fakeMailer{sendErr: map[string]error{"contact_internal": rejection}}
	store := storage.NewMemoryStore()
	svc, tr := newContactService(t, mailer, store)

	result, err := svc.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.ErrorIs(t, err, rejection)
	assert.Equal(t, "550 5.1.1 Mailbox unavailable", err.Error())
	assert.Equal(t, http.StatusInternalServerError, service.StatusCode(err))
	assert.Equal(t, models.DeliveryFailed, result.Deliveries.Internal)
	assert.Equal(t, models.DeliverySent, result.Deliveries.Client)
	assert.Zero(t, tr.Len())
	assert.Empty(t, store.ContactRequests())
}

func TestContactService_Submit_ClientAckFails(t *testing.T) {
	t.Parallel()
	mailer := &fakeMailer{sendErr: map[string]error{"contact_client": errors.New("550 no such user")}}
	svc, tr := newContactService(t, mailer, nil)

	result, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, models.DeliverySent, result.Deliveries.Internal)
	assert.Equal(t, models.DeliveryFailed, result.Deliveries.Client)
	assert.True(t, result.Degraded())
	assert.Equal(t, 1, tr.Len())
}

func TestContactService_Submit_Timeout(t *testing.T) {
	t.Parallel()
	mailer := &fakeMailer{sendErr: map[string]error{"contact_internal": notification.ErrTimeout}}
	svc, _ := newContactService(t, mailer, nil)

	_, err := svc.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.Equal(t, service.KindTimeout, service.KindOf(err))
	assert.Equal(t, http.StatusGatewayTimeout, service.StatusCode(err))
	assert.True(t, service.KindOf(err).Retryable())
}

func TestContactService_Submit_StoreFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	store := &mockStore{}
	store.On("AddContactRequest", mock.Anything, mock.Anything).
		Return(models.ContactRequest{}, errors.New("connection refused"))

	mailer := &fakeMailer{}
	svc, _ := newContactService(t, mailer, store)

	_, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestContactService_Submit_StalledRelayEndsAtTimeout(t *testing.T) {
	t.Parallel()
	svc := service.NewContactService(service.ContactOptions{
		Mailer:     &fakeMailer{stall: true},
		Renderer:   notification.MustNewRenderer(),
		Recipients: []string{"info@agency.example"},
		Logger:     logger.Discard(),
		Timeout:    50 * time.Millisecond,
	})

	start := time.Now()
	_, err := svc.Submit(context.Background(), validSubmission())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, service.KindTimeout, service.KindOf(err))
	assert.Equal(t, http.StatusGatewayTimeout, service.StatusCode(err))
	assert.Less(t, elapsed, time.Second)
}
