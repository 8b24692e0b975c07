package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agency-forms/logger"
	"agency-forms/models"
	"agency-forms/notification"
	"agency-forms/storage"
	"agency-forms/utils"
)

const (
	storageTimeout = 5 * time.Second
	welcomeSubject = "Welcome to the waiting list!"
)

type WaitingListOptions struct {
	Store     storage.Store
	Mailer    notification.Mailer
	ConfigErr error
	Renderer  *notification.Renderer
	Logger    *slog.Logger
	// Timeout bounds the welcome email send.
	Timeout time.Duration
}

type WaitingListService struct {
	store     storage.Store
	mailer    notification.Mailer
	configErr error
	renderer  *notification.Renderer
	log       *slog.Logger
	timeout   time.Duration
}

func NewWaitingListService(opts WaitingListOptions) *WaitingListService {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	configErr := opts.ConfigErr
	if opts.Mailer == nil && configErr == nil {
		configErr = errors.New("waiting list mailer is not configured")
	}
	return &WaitingListService{
		store:     opts.Store,
		mailer:    opts.Mailer,
		configErr: configErr,
		renderer:  opts.Renderer,
		log:       log.With(logger.Component("waiting_list")),
		timeout:   opts.Timeout,
	}
}

// Join stores entry and sends the welcome email. The stored entry is kept
// when the email fails; the returned entry then still carries its id.
func (s *WaitingListService) Join(ctx context.Context, entry models.WaitingListEntry) (models.WaitingListEntry, error) {
	entry.Normalize()
	if err := ValidateWaitingListEntry(entry); err != nil {
		return models.WaitingListEntry{}, err
	}
	if s.mailer == nil {
		return models.WaitingListEntry{}, &Error{
			Kind: KindConfiguration,
			Op:   "waiting_list.config",
			Msg:  MsgConfigError,
			Err:  s.configErr,
		}
	}

	log := s.log.With(slog.String("email", utils.MaskEmail(entry.Email)))

	saved, err := s.save(ctx, entry)
	if err != nil {
		log.Error("failed to store waiting list entry", logger.Error(err))
		return models.WaitingListEntry{}, err
	}
	log = log.With(slog.String("id", saved.ID))

	html, err := s.renderer.RenderWelcome(notification.WelcomeData{
		Name:      saved.Name,
		Interests: saved.Interests,
		Message:   saved.Message,
	})
	if err != nil {
		return saved, &Error{Kind: KindUnknown, Op: "waiting_list.render", Err: err}
	}

	sendCtx, cancel := withBudget(ctx, s.timeout)
	defer cancel()

	err = s.mailer.Send(sendCtx, notification.Message{
		To:      []string{saved.Email},
		Subject: welcomeSubject,
		HTML:    html,
		Tag:     "waiting_list_welcome",
	})
	if err != nil {
		log.Error("welcome email failed, entry kept", logger.Error(err))
		return saved, mailError("waiting_list.send", err)
	}

	log.Info("joined waiting list", slog.Int("interests", len(saved.Interests)))
	return saved, nil
}

func (s *WaitingListService) save(ctx context.Context, entry models.WaitingListEntry) (models.WaitingListEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	saved, err := s.store.AddWaitingListEntry(ctx, entry)
	if err == nil {
		return saved, nil
	}
	kind := KindStorage
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return models.WaitingListEntry{}, &Error{Kind: kind, Op: "waiting_list.store", Err: err}
}
