package campaign

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/backend"
	"github.com/doozitravel/gateway/internal/email"
	"github.com/doozitravel/gateway/pkg/validation"
)

// submitter is the backend call Service needs; *backend.Client satisfies it.
type submitter interface {
	SubmitCampaign(ctx context.Context, token string, payload any) (*backend.Response, error)
}

// Result is a filed campaign.
type Result struct {
	// Body is the backend's reply, passed through to the client.
	Body    map[string]any
	Status  int
	Receipt Receipt
}

// Service validates, files and acknowledges campaign requests.
type Service struct {
	backend submitter
	mailer  email.Sender
	rules   *validation.Set
	clock   func() time.Time
	logger  *zap.Logger

	mailTimeout time.Duration
}

// DefaultMailTimeout bounds how long Submit waits on receipt delivery.
const DefaultMailTimeout = 10 * time.Second

// NewService creates a Service. mailer may be nil to skip receipt mail.
func NewService(b submitter, mailer email.Sender, logger *zap.Logger) *Service {
	return &Service{
		backend: b,
		mailer:  mailer,
		rules:   validation.MustPreset(validation.BusinessCampaign),
		clock:   time.Now,
		logger:  logger,

		mailTimeout: DefaultMailTimeout,
	}
}

// SetClock overrides the clock used for the delivery window and receipts.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
	s.rules.Clock = clock
}

// SetMailTimeout overrides DefaultMailTimeout.
func (s *Service) SetMailTimeout(d time.Duration) {
	s.mailTimeout = d
}

// Submit validates raw against the campaign rules as of now, files it and
// mails the receipt to the contact address. Field failures come back as a
// *validation.InvalidError and never reach the backend; backend failures
// come back as a *backend.Error. A mail failure is logged, not returned.
func (s *Service) Submit(ctx context.Context, token string, raw validation.Values) (*Result, error) {
	values, errs := s.rules.Apply(raw)
	if err := s.rules.Err(errs); err != nil {
		return nil, err
	}

	sub := FromValues(values)
	resp, err := s.backend.SubmitCampaign(ctx, token, sub)
	if err != nil {
		return nil, backend.AsError(err)
	}
	if e := resp.Err(http.StatusBadRequest, "Submission failed"); e != nil {
		return nil, e
	}

	rc := NewReceipt(resp.Body, sub, s.clock())
	s.mail(ctx, rc)

	return &Result{Body: resp.Body, Status: resp.Status, Receipt: rc}, nil
}

func (s *Service) mail(ctx context.Context, rc Receipt) {
	if s.mailer == nil {
		return
	}
	html, err := rc.HTML()
	if err != nil {
		s.logger.Error("render campaign receipt", zap.Error(err))
		return
	}
	msg := email.Message{
		To:      rc.ContactEmail,
		Subject: "Your Doozi campaign request receipt",
		Text:    rc.Text(),
		HTML:    html,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
	defer cancel()
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("mail campaign receipt", zap.String("campaign_id", rc.ID), zap.Error(err))
	}
}
