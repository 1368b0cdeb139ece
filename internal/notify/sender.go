package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
	"github.com/kursadbilgin/interview-dispatch/internal/observability"
	"github.com/kursadbilgin/interview-dispatch/internal/provider"
	"go.uber.org/zap"
)

// Sender renders invitations and delivers them through one Mailer. Every
// failure is folded into the returned SendResult.
type Sender struct {
	mailer  provider.Mailer
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewSender(mailer provider.Mailer, logger *zap.Logger) (*Sender, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *Sender) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Provider returns the name of the underlying mailer.
func (s *Sender) Provider() string {
	return s.mailer.Name()
}

func (s *Sender) Send(ctx context.Context, round domain.InterviewRound) domain.SendResult {
	invitation, err := RenderInvitation(round)
	if err != nil {
		return domain.SendResult{Error: err.Error()}
	}

	return s.deliver(ctx, provider.Message{
		To:      provider.Address{Email: strings.TrimSpace(round.CandidateEmail), Name: round.Candidate},
		Subject: invitation.Subject,
		HTML:    invitation.HTML,
		Text:    invitation.Text,
	})
}

// SendTest delivers a fixed probe message to address.
func (s *Sender) SendTest(ctx context.Context, address string) domain.SendResult {
	return s.deliver(ctx, provider.Message{
		To:      provider.Address{Email: strings.TrimSpace(address), Name: "Test User"},
		Subject: "Test Email",
		HTML:    "<p>This is a test</p>",
		Text:    "This is a test",
	})
}

func (s *Sender) deliver(ctx context.Context, msg provider.Message) domain.SendResult {
	start := s.now()
	receipt, err := s.mailer.Send(ctx, msg)
	s.metrics.ObserveSendDuration(s.mailer.Name(), s.now().Sub(start))

	if err != nil {
		reason := provider.FailureReason(err)
		s.metrics.IncProviderError(s.mailer.Name(), reason)
		s.logger.Debug("provider send failed",
			zap.String("provider", s.mailer.Name()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		errMsg := strings.TrimSpace(err.Error())
		if errMsg == "" {
			errMsg = "Network error"
		}
		return domain.SendResult{Error: errMsg}
	}

	sentAt := s.now().UTC()
	result := domain.SendResult{Success: true, SentAt: &sentAt}
	if receipt != nil {
		result.MessageID = receipt.MessageID
	}
	return result
}
