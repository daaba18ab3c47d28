package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
	"github.com/mamadbah2/eurocam-webhook/internal/service/autoreply"
)

const (
	tagInboundMessage = "INBOUND_MESSAGE"
	sinkTimeout       = config.SinkTimeout
)

// ErrVerificationFailed is returned when the webhook handshake does not match.
var ErrVerificationFailed = errors.New("webhook verification failed")

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	Dispatch(ctx context.Context, event models.WebhookEvent) models.Acknowledgement
	ObserveDeliveryReport(ctx context.Context, body []byte)
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// StatusArchive stores delivery receipts.
type StatusArchive interface {
	SaveStatusCallbacks(ctx context.Context, statuses []models.StatusCallback) error
}

// ContactJournal records every handled inbound message.
type ContactJournal interface {
	Record(ctx context.Context, receivedAt time.Time, report models.ReplyReport) error
}

// ActivityRecorder counts what the service does.
type ActivityRecorder interface {
	RecordEvent(category models.EventCategory)
	RecordDecision(decision models.ReplyDecision)
	RecordSend(kind string, succeeded bool)
	RecordFallback()
	RecordFailedStatus()
}

// Option customizes a MetaWhatsAppService.
type Option func(*MetaWhatsAppService)

// WithStatusArchive persists every status callback the service logs.
func WithStatusArchive(archive StatusArchive) Option {
	return func(s *MetaWhatsAppService) { s.archive = archive }
}

// WithContactJournal records every handled inbound message.
func WithContactJournal(journal ContactJournal) Option {
	return func(s *MetaWhatsAppService) { s.journal = journal }
}

// WithActivityRecorder counts events, decisions and sends.
func WithActivityRecorder(recorder ActivityRecorder) Option {
	return func(s *MetaWhatsAppService) {
		if recorder != nil {
			s.activity = recorder
		}
	}
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg      config.WhatsAppConfig
	sender   Sender
	archive  StatusArchive
	journal  ContactJournal
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, sender Sender, logger *zap.Logger, opts ...Option) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:      cfg,
		sender:   sender,
		activity: noopActivity{},
		logger:   logger,
		now:      time.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", fmt.Errorf("%w: missing mode or verify token", ErrVerificationFailed)
	}

	if !models.NewVerificationRequest(mode, verifyToken, challenge).Matches(s.cfg.VerifyToken) {
		return "", fmt.Errorf("%w: mode=%q", ErrVerificationFailed, mode)
	}

	return challenge, nil
}

// Dispatch runs one webhook event to completion and returns the answer owed to Meta.
// Only a failed handshake yields a non-2xx status; anything else, a panic included,
// is acknowledged with 200 so Meta does not redeliver.
func (s *MetaWhatsAppService) Dispatch(ctx context.Context, event models.WebhookEvent) (ack models.Acknowledgement) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("webhook processing panicked", zap.Any("panic", r), zap.Stack("stack"))
			ack = acknowledged()
		}
	}()

	if event == nil {
		event = models.UnrecognizedEvent{Reason: "nil event"}
	}
	s.activity.RecordEvent(event.Category())

	// Sends must finish even if Meta hangs up on us.
	ctx = context.WithoutCancel(ctx)

	switch ev := event.(type) {
	case models.VerificationRequest:
		return s.verify(ev)
	case models.StatusEvent:
		s.logStatuses(ctx, ev.Statuses, tagStatusCallback)
	case models.MessageEvent:
		s.HandleMessage(ctx, ev.Message)
	case models.UnrecognizedEvent:
		s.logger.Debug("webhook without actionable content", zap.String("reason", ev.Reason))
	}

	return acknowledged()
}

func (s *MetaWhatsAppService) verify(req models.VerificationRequest) models.Acknowledgement {
	challenge, err := s.VerifyWebhookToken(req.Mode, req.Token, req.Challenge)
	if err != nil {
		s.logger.Warn("webhook verification failed", zap.Error(err))
		return models.Acknowledgement{StatusCode: http.StatusForbidden, Body: "verification failed"}
	}

	s.logger.Info("webhook verified")
	return models.Acknowledgement{StatusCode: http.StatusOK, Body: challenge}
}

// HandleMessage answers one inbound message. At most two sends happen: a template and,
// if it fails, a text fallback.
func (s *MetaWhatsAppService) HandleMessage(ctx context.Context, msg models.InboundMessage) models.ReplyReport {
	receivedAt := s.now()

	s.logger.Info("inbound message",
		zap.String("tag", tagInboundMessage),
		zap.String("from", msg.SenderID),
		zap.String("message_id", msg.MessageID),
		zap.String("type", msg.Type),
		zap.String("kind", string(msg.Kind)),
		zap.String("preview", msg.Preview()))

	report := s.reply(ctx, msg)
	s.activity.RecordDecision(report.Decision)

	s.logger.Info("inbound message answered",
		zap.String("from", msg.SenderID),
		zap.String("decision", string(report.Decision)),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("attempts", report.Attempts))

	if s.journal != nil {
		jctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		defer cancel()
		if err := s.journal.Record(jctx, receivedAt, report); err != nil {
			s.logger.Warn("failed to journal inbound message", zap.Error(err), zap.String("from", msg.SenderID))
		}
	}

	return report
}

func (s *MetaWhatsAppService) reply(ctx context.Context, msg models.InboundMessage) models.ReplyReport {
	report := models.ReplyReport{Message: msg}

	if selection, ok := autoreply.ExtractSelection(msg); ok {
		report.Selection = selection
		report.Decision = autoreply.SelectReply(selection)
		return s.textReply(ctx, report)
	}

	if msg.TextBody != "" {
		report.Selection = msg.TextBody
		report.Decision = autoreply.SelectReply(msg.TextBody)
		if report.Decision != models.ReplyGenericGreeting {
			return s.textReply(ctx, report)
		}
		return s.templateReply(ctx, report, autoreply.Body(models.ReplyGenericGreeting))
	}

	report.Decision = models.ReplyGenericGreeting
	return s.templateReply(ctx, report, autoreply.HelpBody)
}

func (s *MetaWhatsAppService) textReply(ctx context.Context, report models.ReplyReport) models.ReplyReport {
	res := s.sendText(ctx, report.Message.SenderID, autoreply.Body(report.Decision))
	report.Attempts = 1
	report.Outcome = models.OutcomeText
	if !res.Succeeded {
		report.Outcome = models.OutcomeFailed
	}
	return report
}

func (s *MetaWhatsAppService) templateReply(ctx context.Context, report models.ReplyReport, fallbackBody string) models.ReplyReport {
	to := report.Message.SenderID

	res := s.sendTemplate(ctx, to)
	report.Attempts = 1
	if res.Succeeded {
		report.Outcome = models.OutcomeTemplate
		return report
	}

	s.activity.RecordFallback()
	s.logger.Warn("template send failed, falling back to text",
		zap.String("to", to),
		zap.String("template", s.cfg.TemplateName),
		zap.Int("status", res.HTTPStatus))

	fallback := s.sendText(ctx, to, fallbackBody)
	report.Attempts = 2
	report.Outcome = models.OutcomeTemplateFallback
	if !fallback.Succeeded {
		report.Outcome = models.OutcomeFailed
	}
	return report
}

func (s *MetaWhatsAppService) sendText(ctx context.Context, to, body string) models.SendResult {
	res := s.sender.SendText(ctx, to, body)
	s.activity.RecordSend("text", res.Succeeded)
	return res
}

func (s *MetaWhatsAppService) sendTemplate(ctx context.Context, to string) models.SendResult {
	res := s.sender.SendTemplate(ctx, to, s.cfg.TemplateName, s.cfg.TemplateLanguage)
	s.activity.RecordSend("template", res.Succeeded)
	return res
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	res := s.sendText(context.WithoutCancel(ctx), req.To, req.Message)
	if !res.Succeeded {
		if res.Err != nil {
			return fmt.Errorf("send outbound to %s: %w", req.To, res.Err)
		}
		return fmt.Errorf("send outbound to %s: status %d", req.To, res.HTTPStatus)
	}
	return nil
}

func acknowledged() models.Acknowledgement {
	return models.Acknowledgement{StatusCode: http.StatusOK}
}

type noopActivity struct{}

func (noopActivity) RecordEvent(models.EventCategory) {}
func (noopActivity) RecordDecision(models.ReplyDecision) {}
func (noopActivity) RecordSend(string, bool) {}
func (noopActivity) RecordFallback() {}
func (noopActivity) RecordFailedStatus() {}
