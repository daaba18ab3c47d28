package whatsapp

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
	client "github.com/mamadbah2/eurocam-webhook/pkg/clients/whatsapp"
)

const (
	tagMetaRequest  = "META_REQ"
	tagMetaResponse = "META_RES"
)

// Sender posts replies to the Graph API. Failures come back as SendResult values with
// Succeeded=false; implementations never return errors or panic for upstream problems.
type Sender interface {
	SendText(ctx context.Context, to, body string) models.SendResult
	SendTemplate(ctx context.Context, to, templateName, languageCode string) models.SendResult
}

// GraphSender is the Sender backed by the WhatsApp Cloud API client.
type GraphSender struct {
	client client.Client
	logger *zap.Logger
}

// NewGraphSender wires a sender around the API client.
func NewGraphSender(c client.Client, logger *zap.Logger) *GraphSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphSender{client: c, logger: logger}
}

// SendText posts a free-form text message.
func (s *GraphSender) SendText(ctx context.Context, to, body string) models.SendResult {
	req := client.SendTextMessageRequest{To: to, Body: body}
	s.logger.Info("outbound request", zap.String("tag", tagMetaRequest), zap.Any("payload", client.NewTextPayload(req)))

	resp, err := s.client.SendTextMessage(ctx, req)
	return s.result(to, "text", resp, err)
}

// SendTemplate posts an approved template message.
func (s *GraphSender) SendTemplate(ctx context.Context, to, templateName, languageCode string) models.SendResult {
	req := client.SendTemplateMessageRequest{To: to, TemplateName: templateName, LanguageCode: languageCode}
	s.logger.Info("outbound request", zap.String("tag", tagMetaRequest), zap.Any("payload", client.NewTemplatePayload(req)))

	resp, err := s.client.SendTemplateMessage(ctx, req)
	return s.result(to, "template", resp, err)
}

func (s *GraphSender) result(to, kind string, resp *client.SendMessageResponse, err error) models.SendResult {
	if err == nil {
		s.logger.Info("outbound response",
			zap.String("tag", tagMetaResponse),
			zap.String("to", to),
			zap.String("type", kind),
			zap.Int("status", resp.StatusCode),
			zap.String("body", resp.RawBody))
		return models.SendResult{
			Succeeded:  true,
			HTTPStatus: resp.StatusCode,
			RawBody:    resp.RawBody,
			MessageID:  resp.MessageID(),
		}
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		s.logger.Error("outbound request rejected",
			zap.String("tag", tagMetaResponse),
			zap.String("to", to),
			zap.String("type", kind),
			zap.Int("status", apiErr.StatusCode),
			zap.Int("code", apiErr.Code),
			zap.String("body", apiErr.RawBody),
			zap.Error(err))
		return models.SendResult{HTTPStatus: apiErr.StatusCode, RawBody: apiErr.RawBody, Err: err}
	}

	s.logger.Error("outbound request failed",
		zap.String("tag", tagMetaResponse),
		zap.String("to", to),
		zap.String("type", kind),
		zap.Error(err))
	return models.SendResult{Err: err}
}
