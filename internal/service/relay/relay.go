package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	client "github.com/mamadbah2/eurocam-webhook/pkg/clients/whatsapp"
)

const tagProxy = "WABA_PROXY"

// Forwarder performs the raw upstream call.
type Forwarder interface {
	Forward(ctx context.Context, req client.ForwardRequest) (*client.ForwardResponse, error)
}

// Service relays arbitrary Graph API calls and logs each one.
type Service struct {
	forwarder Forwarder
	logger    *zap.Logger
}

// NewService wires a relay around the WhatsApp client.
func NewService(forwarder Forwarder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{forwarder: forwarder, logger: logger}
}

// Forward sends req upstream unchanged. Upstream error statuses are returned as
// responses; only transport failures produce an error.
func (s *Service) Forward(ctx context.Context, req client.ForwardRequest) (*client.ForwardResponse, error) {
	start := time.Now()

	s.logger.Info("proxy request",
		zap.String("tag", tagProxy),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Bool("caller_auth", req.Authorization != ""),
		zap.String("content_type", req.ContentType),
		bodyField("body", req.Body))

	resp, err := s.forwarder.Forward(ctx, req)
	if err != nil {
		s.logger.Error("proxy request failed",
			zap.String("tag", tagProxy),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		return nil, fmt.Errorf("relay %s %s: %w", req.Method, req.Path, err)
	}

	s.logger.Info("proxy response",
		zap.String("tag", tagProxy),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.ContentType),
		bodyField("body", resp.Body),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}

// bodyField logs JSON bodies as structured values and anything else as text.
func bodyField(key string, body []byte) zap.Field {
	if len(body) > 0 && json.Valid(body) {
		return zap.Any(key, json.RawMessage(body))
	}
	return zap.ByteString(key, body)
}
