package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	client "github.com/mamadbah2/eurocam-webhook/pkg/clients/whatsapp"
)

// Relay forwards raw Graph API calls.
type Relay interface {
	Forward(ctx context.Context, req client.ForwardRequest) (*client.ForwardResponse, error)
}

// ProxyHandler exposes the Graph relay over HTTP.
type ProxyHandler struct {
	relay  Relay
	logger *zap.Logger
}

// NewProxyHandler constructs the relay adapter.
func NewProxyHandler(relay Relay, logger *zap.Logger) *ProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyHandler{relay: relay, logger: logger}
}

// Forward relays the request to the Graph API and mirrors the upstream answer.
func (h *ProxyHandler) Forward(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	path := c.Param("path")
	if q := c.Request.URL.RawQuery; q != "" {
		path += "?" + q
	}

	resp, err := h.relay.Forward(c.Request.Context(), client.ForwardRequest{
		Method:        c.Request.Method,
		Path:          path,
		Authorization: c.GetHeader("Authorization"),
		ContentType:   c.ContentType(),
		Body:          body,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "proxy_failed", "detail": err.Error()})
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}
