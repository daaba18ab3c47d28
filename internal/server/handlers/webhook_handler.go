package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
	service "github.com/mamadbah2/eurocam-webhook/internal/service/whatsapp"
)

// WebhookHandler handles inbound and outbound WhatsApp HTTP events.
type WebhookHandler struct {
	svc    service.MessagingService
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// Verify responds to Meta's webhook verification challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	req := models.NewVerificationRequest(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"))

	writeAck(c, h.svc.Dispatch(c.Request.Context(), req))
}

// Receive ingests webhook POST callbacks from Meta. Every body is acknowledged with 200,
// malformed JSON included, so Meta never retries.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.Warn("failed reading webhook body", zap.Error(err))
	}

	event, err := models.ParseWebhookEvent(body)
	if err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err), zap.Int("bytes", len(body)))
	}

	writeAck(c, h.svc.Dispatch(c.Request.Context(), event))
}

// ReceiveStatus logs every status and message in the body without replying.
func (h *WebhookHandler) ReceiveStatus(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.Warn("failed reading status body", zap.Error(err))
	}

	h.svc.ObserveDeliveryReport(c.Request.Context(), body)
	c.Status(http.StatusOK)
}

// SendMessage allows sending outbound automation or manual responses.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}

	c.Status(http.StatusAccepted)
}

func writeAck(c *gin.Context, ack models.Acknowledgement) {
	if ack.Body == "" {
		c.Status(ack.StatusCode)
		return
	}
	c.String(ack.StatusCode, ack.Body)
}
