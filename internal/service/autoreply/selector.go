// Package autoreply turns inbound WhatsApp messages into one of the fixed EUROCAM replies.
package autoreply

import (
	"strings"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
	"github.com/mamadbah2/eurocam-webhook/pkg/textnorm"
)

const (
	ventasKeyword = "venta"
	adminKeyword  = "administracion"
)

// SelectReply maps raw user text to a reply. "venta" is checked before "administracion";
// anything else, the empty string included, gets the generic greeting.
func SelectReply(raw string) models.ReplyDecision {
	t := textnorm.Normalize(raw)

	switch {
	case strings.Contains(t, ventasKeyword):
		return models.ReplyVentasInfo
	case strings.Contains(t, adminKeyword):
		return models.ReplyAdminInfo
	default:
		return models.ReplyGenericGreeting
	}
}

// ExtractSelection returns the lower-cased button choice of a message, if it has one.
// Free text is not a selection; callers fall through to SelectReply on TextBody.
func ExtractSelection(msg models.InboundMessage) (string, bool) {
	switch msg.Kind {
	case models.KindButtonQuickReply:
		if msg.ButtonText != "" {
			return strings.ToLower(msg.ButtonText), true
		}
	case models.KindInteractiveButtonReply:
		if msg.ButtonText != "" {
			return strings.ToLower(msg.ButtonText), true
		}
		if msg.ButtonID != "" {
			return strings.ToLower(msg.ButtonID), true
		}
	}
	return "", false
}
