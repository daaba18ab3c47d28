package autoreply

import "github.com/mamadbah2/eurocam-webhook/internal/domain/models"

const (
	ventasBody = "📍 *Sucursales de Ventas - EUROCAM*\n" +
		"🏢 Mataderos: +54 9 11 7361-4719\n" +
		"🏢 Canning:   +54 9 11 7063-5836"

	adminBody = "💼 *Administración - EUROCAM*\n" +
		"+54 9 11 2264-5064"

	greetingBody = "👋 Hola, este número es el canal automatizado de *EUROCAM*.\n" +
		"Escribí o elegí una opción:\n" +
		"• *Ventas*\n" +
		"• *Administración*"

	// HelpBody answers messages that carry neither text nor a button (media, location...).
	HelpBody = "👋 Hola, este número es el canal automatizado de *EUROCAM*.\n" +
		"Escribí *Ventas* o *Administración* para continuar."
)

var replyBodies = map[models.ReplyDecision]string{
	models.ReplyVentasInfo:      ventasBody,
	models.ReplyAdminInfo:       adminBody,
	models.ReplyGenericGreeting: greetingBody,
}

// Body returns the text sent for a decision. Unknown decisions get the greeting.
func Body(decision models.ReplyDecision) string {
	if body, ok := replyBodies[decision]; ok {
		return body
	}
	return greetingBody
}
