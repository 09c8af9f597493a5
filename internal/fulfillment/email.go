package fulfillment

import (
	"fmt"
	"html"
	"strings"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
)

// renderOrderEmail produces the fulfillment email body. Kept as plain string
// assembly; the layout is a short receipt, not a templated campaign.
func renderOrderEmail(order *models.Order, attachedCount int) string {
	var b strings.Builder

	name := "Hola"
	if order.CustomerName != nil && strings.TrimSpace(*order.CustomerName) != "" {
		name = "Hola " + html.EscapeString(strings.TrimSpace(*order.CustomerName))
	}

	b.WriteString("<div style=\"font-family:sans-serif;max-width:600px\">")
	b.WriteString(fmt.Sprintf("<h2>%s, gracias por tu compra!</h2>", name))
	b.WriteString(fmt.Sprintf("<p>Tu pedido <strong>#%s</strong> fue confirmado.</p>", order.ShortNumber()))

	b.WriteString("<ul>")
	for _, item := range order.Items {
		b.WriteString(fmt.Sprintf("<li>%s &mdash; $%s</li>", html.EscapeString(item.Title), item.Price.StringFixed(2)))
	}
	b.WriteString("</ul>")

	b.WriteString(fmt.Sprintf("<p><strong>Total: $%s</strong></p>", order.Total.StringFixed(2)))

	if attachedCount == len(order.Items) {
		b.WriteString("<p>Encontrá tus archivos de bordado adjuntos a este correo.</p>")
	} else {
		b.WriteString("<p>Adjuntamos los archivos disponibles. Si falta alguno, respondé este correo y te lo enviamos enseguida.</p>")
	}

	b.WriteString("<p>Archivo Bordado</p>")
	b.WriteString("</div>")

	return b.String()
}
