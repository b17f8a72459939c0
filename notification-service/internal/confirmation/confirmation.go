// Package confirmation renders the order confirmation email for a checkout.
package confirmation

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/fjod/go_eshop/notification-service/internal/email"
	"github.com/fjod/go_eshop/pkg/events"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("order_confirmation.html.tmpl").
			Funcs(htmltemplate.FuncMap{"money": money}).
			ParseFS(templateFS, "templates/order_confirmation.html.tmpl"))
	textTmpl = texttemplate.Must(texttemplate.New("order_confirmation.txt.tmpl").
			Funcs(texttemplate.FuncMap{"money": money}).
			ParseFS(templateFS, "templates/order_confirmation.txt.tmpl"))
)

func Subject(ev events.CheckoutEvent) string {
	return "Order confirmation for " + ev.UserName
}

// Build renders both bodies. User-supplied names are escaped in the HTML part.
func Build(ev events.CheckoutEvent) (email.Message, error) {
	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, ev); err != nil {
		return email.Message{}, err
	}
	if err := textTmpl.Execute(&text, ev); err != nil {
		return email.Message{}, err
	}
	return email.Message{
		To:      ev.EmailAddress,
		Subject: Subject(ev),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
