package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var contactTmpl = template.Must(template.New("contact").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #16122B; padding: 20px; text-align: center;">
    <h1 style="color: #FCEE21; margin: 0;">Nuevo mensaje de contacto</h1>
  </div>
  <div style="padding: 30px; background: #f9f9f9;">
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td style="font-weight: bold; color: #662D91;">Nombre:</td><td>{{.Name}}</td></tr>
      <tr><td style="font-weight: bold; color: #662D91;">Email:</td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
      <tr><td style="font-weight: bold; color: #662D91;">Teléfono:</td><td><a href="tel:{{.Phone}}">{{.Phone}}</a></td></tr>
      <tr><td style="font-weight: bold; color: #662D91;">Asunto:</td><td>{{.Subject}}</td></tr>
    </table>
    <h3 style="color: #16122B;">Mensaje:</h3>
    <div style="background: white; padding: 15px; border-left: 4px solid #FCEE21;">
      {{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}
    </div>
  </div>
</div>`))

var proposalTmpl = template.Must(template.New("proposal").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #16122B;">{{.Title}}</h2>
  <p><strong>Cliente:</strong> {{.ClientName}}</p>
  <p><strong>Servicio:</strong> {{.ServiceLabel}}</p>
  <p><strong>Importe:</strong> {{.Price}} €</p>
  {{if .SignatureName}}<p><strong>Firmado por:</strong> {{.SignatureName}}</p>{{end}}
  <p><a href="{{.AdminURL}}">Ver propuesta en el panel</a></p>
</div>`))

// ContactForm содержит сообщение из формы обратной связи.
type ContactForm struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// ContactMessage собирает письмо с экранированными данными формы.
func ContactMessage(to []string, f ContactForm) (Message, error) {
	var buf bytes.Buffer
	err := contactTmpl.Execute(&buf, struct {
		ContactForm
		Lines []string
	}{f, strings.Split(f.Message, "\n")})
	if err != nil {
		return Message{}, fmt.Errorf("render contact email: %w", err)
	}

	return Message{
		To:      to,
		ReplyTo: f.Email,
		Subject: "[WellnessReal] " + f.Subject,
		HTML:    buf.String(),
	}, nil
}

// EventKind обозначает событие жизненного цикла, о котором уведомляется администратор.
type EventKind string

const (
	EventSigned         EventKind = "signed"
	EventTransferChosen EventKind = "transfer_chosen"
	EventStripePaid     EventKind = "stripe_paid"
)

var eventTitles = map[EventKind]string{
	EventSigned:         "Contrato firmado",
	EventTransferChosen: "Pago por transferencia pendiente",
	EventStripePaid:     "Pago recibido con tarjeta",
}

// ProposalEvent описывает уведомление администратору.
type ProposalEvent struct {
	Kind          EventKind
	ClientName    string
	ServiceLabel  string
	Price         string
	SignatureName string
	AdminURL      string
}

// ProposalNotification собирает уведомление о событии предложения.
func ProposalNotification(to []string, ev ProposalEvent) (Message, error) {
	title, ok := eventTitles[ev.Kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	var buf bytes.Buffer
	err := proposalTmpl.Execute(&buf, struct {
		ProposalEvent
		Title string
	}{ev, title})
	if err != nil {
		return Message{}, fmt.Errorf("render proposal email: %w", err)
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("[WellnessReal] %s: %s", title, ev.ClientName),
		HTML:    buf.String(),
	}, nil
}
