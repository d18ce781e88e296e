package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/lotusair/booking/config"
	"github.com/lotusair/booking/internal/kafka"
	"gopkg.in/gomail.v2"
)

var bodyTemplates = template.Must(template.New("emails").Parse(`
{{define "member_registered"}}
<p>Hello {{.Name}},</p>
<p>Welcome to Lotus Air. Please confirm your email address:</p>
<p><a href="{{.BaseURL}}/verify?token={{.Token}}">Verify my account</a></p>
{{end}}

{{define "password_reset"}}
<p>Hello {{.Name}},</p>
<p>We received a request to reset your password:</p>
<p><a href="{{.BaseURL}}/reset-password?token={{.Token}}">Choose a new password</a></p>
<p>If you did not request this, you can ignore this message.</p>
{{end}}

{{define "booking_confirmed"}}
<p>Hello {{.Name}},</p>
<p>Your booking <strong>{{.Reference}}</strong> is confirmed.</p>
<p>Total paid: {{.Total}} {{.Currency}}.</p>
{{end}}

{{define "booking_cancelled"}}
<p>Hello {{.Name}},</p>
<p>Your booking <strong>{{.Reference}}</strong> has been cancelled and your payment refunded.</p>
{{end}}
`))

var subjects = map[string]string{
	kafka.EventMemberRegistered: "Verify your Lotus Air account",
	kafka.EventPasswordReset:    "Reset your Lotus Air password",
	kafka.EventBookingConfirmed: "Your booking is confirmed",
	kafka.EventBookingCancelled: "Your booking has been cancelled",
}

type Sender struct {
	cfg config.SMTPConfig
}

func NewSender(cfg config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

type templateData struct {
	kafka.NotificationEvent
	BaseURL string
}

func (s *Sender) Send(_ context.Context, event kafka.NotificationEvent) error {
	subject, ok := subjects[event.Type]
	if !ok {
		return fmt.Errorf("unknown notification type %q", event.Type)
	}

	var body bytes.Buffer
	if err := bodyTemplates.ExecuteTemplate(&body, event.Type, templateData{NotificationEvent: event, BaseURL: s.cfg.BaseURL}); err != nil {
		return fmt.Errorf("render %s email: %w", event.Type, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", event.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s email to %s: %w", event.Type, event.Email, err)
	}
	return nil
}
