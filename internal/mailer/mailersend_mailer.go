package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendBookingConfirmation(toEmail, toName string, startAt, endAt time.Time) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	when := fmt.Sprintf("%s – %s", startAt.Format("Monday, 2 January 2006 15:04"), endAt.Format("15:04"))

	subject := "Your appointment is confirmed"
	html := fmt.Sprintf(`
		<h2>Appointment confirmed</h2>
		<p>Hi %s,</p>
		<p>Your appointment has been booked for:</p>
		<p><strong>%s</strong></p>
		<p>If you cannot make it, please contact the clinic.</p>
	`, toName, when)

	text := fmt.Sprintf("Hi %s,\n\nYour appointment has been booked for: %s\n\nIf you cannot make it, please contact the clinic.", toName, when)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
