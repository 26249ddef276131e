package mailer

import (
	"fmt"
	"time"

	"github.com/clinicdesk/appointments/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendBookingConfirmation(toEmail, toName string, startAt, endAt time.Time) error {
	logger.Info("📧 [DEV MAIL] Booking Confirmation",
		"to", toEmail,
		"name", toName,
		"start_at", startAt,
		"end_at", endAt,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 BOOKING CONFIRMATION (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Your appointment is confirmed\n"+
		"\n"+
		"Appointment: %s – %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName,
		startAt.Format("Mon, 2 Jan 2006 15:04"), endAt.Format("15:04"))

	return nil
}
