package mailer

import "time"

type Service interface {
	SendBookingConfirmation(toEmail, toName string, startAt, endAt time.Time) error
}
