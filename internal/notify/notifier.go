package notify

import (
	"context"

	"github.com/mindcare-tw/mindcare-backend/pkg/model"
)

// Notifier renders and sends appointment lifecycle e-mails
type Notifier struct {
	mailer     Mailer
	adminEmail string
}

// NewNotifier creates a new Notifier. adminEmail receives new-booking
// notices; leave it empty to skip them.
func NewNotifier(mailer Mailer, adminEmail string) *Notifier {
	return &Notifier{mailer: mailer, adminEmail: adminEmail}
}

// Created notifies the clinic and acknowledges the client
func (n *Notifier) Created(ctx context.Context, appt *model.Appointment) error {
	if n.adminEmail != "" {
		msg, err := AppointmentCreated(n.adminEmail, appt)
		if err != nil {
			return err
		}
		if err := n.mailer.Send(ctx, msg); err != nil {
			return err
		}
	}

	msg, err := AppointmentReceived(appt)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

// Confirmed tells the client the scheduled slot
func (n *Notifier) Confirmed(ctx context.Context, appt *model.Appointment) error {
	msg, err := AppointmentConfirmed(appt)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

// Rejected tells the client the request was declined
func (n *Notifier) Rejected(ctx context.Context, appt *model.Appointment) error {
	msg, err := AppointmentRejected(appt)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

// Cancelled tells the client and therapist the appointment is off
func (n *Notifier) Cancelled(ctx context.Context, appt *model.Appointment, therapistEmail *string) error {
	msg, err := AppointmentCancelled(appt, therapistEmail)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}
