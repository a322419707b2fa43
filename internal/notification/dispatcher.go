// Package notification turns relayed appointment events into patient emails.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
)

type Dispatcher struct {
	broker messaging.Broker
	mailer email.Service
	log    *zap.Logger
}

func NewDispatcher(broker messaging.Broker, mailer email.Service, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{broker: broker, mailer: mailer, log: log}
}

// Run consumes appointment events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("notification dispatcher started", zap.Strings("channels", model.AppointmentEvents))
	return messaging.Consume(ctx, d.broker, model.AppointmentEvents,
		func(raw []byte) error { return d.Handle(ctx, raw) },
		func(err error) { d.log.Error("notification dispatch failed", zap.Error(err)) },
	)
}

// Handle decodes one broker message and emails the patient. Events without
// a recipient are skipped.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) error {
	var msg model.EventMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to decode event message: %w", err)
	}

	var notice model.AppointmentNotice
	if err := json.Unmarshal(msg.Payload, &notice); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}
	if notice.PatientEmail == "" {
		d.log.Debug("event has no recipient",
			zap.String("event_id", msg.ID.String()),
			zap.String("event_type", msg.Type),
		)
		return nil
	}

	subject, body, ok := compose(msg.Type, notice)
	if !ok {
		return nil
	}
	if err := d.mailer.Send(ctx, notice.PatientEmail, subject, body); err != nil {
		return err
	}

	d.log.Info("notification sent",
		zap.String("event_id", msg.ID.String()),
		zap.String("event_type", msg.Type),
		zap.String("appointment_id", notice.ID.String()),
	)
	return nil
}

func compose(eventType string, n model.AppointmentNotice) (subject, body string, ok bool) {
	when := fmt.Sprintf("%s at %s", n.AppointmentDate, n.AppointmentTime)
	greeting := fmt.Sprintf("Dear %s,\n\n", n.PatientName)

	switch eventType {
	case model.EventAppointmentBooked:
		return "Appointment requested",
			greeting + fmt.Sprintf("Your appointment with %s on %s has been requested and is awaiting confirmation.\n", n.DoctorName, when), true
	case model.EventAppointmentConfirmed:
		return "Appointment confirmed",
			greeting + fmt.Sprintf("%s has confirmed your appointment on %s.\n", n.DoctorName, when), true
	case model.EventAppointmentCancelled:
		return "Appointment cancelled",
			greeting + fmt.Sprintf("Your appointment with %s on %s has been cancelled.\n", n.DoctorName, when), true
	case model.EventAppointmentCompleted:
		return "Appointment completed",
			greeting + fmt.Sprintf("Thank you for visiting %s on %s.\n", n.DoctorName, when), true
	case model.EventAppointmentRescheduled:
		return "Appointment rescheduled",
			greeting + fmt.Sprintf("Your appointment with %s has moved to %s.\n", n.DoctorName, when), true
	}
	return "", "", false
}
