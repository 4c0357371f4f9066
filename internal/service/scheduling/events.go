package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/store"
	"clinicsched/backend/internal/telemetry"
)

const (
	EventAppointmentBooked      = "appointment.booked.v1"
	EventAppointmentRescheduled = "appointment.rescheduled.v1"
	EventAppointmentCancelled   = "appointment.cancelled.v1"

	aggregateAppointment = "appointment"
)

type appointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	Number        int       `json:"number"`
	WorkerID      string    `json:"worker_id"`
	LocationID    string    `json:"location_id"`
	Day           string    `json:"day"`
	TimeIn        string    `json:"time_in"`
	TimeOut       string    `json:"time_out"`
	Title         string    `json:"title"`
	CreatorID     *string   `json:"creator_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (s *Service) recordEvent(ctx context.Context, tx store.SchedulingTx, eventType string, a domain.Appointment) error {
	now := s.now()
	payload, err := json.Marshal(appointmentEvent{
		AppointmentID: a.ID.String(),
		Number:        a.Number,
		WorkerID:      a.WorkerID.String(),
		LocationID:    a.LocationID.String(),
		Day:           domain.DateOf(a.Day).Format(time.DateOnly),
		TimeIn:        a.TimeIn.String(),
		TimeOut:       a.TimeOut.String(),
		Title:         a.Title,
		CreatorID:     a.CreatorID,
		OccurredAt:    now,
	})
	if err != nil {
		return err
	}
	traceparent, tracestate := telemetry.TraceContextStrings(ctx)
	return tx.InsertOutboxEvent(ctx, store.OutboxEvent{
		EventType:     eventType,
		AggregateType: aggregateAppointment,
		AggregateID:   a.ID,
		Payload:       payload,
		Traceparent:   traceparent,
		Tracestate:    tracestate,
		CreatedAt:     now,
	})
}
