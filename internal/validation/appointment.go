package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/overlap"
	"clinicsched/backend/internal/store"
)

// AppointmentValidator checks a dated booking. The first failing step wins: fields, range,
// worker and location existence, place conflict, worker conflict, availability containment.
type AppointmentValidator struct{}

func (AppointmentValidator) Validate(ctx context.Context, r store.AppointmentReader, cand domain.Appointment) error {
	if err := Fields(cand); err != nil {
		return err
	}
	if cand.TimeOut <= cand.TimeIn {
		return invalidRange()
	}

	ok, err := r.WorkerExists(ctx, cand.WorkerID)
	if err != nil {
		return fmt.Errorf("lookup worker: %w", err)
	}
	if !ok {
		return unknownResource("worker_id", "staff")
	}
	ok, err = r.LocationExists(ctx, cand.LocationID)
	if err != nil {
		return fmt.Errorf("lookup location: %w", err)
	}
	if !ok {
		return unknownResource("location_id", "place")
	}

	span := appointmentSpan(cand)

	atPlace, err := r.ListLocationAppointments(ctx, cand.LocationID, domain.DateOf(cand.Day))
	if err != nil {
		return fmt.Errorf("list location appointments: %w", err)
	}
	res := overlap.Detect(span, sameDay(atPlace, cand), appointmentSpan)
	if first, ok := res.First(); ok {
		return appointmentOverlap(ReasonPlaceOverlap, res.Kind, first)
	}

	byWorker, err := r.ListWorkerAppointments(ctx, cand.WorkerID, domain.DateOf(cand.Day))
	if err != nil {
		return fmt.Errorf("list worker appointments: %w", err)
	}
	res = overlap.Detect(span, sameDay(byWorker, cand), appointmentSpan)
	if first, ok := res.First(); ok {
		return appointmentOverlap(ReasonWorkerOverlap, res.Kind, first)
	}

	intervals, err := r.ListWorkerIntervals(ctx, cand.WorkerID, cand.Weekday())
	if err != nil {
		return fmt.Errorf("list worker intervals: %w", err)
	}
	for _, iv := range intervals {
		if iv.Weekday == cand.Weekday() && iv.Covers(cand.TimeIn, cand.TimeOut) {
			return nil
		}
	}
	return outsideAvailability(cand)
}

func appointmentSpan(a domain.Appointment) overlap.Span {
	return overlap.Span{Start: a.StartInstant().Unix(), End: a.EndInstant().Unix()}
}

// sameDay drops the candidate itself and anything the store returned for another date.
func sameDay(appts []domain.Appointment, cand domain.Appointment) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(appts))
	for _, a := range appts {
		if cand.ID != uuid.Nil && a.ID == cand.ID {
			continue
		}
		if !a.SameDay(cand) {
			continue
		}
		out = append(out, a)
	}
	return out
}
