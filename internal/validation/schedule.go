package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/overlap"
	"clinicsched/backend/internal/store"
)

// ScheduleValidator checks a weekly availability interval. The first failing step wins:
// fields, range, worker existence, weekday, overlap with the worker's other intervals on the
// same weekday.
type ScheduleValidator struct{}

func (ScheduleValidator) Validate(ctx context.Context, r store.ScheduleReader, cand domain.AvailabilityInterval) error {
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

	if !cand.Weekday.Valid() {
		return invalidWeekday(cand.Weekday)
	}

	existing, err := r.ListWorkerIntervals(ctx, cand.WorkerID, cand.Weekday)
	if err != nil {
		return fmt.Errorf("list worker intervals: %w", err)
	}
	existing = withoutInterval(existing, cand.ID)

	res := overlap.Detect(clockSpan(cand.TimeIn, cand.TimeOut), existing, intervalSpan)
	if first, ok := res.First(); ok {
		return intervalOverlap(res.Kind, first)
	}
	return nil
}

func clockSpan(in, out domain.Clock) overlap.Span {
	return overlap.Span{Start: in.Seconds(), End: out.Seconds()}
}

func intervalSpan(iv domain.AvailabilityInterval) overlap.Span {
	return clockSpan(iv.TimeIn, iv.TimeOut)
}

func withoutInterval(ivs []domain.AvailabilityInterval, id uuid.UUID) []domain.AvailabilityInterval {
	if id == uuid.Nil {
		return ivs
	}
	out := make([]domain.AvailabilityInterval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.ID != id {
			out = append(out, iv)
		}
	}
	return out
}
