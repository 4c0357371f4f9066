package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"clinicsched/backend/internal/domain"
)

// SchedulingTx is one locked transaction of the write path. Validators read through it and
// the write that follows commits atomically with those reads.
type SchedulingTx interface {
	AppointmentReader

	GetInterval(ctx context.Context, id uuid.UUID) (domain.AvailabilityInterval, error)
	InsertInterval(ctx context.Context, iv domain.AvailabilityInterval) (domain.AvailabilityInterval, error)
	UpdateInterval(ctx context.Context, iv domain.AvailabilityInterval) (domain.AvailabilityInterval, error)
	DeleteInterval(ctx context.Context, id uuid.UUID) error

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	MaxAppointmentNumber(ctx context.Context) (int, error)

	InsertOutboxEvent(ctx context.Context, ev OutboxEvent) error
}

// Repository is the persistence collaborator of the scheduling service.
type Repository interface {
	// InTransaction runs fn in one transaction after taking the given resource locks.
	InTransaction(ctx context.Context, locks LockKeys, fn func(ctx context.Context, tx SchedulingTx) error) error

	Snapshot() AppointmentReader

	CreateWorker(ctx context.Context, w domain.Worker) (domain.Worker, error)
	ListWorkers(ctx context.Context, speciality string) ([]domain.Worker, error)
	CreateLocation(ctx context.Context, l domain.Location) (domain.Location, error)
	ListLocations(ctx context.Context) ([]domain.Location, error)

	ListSchedule(ctx context.Context, filter ScheduleFilter) ([]domain.AvailabilityInterval, error)
	ListAppointments(ctx context.Context, day time.Time) ([]domain.Appointment, error)
}

type ScheduleFilter struct {
	Speciality string
	Weekday    domain.Weekday
}

// LockKeys names the resources a transaction serializes on.
type LockKeys struct {
	Workers   []uuid.UUID
	Locations []uuid.UUID
	Numbers   bool
}

// Keys returns the advisory lock keys in acquisition order: appointment numbering first, then
// workers, then locations, each group sorted and deduplicated.
func (k LockKeys) Keys() []string {
	var out []string
	if k.Numbers {
		out = append(out, "appointment-number")
	}
	out = append(out, sortedKeys("worker:", k.Workers)...)
	out = append(out, sortedKeys("location:", k.Locations)...)
	return out
}

func sortedKeys(prefix string, ids []uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, prefix+id.String())
	}
	sort.Strings(keys)
	return keys
}

// OutboxEvent is a domain event stored with the write that produced it and relayed later.
type OutboxEvent struct {
	ID            uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   uuid.UUID
	Payload       json.RawMessage
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type OutboxRepository interface {
	// ClaimPending locks up to limit unpublished events for the lifetime of fn and marks the
	// ids fn returns as published.
	ClaimPending(ctx context.Context, limit int, fn func(ctx context.Context, events []OutboxEvent) ([]uuid.UUID, error)) (int, error)
}
