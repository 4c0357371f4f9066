package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicsched/backend/internal/domain"
)

// ScheduleReader is the snapshot the schedule validator reads.
type ScheduleReader interface {
	WorkerExists(ctx context.Context, workerID uuid.UUID) (bool, error)
	ListWorkerIntervals(ctx context.Context, workerID uuid.UUID, weekday domain.Weekday) ([]domain.AvailabilityInterval, error)
}

// AppointmentReader is the snapshot the appointment validator reads. The appointment lists
// are already restricted to the calendar date of day.
type AppointmentReader interface {
	ScheduleReader
	LocationExists(ctx context.Context, locationID uuid.UUID) (bool, error)
	ListLocationAppointments(ctx context.Context, locationID uuid.UUID, day time.Time) ([]domain.Appointment, error)
	ListWorkerAppointments(ctx context.Context, workerID uuid.UUID, day time.Time) ([]domain.Appointment, error)
}
