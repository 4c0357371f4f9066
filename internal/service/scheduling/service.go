package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/store"
	"clinicsched/backend/internal/validation"
)

// Service is the write path. Every create and full update validates inside a transaction that
// holds the locks of the worker and location involved, so the validator's reads cannot go
// stale before the write commits.
type Service struct {
	repo         store.Repository
	schedules    validation.ScheduleValidator
	appointments validation.AppointmentValidator
	now          func() time.Time
}

func NewService(repo store.Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type WorkerInput struct {
	Name       string
	Speciality string
}

func (s *Service) CreateWorker(ctx context.Context, in WorkerInput) (domain.Worker, error) {
	w := domain.Worker{
		Name:       strings.TrimSpace(in.Name),
		Speciality: strings.TrimSpace(in.Speciality),
	}
	if err := validation.Fields(w); err != nil {
		return domain.Worker{}, err
	}
	return s.repo.CreateWorker(ctx, w)
}

func (s *Service) ListWorkers(ctx context.Context, speciality string) ([]domain.Worker, error) {
	return s.repo.ListWorkers(ctx, strings.TrimSpace(speciality))
}

type LocationInput struct {
	Room int
	Name string
}

func (s *Service) CreateLocation(ctx context.Context, in LocationInput) (domain.Location, error) {
	l := domain.Location{
		Room: in.Room,
		Name: strings.TrimSpace(in.Name),
	}
	if err := validation.Fields(l); err != nil {
		return domain.Location{}, err
	}
	return s.repo.CreateLocation(ctx, l)
}

func (s *Service) ListLocations(ctx context.Context) ([]domain.Location, error) {
	return s.repo.ListLocations(ctx)
}

type ScheduleInput struct {
	WorkerID uuid.UUID
	Weekday  domain.Weekday
	TimeIn   domain.Clock
	TimeOut  domain.Clock
}

func (in ScheduleInput) interval(id uuid.UUID) domain.AvailabilityInterval {
	return domain.AvailabilityInterval{
		ID:       id,
		WorkerID: in.WorkerID,
		Weekday:  in.Weekday,
		TimeIn:   in.TimeIn,
		TimeOut:  in.TimeOut,
	}
}

func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (domain.AvailabilityInterval, error) {
	cand := in.interval(uuid.Nil)

	var out domain.AvailabilityInterval
	err := s.repo.InTransaction(ctx, store.LockKeys{Workers: []uuid.UUID{in.WorkerID}}, func(ctx context.Context, tx store.SchedulingTx) error {
		if err := s.schedules.Validate(ctx, tx, cand); err != nil {
			return err
		}
		iv, err := tx.InsertInterval(ctx, cand)
		if err != nil {
			return err
		}
		out = iv
		return nil
	})
	if err != nil {
		return domain.AvailabilityInterval{}, err
	}
	return out, nil
}

// UpdateSchedule replaces every field of an interval. Only the target worker is locked:
// moving an interval away from a worker cannot create a conflict for that worker.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, in ScheduleInput) (domain.AvailabilityInterval, error) {
	if id == uuid.Nil {
		return domain.AvailabilityInterval{}, validation.InvalidField("id", "is required")
	}
	cand := in.interval(id)

	var out domain.AvailabilityInterval
	err := s.repo.InTransaction(ctx, store.LockKeys{Workers: []uuid.UUID{in.WorkerID}}, func(ctx context.Context, tx store.SchedulingTx) error {
		existing, err := tx.GetInterval(ctx, id)
		if err != nil {
			return err
		}
		if err := s.schedules.Validate(ctx, tx, cand); err != nil {
			return err
		}
		cand.CreatedAt = existing.CreatedAt
		iv, err := tx.UpdateInterval(ctx, cand)
		if err != nil {
			return err
		}
		out = iv
		return nil
	})
	if err != nil {
		return domain.AvailabilityInterval{}, err
	}
	return out, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validation.InvalidField("id", "is required")
	}
	return s.repo.InTransaction(ctx, store.LockKeys{}, func(ctx context.Context, tx store.SchedulingTx) error {
		return tx.DeleteInterval(ctx, id)
	})
}

func (s *Service) ListSchedule(ctx context.Context, speciality string, weekday domain.Weekday) ([]domain.AvailabilityInterval, error) {
	if weekday != 0 && !weekday.Valid() {
		return nil, validation.InvalidField("weekday", "must be between 1 and 7")
	}
	return s.repo.ListSchedule(ctx, store.ScheduleFilter{
		Speciality: strings.TrimSpace(speciality),
		Weekday:    weekday,
	})
}

// ValidateSchedule runs the validator against current data without writing. A non-nil id
// validates an update of that interval.
func (s *Service) ValidateSchedule(ctx context.Context, id uuid.UUID, in ScheduleInput) error {
	return s.schedules.Validate(ctx, s.repo.Snapshot(), in.interval(id))
}

type AppointmentInput struct {
	// Number zero asks for the next free number on create and keeps the stored one on update.
	Number     int
	WorkerID   uuid.UUID
	LocationID uuid.UUID
	Day        time.Time
	TimeIn     domain.Clock
	TimeOut    domain.Clock
	Title      string
	CreatorID  *string
}

func (in AppointmentInput) appointment(id uuid.UUID) domain.Appointment {
	var creator *string
	if in.CreatorID != nil {
		c := strings.TrimSpace(*in.CreatorID)
		if c != "" {
			creator = &c
		}
	}
	return domain.Appointment{
		ID:         id,
		Number:     in.Number,
		WorkerID:   in.WorkerID,
		LocationID: in.LocationID,
		Day:        domain.DateOf(in.Day),
		TimeIn:     in.TimeIn,
		TimeOut:    in.TimeOut,
		Title:      strings.TrimSpace(in.Title),
		CreatorID:  creator,
	}
}

func (in AppointmentInput) locks() store.LockKeys {
	return store.LockKeys{
		Workers:   []uuid.UUID{in.WorkerID},
		Locations: []uuid.UUID{in.LocationID},
		Numbers:   in.Number == 0,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, in AppointmentInput) (domain.Appointment, error) {
	if in.Number < 0 {
		return domain.Appointment{}, validation.InvalidField("number", "must be greater than 0")
	}
	cand := in.appointment(uuid.Nil)

	var out domain.Appointment
	err := s.repo.InTransaction(ctx, in.locks(), func(ctx context.Context, tx store.SchedulingTx) error {
		if cand.Number == 0 {
			n, err := nextNumber(ctx, tx)
			if err != nil {
				return err
			}
			cand.Number = n
		}
		if err := s.appointments.Validate(ctx, tx, cand); err != nil {
			return err
		}
		a, err := tx.InsertAppointment(ctx, cand)
		if err != nil {
			return err
		}
		if err := s.recordEvent(ctx, tx, EventAppointmentBooked, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in AppointmentInput) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validation.InvalidField("id", "is required")
	}
	if in.Number < 0 {
		return domain.Appointment{}, validation.InvalidField("number", "must be greater than 0")
	}
	cand := in.appointment(id)
	locks := in.locks()
	locks.Numbers = false

	var out domain.Appointment
	err := s.repo.InTransaction(ctx, locks, func(ctx context.Context, tx store.SchedulingTx) error {
		existing, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if cand.Number == 0 {
			cand.Number = existing.Number
		}
		if err := s.appointments.Validate(ctx, tx, cand); err != nil {
			return err
		}
		cand.CreatedAt = existing.CreatedAt
		a, err := tx.UpdateAppointment(ctx, cand)
		if err != nil {
			return err
		}
		if err := s.recordEvent(ctx, tx, EventAppointmentRescheduled, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validation.InvalidField("id", "is required")
	}
	return s.repo.InTransaction(ctx, store.LockKeys{}, func(ctx context.Context, tx store.SchedulingTx) error {
		existing, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, id); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, EventAppointmentCancelled, existing)
	})
}

func (s *Service) ListAppointments(ctx context.Context, day time.Time) ([]domain.Appointment, error) {
	if day.IsZero() {
		return nil, validation.InvalidField("day", "is required")
	}
	return s.repo.ListAppointments(ctx, domain.DateOf(day))
}

// ValidateAppointment runs the validator against current data without writing. A non-nil id
// validates an update of that appointment.
func (s *Service) ValidateAppointment(ctx context.Context, id uuid.UUID, in AppointmentInput) error {
	cand := in.appointment(id)
	if cand.Number == 0 {
		// the number is assigned at write time and is not part of the check
		cand.Number = 1
	}
	return s.appointments.Validate(ctx, s.repo.Snapshot(), cand)
}

// NextAppointmentNumber suggests the number a new booking would get. The suggestion is not
// reserved; CreateAppointment with Number zero assigns one under lock.
func (s *Service) NextAppointmentNumber(ctx context.Context) (int, error) {
	var n int
	err := s.repo.InTransaction(ctx, store.LockKeys{}, func(ctx context.Context, tx store.SchedulingTx) error {
		next, err := nextNumber(ctx, tx)
		if err != nil {
			return err
		}
		n = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func nextNumber(ctx context.Context, tx store.SchedulingTx) (int, error) {
	highest, err := tx.MaxAppointmentNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("max appointment number: %w", err)
	}
	return highest + 1, nil
}
