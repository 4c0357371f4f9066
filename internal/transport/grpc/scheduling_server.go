package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/service/scheduling"
	"clinicsched/backend/internal/validation"
)

type SchedulingServer struct {
	svc schedulingService
	log *slog.Logger
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)

type schedulingService interface {
	CreateWorker(ctx context.Context, in scheduling.WorkerInput) (domain.Worker, error)
	ListWorkers(ctx context.Context, speciality string) ([]domain.Worker, error)
	CreateLocation(ctx context.Context, in scheduling.LocationInput) (domain.Location, error)
	ListLocations(ctx context.Context) ([]domain.Location, error)

	CreateSchedule(ctx context.Context, in scheduling.ScheduleInput) (domain.AvailabilityInterval, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) (domain.AvailabilityInterval, error)
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
	ListSchedule(ctx context.Context, speciality string, weekday domain.Weekday) ([]domain.AvailabilityInterval, error)
	ValidateSchedule(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) error

	CreateAppointment(ctx context.Context, in scheduling.AppointmentInput) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, in scheduling.AppointmentInput) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	ListAppointments(ctx context.Context, day time.Time) ([]domain.Appointment, error)
	ValidateAppointment(ctx context.Context, id uuid.UUID, in scheduling.AppointmentInput) error
	NextAppointmentNumber(ctx context.Context) (int, error)
}

func NewSchedulingServer(svc schedulingService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

func (s *SchedulingServer) logger(ctx context.Context, rpc string) *slog.Logger {
	log := s.log.With(slog.String("rpc", rpc))
	if id := RequestIDFromContext(ctx); id != "" {
		log = log.With(slog.String("request_id", id))
	}
	return log
}

func (s *SchedulingServer) CreateWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "CreateWorker")

	var in workerRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	w, err := s.svc.CreateWorker(ctx, scheduling.WorkerInput{Name: in.Name, Speciality: in.Speciality})
	if err != nil {
		return nil, toStatus(log, err)
	}

	log.Info("worker created", slog.String("worker_id", w.ID.String()), slog.String("speciality", w.Speciality))
	return encode(map[string]any{"worker": toWorkerView(w)})
}

func (s *SchedulingServer) ListWorkers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "ListWorkers")

	var in listWorkersRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	workers, err := s.svc.ListWorkers(ctx, in.Speciality)
	if err != nil {
		return nil, toStatus(log, err)
	}

	out := make([]workerView, 0, len(workers))
	for _, w := range workers {
		out = append(out, toWorkerView(w))
	}
	log.Debug("workers listed", slog.Int("count", len(out)), slog.String("speciality", in.Speciality))
	return encode(map[string]any{"workers": out})
}

func (s *SchedulingServer) CreateLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "CreateLocation")

	var in locationRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	l, err := s.svc.CreateLocation(ctx, scheduling.LocationInput{Room: in.Room, Name: in.Name})
	if err != nil {
		return nil, toStatus(log, err)
	}

	log.Info("location created", slog.String("location_id", l.ID.String()), slog.Int("room", l.Room))
	return encode(map[string]any{"location": toLocationView(l)})
}

func (s *SchedulingServer) ListLocations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "ListLocations")

	var in emptyRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	locations, err := s.svc.ListLocations(ctx)
	if err != nil {
		return nil, toStatus(log, err)
	}

	out := make([]locationView, 0, len(locations))
	for _, l := range locations {
		out = append(out, toLocationView(l))
	}
	log.Debug("locations listed", slog.Int("count", len(out)))
	return encode(map[string]any{"locations": out})
}

func (s *SchedulingServer) CreateSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "CreateSchedule")

	var in scheduleRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	input, err := in.input()
	if err != nil {
		return nil, toStatus(log, err)
	}
	iv, err := s.svc.CreateSchedule(ctx, input)
	if err != nil {
		return nil, toStatus(log, err)
	}

	log.Info(
		"schedule created",
		slog.String("schedule_id", iv.ID.String()),
		slog.String("worker_id", iv.WorkerID.String()),
		slog.Int("weekday", int(iv.Weekday)),
		slog.String("time_in", iv.TimeIn.String()),
		slog.String("time_out", iv.TimeOut.String()),
	)
	return encode(map[string]any{"schedule": toScheduleView(iv)})
}

func (s *SchedulingServer) UpdateSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "UpdateSchedule")

	var in scheduleRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	id, err := requireID("id", in.ID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	input, err := in.input()
	if err != nil {
		return nil, toStatus(log, err)
	}
	iv, err := s.svc.UpdateSchedule(ctx, id, input)
	if err != nil {
		return nil, toStatus(log.With(slog.String("schedule_id", id.String())), err)
	}

	log.Info("schedule updated", slog.String("schedule_id", iv.ID.String()), slog.String("worker_id", iv.WorkerID.String()))
	return encode(map[string]any{"schedule": toScheduleView(iv)})
}

func (s *SchedulingServer) DeleteSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "DeleteSchedule")

	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	id, err := requireID("id", in.ID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	if err := s.svc.DeleteSchedule(ctx, id); err != nil {
		return nil, toStatus(log.With(slog.String("schedule_id", id.String())), err)
	}

	log.Info("schedule deleted", slog.String("schedule_id", id.String()))
	return encode(map[string]any{})
}

func (s *SchedulingServer) ListSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "ListSchedule")

	var in listScheduleRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	weekday, err := parseWeekday("weekday", in.Weekday)
	if err != nil {
		return nil, toStatus(log, err)
	}
	ivs, err := s.svc.ListSchedule(ctx, in.Speciality, weekday)
	if err != nil {
		return nil, toStatus(log, err)
	}

	out := make([]scheduleView, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, toScheduleView(iv))
	}
	log.Debug("schedule listed", slog.Int("count", len(out)), slog.String("speciality", in.Speciality), slog.Int("weekday", in.Weekday))
	return encode(map[string]any{"schedules": out})
}

// ValidateSchedule answers rejections in the payload; only transport and store failures are
// returned as errors.
func (s *SchedulingServer) ValidateSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "ValidateSchedule")

	var in scheduleRequest
	if err := decode(req, &in); err != nil {
		return dryRunResult(log, err)
	}
	id, err := parseID("id", in.ID)
	if err != nil {
		return dryRunResult(log, err)
	}
	input, err := in.input()
	if err != nil {
		return dryRunResult(log, err)
	}
	return dryRunResult(log, s.svc.ValidateSchedule(ctx, id, input))
}

func (s *SchedulingServer) CreateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "CreateAppointment")

	var in appointmentRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	input, err := in.input()
	if err != nil {
		return nil, toStatus(log, err)
	}
	a, err := s.svc.CreateAppointment(ctx, input)
	if err != nil {
		return nil, toStatus(log.With(slog.String("worker_id", in.WorkerID), slog.String("location_id", in.LocationID), slog.String("day", in.Day)), err)
	}

	log.Info(
		"appointment created",
		slog.String("appointment_id", a.ID.String()),
		slog.Int("number", a.Number),
		slog.String("worker_id", a.WorkerID.String()),
		slog.String("location_id", a.LocationID.String()),
		slog.Time("start", a.StartInstant()),
		slog.Time("end", a.EndInstant()),
	)
	return encode(map[string]any{"appointment": toAppointmentView(a)})
}

func (s *SchedulingServer) UpdateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "UpdateAppointment")

	var in appointmentRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	id, err := requireID("id", in.ID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	input, err := in.input()
	if err != nil {
		return nil, toStatus(log, err)
	}
	a, err := s.svc.UpdateAppointment(ctx, id, input)
	if err != nil {
		return nil, toStatus(log.With(slog.String("appointment_id", id.String())), err)
	}

	log.Info("appointment updated", slog.String("appointment_id", a.ID.String()), slog.Time("start", a.StartInstant()), slog.Time("end", a.EndInstant()))
	return encode(map[string]any{"appointment": toAppointmentView(a)})
}

func (s *SchedulingServer) DeleteAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "DeleteAppointment")

	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	id, err := requireID("id", in.ID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	if err := s.svc.DeleteAppointment(ctx, id); err != nil {
		return nil, toStatus(log.With(slog.String("appointment_id", id.String())), err)
	}

	log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	return encode(map[string]any{})
}

func (s *SchedulingServer) ListAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "ListAppointments")

	var in listAppointmentsRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	day, err := parseDay("day", in.Day)
	if err != nil {
		return nil, toStatus(log, err)
	}
	appts, err := s.svc.ListAppointments(ctx, day)
	if err != nil {
		return nil, toStatus(log, err)
	}

	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentView(a))
	}
	log.Debug("appointments listed", slog.Int("count", len(out)), slog.String("day", in.Day))
	return encode(map[string]any{"appointments": out})
}

func (s *SchedulingServer) ValidateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "ValidateAppointment")

	var in appointmentRequest
	if err := decode(req, &in); err != nil {
		return dryRunResult(log, err)
	}
	id, err := parseID("id", in.ID)
	if err != nil {
		return dryRunResult(log, err)
	}
	input, err := in.input()
	if err != nil {
		return dryRunResult(log, err)
	}
	return dryRunResult(log, s.svc.ValidateAppointment(ctx, id, input))
}

func (s *SchedulingServer) NextAppointmentNumber(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.logger(ctx, "NextAppointmentNumber")

	var in emptyRequest
	if err := decode(req, &in); err != nil {
		return nil, toStatus(log, err)
	}
	n, err := s.svc.NextAppointmentNumber(ctx)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return encode(map[string]any{"number": n})
}

func dryRunResult(log *slog.Logger, err error) (*structpb.Struct, error) {
	var rej *validation.Rejection
	if err != nil && !errors.As(err, &rej) {
		return nil, toStatus(log, err)
	}
	if rej != nil {
		log.Debug("dry run rejected", slog.String("reason", string(rej.Reason)))
	}
	return encode(toValidationView(rej))
}
