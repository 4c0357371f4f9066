package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/service/scheduling"
	"clinicsched/backend/internal/store"
	"clinicsched/backend/internal/validation"
)

type fakeSchedulingService struct {
	createScheduleFn      func(ctx context.Context, in scheduling.ScheduleInput) (domain.AvailabilityInterval, error)
	createAppointmentFn   func(ctx context.Context, in scheduling.AppointmentInput) (domain.Appointment, error)
	deleteAppointmentFn   func(ctx context.Context, id uuid.UUID) error
	validateAppointmentFn func(ctx context.Context, id uuid.UUID, in scheduling.AppointmentInput) error
	nextNumberFn          func(ctx context.Context) (int, error)
}

func (f *fakeSchedulingService) CreateWorker(ctx context.Context, in scheduling.WorkerInput) (domain.Worker, error) {
	panic("CreateWorker not configured")
}

func (f *fakeSchedulingService) ListWorkers(ctx context.Context, speciality string) ([]domain.Worker, error) {
	panic("ListWorkers not configured")
}

func (f *fakeSchedulingService) CreateLocation(ctx context.Context, in scheduling.LocationInput) (domain.Location, error) {
	panic("CreateLocation not configured")
}

func (f *fakeSchedulingService) ListLocations(ctx context.Context) ([]domain.Location, error) {
	panic("ListLocations not configured")
}

func (f *fakeSchedulingService) CreateSchedule(ctx context.Context, in scheduling.ScheduleInput) (domain.AvailabilityInterval, error) {
	if f.createScheduleFn == nil {
		panic("CreateSchedule not configured")
	}
	return f.createScheduleFn(ctx, in)
}

func (f *fakeSchedulingService) UpdateSchedule(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) (domain.AvailabilityInterval, error) {
	panic("UpdateSchedule not configured")
}

func (f *fakeSchedulingService) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	panic("DeleteSchedule not configured")
}

func (f *fakeSchedulingService) ListSchedule(ctx context.Context, speciality string, weekday domain.Weekday) ([]domain.AvailabilityInterval, error) {
	panic("ListSchedule not configured")
}

func (f *fakeSchedulingService) ValidateSchedule(ctx context.Context, id uuid.UUID, in scheduling.ScheduleInput) error {
	panic("ValidateSchedule not configured")
}

func (f *fakeSchedulingService) CreateAppointment(ctx context.Context, in scheduling.AppointmentInput) (domain.Appointment, error) {
	if f.createAppointmentFn == nil {
		panic("CreateAppointment not configured")
	}
	return f.createAppointmentFn(ctx, in)
}

func (f *fakeSchedulingService) UpdateAppointment(ctx context.Context, id uuid.UUID, in scheduling.AppointmentInput) (domain.Appointment, error) {
	panic("UpdateAppointment not configured")
}

func (f *fakeSchedulingService) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if f.deleteAppointmentFn == nil {
		panic("DeleteAppointment not configured")
	}
	return f.deleteAppointmentFn(ctx, id)
}

func (f *fakeSchedulingService) ListAppointments(ctx context.Context, day time.Time) ([]domain.Appointment, error) {
	panic("ListAppointments not configured")
}

func (f *fakeSchedulingService) ValidateAppointment(ctx context.Context, id uuid.UUID, in scheduling.AppointmentInput) error {
	if f.validateAppointmentFn == nil {
		panic("ValidateAppointment not configured")
	}
	return f.validateAppointmentFn(ctx, id, in)
}

func (f *fakeSchedulingService) NextAppointmentNumber(ctx context.Context) (int, error) {
	if f.nextNumberFn == nil {
		panic("NextAppointmentNumber not configured")
	}
	return f.nextNumberFn(ctx)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct error: %v", err)
	}
	return s
}

func errorReason(t *testing.T, err error) string {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("error %v is not a status", err)
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.Reason
		}
	}
	return ""
}

var (
	testWorker   = uuid.MustParse("0190c7a0-0000-7000-8000-000000000001")
	testLocation = uuid.MustParse("0190c7a0-0000-7000-8000-0000000000a1")
)

func appointmentPayload() map[string]any {
	return map[string]any{
		"worker_id":   testWorker.String(),
		"location_id": testLocation.String(),
		"day":         "2022-06-20",
		"time_in":     "12:00",
		"time_out":    "14:00",
		"title":       "checkup",
	}
}

func TestCreateSchedule_RejectsMalformedTime(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	_, err := srv.CreateSchedule(context.Background(), mustStruct(t, map[string]any{
		"worker_id": testWorker.String(),
		"weekday":   1,
		"time_in":   "8am",
		"time_out":  "10:00",
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
	if got := errorReason(t, err); got != string(validation.ReasonInvalidField) {
		t.Fatalf("reason = %q, want %q", got, validation.ReasonInvalidField)
	}
}

func TestCreateSchedule_RejectsUnknownField(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	_, err := srv.CreateSchedule(context.Background(), mustStruct(t, map[string]any{"day": 1}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestCreateSchedule_RejectsWeekdayBeyondInt16(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	for _, weekday := range []int{65537, -65535} {
		_, err := srv.CreateSchedule(context.Background(), mustStruct(t, map[string]any{
			"worker_id": testWorker.String(),
			"weekday":   weekday,
			"time_in":   "08:00",
			"time_out":  "10:00",
		}))
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("weekday %d: code = %s, want %s", weekday, status.Code(err), codes.InvalidArgument)
		}
		if got := errorReason(t, err); got != string(validation.ReasonInvalidField) {
			t.Fatalf("weekday %d: reason = %q, want %q", weekday, got, validation.ReasonInvalidField)
		}
	}
}

func TestCreateSchedule_OutOfRangeWeekdayReachesValidator(t *testing.T) {
	var got domain.Weekday
	srv := NewSchedulingServer(&fakeSchedulingService{
		createScheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.AvailabilityInterval, error) {
			got = in.Weekday
			return domain.AvailabilityInterval{}, &validation.Rejection{Reason: validation.ReasonInvalidWeekday}
		},
	}, slog.Default())

	_, err := srv.CreateSchedule(context.Background(), mustStruct(t, map[string]any{
		"worker_id": testWorker.String(),
		"weekday":   9,
		"time_in":   "08:00",
		"time_out":  "10:00",
	}))
	if got != 9 {
		t.Fatalf("weekday = %d, want 9", got)
	}
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestListSchedule_RejectsWeekdayBeyondInt16(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	_, err := srv.ListSchedule(context.Background(), mustStruct(t, map[string]any{"weekday": 65537}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestNextAppointmentNumber_RejectsUnknownField(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	_, err := srv.NextAppointmentNumber(context.Background(), mustStruct(t, map[string]any{"number": 5}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestCreateSchedule_PassesParsedInput(t *testing.T) {
	var got scheduling.ScheduleInput
	srv := NewSchedulingServer(&fakeSchedulingService{
		createScheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.AvailabilityInterval, error) {
			got = in
			return domain.AvailabilityInterval{ID: uuid.New(), WorkerID: in.WorkerID, Weekday: in.Weekday, TimeIn: in.TimeIn, TimeOut: in.TimeOut}, nil
		},
	}, slog.Default())

	resp, err := srv.CreateSchedule(context.Background(), mustStruct(t, map[string]any{
		"worker_id": testWorker.String(),
		"weekday":   5,
		"time_in":   "08:00",
		"time_out":  "10:30:00",
	}))
	if err != nil {
		t.Fatalf("CreateSchedule error: %v", err)
	}
	if got.WorkerID != testWorker || got.Weekday != domain.Friday {
		t.Fatalf("input = %+v", got)
	}
	if got.TimeOut != domain.NewClock(10, 30, 0) {
		t.Fatalf("time_out = %v, want 10:30:00", got.TimeOut)
	}
	schedule := resp.GetFields()["schedule"].GetStructValue().GetFields()
	if schedule["weekday_name"].GetStringValue() != "Friday" {
		t.Fatalf("weekday_name = %v, want Friday", schedule["weekday_name"])
	}
}

func TestCreateAppointment_MapsErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantReason string
	}{
		{
			name:       "place overlap",
			err:        &validation.Rejection{Reason: validation.ReasonPlaceOverlap, Appointment: &domain.Appointment{ID: uuid.New()}},
			wantCode:   codes.FailedPrecondition,
			wantReason: string(validation.ReasonPlaceOverlap),
		},
		{
			name:       "outside availability",
			err:        &validation.Rejection{Reason: validation.ReasonOutsideAvailability},
			wantCode:   codes.FailedPrecondition,
			wantReason: string(validation.ReasonOutsideAvailability),
		},
		{
			name:       "unknown worker",
			err:        &validation.Rejection{Reason: validation.ReasonUnknownResource, Field: "worker_id"},
			wantCode:   codes.InvalidArgument,
			wantReason: string(validation.ReasonUnknownResource),
		},
		{name: "exclusion backstop", err: store.ErrConflict, wantCode: codes.Aborted},
		{name: "duplicate number", err: store.ErrDuplicateNumber, wantCode: codes.AlreadyExists},
		{name: "dangling reference", err: store.ErrNotFound, wantCode: codes.NotFound},
		{name: "unexpected", err: errors.New("connection reset"), wantCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewSchedulingServer(&fakeSchedulingService{
				createAppointmentFn: func(ctx context.Context, in scheduling.AppointmentInput) (domain.Appointment, error) {
					return domain.Appointment{}, tt.err
				},
			}, slog.Default())

			_, err := srv.CreateAppointment(context.Background(), mustStruct(t, appointmentPayload()))
			if status.Code(err) != tt.wantCode {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.wantCode)
			}
			if tt.wantReason != "" {
				if got := errorReason(t, err); got != tt.wantReason {
					t.Fatalf("reason = %q, want %q", got, tt.wantReason)
				}
			}
		})
	}
}

func TestCreateAppointment_PassesParsedInput(t *testing.T) {
	var got scheduling.AppointmentInput
	srv := NewSchedulingServer(&fakeSchedulingService{
		createAppointmentFn: func(ctx context.Context, in scheduling.AppointmentInput) (domain.Appointment, error) {
			got = in
			return domain.Appointment{ID: uuid.New(), Number: 7, Day: in.Day, TimeIn: in.TimeIn, TimeOut: in.TimeOut}, nil
		},
	}, slog.Default())

	resp, err := srv.CreateAppointment(context.Background(), mustStruct(t, appointmentPayload()))
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	if !got.Day.Equal(time.Date(2022, 6, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day = %v", got.Day)
	}
	if got.WorkerID != testWorker || got.LocationID != testLocation || got.Number != 0 {
		t.Fatalf("input = %+v", got)
	}
	appt := resp.GetFields()["appointment"].GetStructValue().GetFields()
	if appt["number"].GetNumberValue() != 7 || appt["day"].GetStringValue() != "2022-06-20" {
		t.Fatalf("appointment = %v", appt)
	}
}

func TestCreateAppointment_RejectsBadDay(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	payload := appointmentPayload()
	payload["day"] = "20/06/2022"
	_, err := srv.CreateAppointment(context.Background(), mustStruct(t, payload))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestValidateAppointment_ReportsRejectionInPayload(t *testing.T) {
	conflict := domain.Appointment{
		ID:         uuid.New(),
		Number:     3,
		WorkerID:   testWorker,
		LocationID: testLocation,
		Day:        time.Date(2022, 6, 20, 0, 0, 0, 0, time.UTC),
		TimeIn:     domain.NewClock(12, 0, 0),
		TimeOut:    domain.NewClock(14, 0, 0),
	}
	srv := NewSchedulingServer(&fakeSchedulingService{
		validateAppointmentFn: func(ctx context.Context, id uuid.UUID, in scheduling.AppointmentInput) error {
			if id != uuid.Nil {
				t.Fatalf("id = %s, want nil for a new booking", id)
			}
			return &validation.Rejection{Reason: validation.ReasonPlaceOverlap, Appointment: &conflict}
		},
	}, slog.Default())

	resp, err := srv.ValidateAppointment(context.Background(), mustStruct(t, appointmentPayload()))
	if err != nil {
		t.Fatalf("ValidateAppointment error: %v", err)
	}
	fields := resp.GetFields()
	if fields["accepted"].GetBoolValue() {
		t.Fatalf("accepted = true, want false")
	}
	if fields["reason"].GetStringValue() != string(validation.ReasonPlaceOverlap) {
		t.Fatalf("reason = %v", fields["reason"])
	}
	c := fields["conflict_appointment"].GetStructValue().GetFields()
	if c["id"].GetStringValue() != conflict.ID.String() || c["time_in"].GetStringValue() != "12:00:00" {
		t.Fatalf("conflict = %v", c)
	}
}

func TestValidateAppointment_StoreFailureIsAnError(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{
		validateAppointmentFn: func(ctx context.Context, id uuid.UUID, in scheduling.AppointmentInput) error {
			return errors.New("connection reset")
		},
	}, slog.Default())

	_, err := srv.ValidateAppointment(context.Background(), mustStruct(t, appointmentPayload()))
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.Internal)
	}
}

func TestDeleteAppointment_RejectsInvalidUUID(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	_, err := srv.DeleteAppointment(context.Background(), mustStruct(t, map[string]any{"id": "not-a-uuid"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestDeleteAppointment_MapsNotFound(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{
		deleteAppointmentFn: func(ctx context.Context, id uuid.UUID) error {
			return store.ErrNotFound
		},
	}, slog.Default())

	_, err := srv.DeleteAppointment(context.Background(), mustStruct(t, map[string]any{"id": "00000000-0000-0000-0000-000000000020"}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestRequestIDInterceptor_UsesIncomingID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "req-1"))

	var got string
	_, err := RequestIDInterceptor()(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		got = RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if got != "req-1" {
		t.Fatalf("request id = %q, want %q", got, "req-1")
	}

	_, _ = RequestIDInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		got = RequestIDFromContext(ctx)
		return nil, nil
	})
	if got == "" {
		t.Fatalf("expected a minted request id")
	}
}

func TestDefaultRequestTimeoutInterceptor_AddsDeadline(t *testing.T) {
	_, _ = DefaultRequestTimeoutInterceptor(time.Second)(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("expected deadline")
		}
		return nil, nil
	})
}

func TestServiceDesc_RoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(RequestIDInterceptor()))
	RegisterSchedulingServiceServer(server, NewSchedulingServer(&fakeSchedulingService{
		nextNumberFn: func(ctx context.Context) (int, error) {
			if RequestIDFromContext(ctx) == "" {
				return 0, errors.New("missing request id")
			}
			return 42, nil
		},
	}, slog.Default()))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &structpb.Struct{}
	var header metadata.MD
	err = conn.Invoke(ctx, "/"+ServiceName+"/NextAppointmentNumber", &structpb.Struct{}, out, grpc.Header(&header))
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if n := out.GetFields()["number"].GetNumberValue(); n != 42 {
		t.Fatalf("number = %v, want 42", n)
	}
	if len(header.Get(RequestIDMetadataKey)) == 0 {
		t.Fatalf("response is missing %s header", RequestIDMetadataKey)
	}
}
