package grpc

import (
	"time"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/overlap"
	"clinicsched/backend/internal/service/scheduling"
	"clinicsched/backend/internal/validation"
)

type workerRequest struct {
	Name       string `json:"name"`
	Speciality string `json:"speciality"`
}

type listWorkersRequest struct {
	Speciality string `json:"speciality"`
}

type locationRequest struct {
	Room int    `json:"room"`
	Name string `json:"name"`
}

type emptyRequest struct{}

type idRequest struct {
	ID string `json:"id"`
}

type scheduleRequest struct {
	ID       string `json:"id"`
	WorkerID string `json:"worker_id"`
	Weekday  int    `json:"weekday"`
	TimeIn   string `json:"time_in"`
	TimeOut  string `json:"time_out"`
}

func (r scheduleRequest) input() (scheduling.ScheduleInput, error) {
	workerID, err := parseID("worker_id", r.WorkerID)
	if err != nil {
		return scheduling.ScheduleInput{}, err
	}
	in, err := parseClock("time_in", r.TimeIn)
	if err != nil {
		return scheduling.ScheduleInput{}, err
	}
	out, err := parseClock("time_out", r.TimeOut)
	if err != nil {
		return scheduling.ScheduleInput{}, err
	}
	weekday, err := parseWeekday("weekday", r.Weekday)
	if err != nil {
		return scheduling.ScheduleInput{}, err
	}
	return scheduling.ScheduleInput{
		WorkerID: workerID,
		Weekday:  weekday,
		TimeIn:   in,
		TimeOut:  out,
	}, nil
}

type listScheduleRequest struct {
	Speciality string `json:"speciality"`
	Weekday    int    `json:"weekday"`
}

type appointmentRequest struct {
	ID         string  `json:"id"`
	Number     int     `json:"number"`
	WorkerID   string  `json:"worker_id"`
	LocationID string  `json:"location_id"`
	Day        string  `json:"day"`
	TimeIn     string  `json:"time_in"`
	TimeOut    string  `json:"time_out"`
	Title      string  `json:"title"`
	CreatorID  *string `json:"creator_id"`
}

func (r appointmentRequest) input() (scheduling.AppointmentInput, error) {
	workerID, err := parseID("worker_id", r.WorkerID)
	if err != nil {
		return scheduling.AppointmentInput{}, err
	}
	locationID, err := parseID("location_id", r.LocationID)
	if err != nil {
		return scheduling.AppointmentInput{}, err
	}
	day, err := parseDay("day", r.Day)
	if err != nil {
		return scheduling.AppointmentInput{}, err
	}
	in, err := parseClock("time_in", r.TimeIn)
	if err != nil {
		return scheduling.AppointmentInput{}, err
	}
	out, err := parseClock("time_out", r.TimeOut)
	if err != nil {
		return scheduling.AppointmentInput{}, err
	}
	return scheduling.AppointmentInput{
		Number:     r.Number,
		WorkerID:   workerID,
		LocationID: locationID,
		Day:        day,
		TimeIn:     in,
		TimeOut:    out,
		Title:      r.Title,
		CreatorID:  r.CreatorID,
	}, nil
}

type listAppointmentsRequest struct {
	Day string `json:"day"`
}

type workerView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Speciality string    `json:"speciality"`
	CreatedAt  time.Time `json:"created_at"`
}

func toWorkerView(w domain.Worker) workerView {
	return workerView{ID: w.ID.String(), Name: w.Name, Speciality: w.Speciality, CreatedAt: w.CreatedAt}
}

type locationView struct {
	ID        string    `json:"id"`
	Room      int       `json:"room"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toLocationView(l domain.Location) locationView {
	return locationView{ID: l.ID.String(), Room: l.Room, Name: l.Name, CreatedAt: l.CreatedAt}
}

type scheduleView struct {
	ID          string `json:"id"`
	WorkerID    string `json:"worker_id"`
	WorkerName  string `json:"worker_name,omitempty"`
	Speciality  string `json:"speciality,omitempty"`
	Weekday     int    `json:"weekday"`
	WeekdayName string `json:"weekday_name"`
	TimeIn      string `json:"time_in"`
	TimeOut     string `json:"time_out"`
}

func toScheduleView(iv domain.AvailabilityInterval) scheduleView {
	v := scheduleView{
		ID:          iv.ID.String(),
		WorkerID:    iv.WorkerID.String(),
		Weekday:     int(iv.Weekday),
		WeekdayName: iv.Weekday.String(),
		TimeIn:      iv.TimeIn.String(),
		TimeOut:     iv.TimeOut.String(),
	}
	if iv.Worker != nil {
		v.WorkerName = iv.Worker.Name
		v.Speciality = iv.Worker.Speciality
	}
	return v
}

type appointmentView struct {
	ID         string  `json:"id"`
	Number     int     `json:"number"`
	WorkerID   string  `json:"worker_id"`
	LocationID string  `json:"location_id"`
	Day        string  `json:"day"`
	TimeIn     string  `json:"time_in"`
	TimeOut    string  `json:"time_out"`
	Title      string  `json:"title"`
	CreatorID  *string `json:"creator_id,omitempty"`
}

func toAppointmentView(a domain.Appointment) appointmentView {
	return appointmentView{
		ID:         a.ID.String(),
		Number:     a.Number,
		WorkerID:   a.WorkerID.String(),
		LocationID: a.LocationID.String(),
		Day:        domain.DateOf(a.Day).Format(time.DateOnly),
		TimeIn:     a.TimeIn.String(),
		TimeOut:    a.TimeOut.String(),
		Title:      a.Title,
		CreatorID:  a.CreatorID,
	}
}

// validationView is the dry-run answer: either accepted, or the rejection with the first
// conflicting record when there is one.
type validationView struct {
	Accepted            bool             `json:"accepted"`
	Reason              string           `json:"reason,omitempty"`
	Field               string           `json:"field,omitempty"`
	Message             string           `json:"message,omitempty"`
	OverlapKind         string           `json:"overlap_kind,omitempty"`
	ConflictSchedule    *scheduleView    `json:"conflict_schedule,omitempty"`
	ConflictAppointment *appointmentView `json:"conflict_appointment,omitempty"`
}

func toValidationView(rej *validation.Rejection) validationView {
	if rej == nil {
		return validationView{Accepted: true}
	}
	v := validationView{
		Reason:  string(rej.Reason),
		Field:   rej.Field,
		Message: rej.Error(),
	}
	if rej.Kind != overlap.KindNone {
		v.OverlapKind = rej.Kind.String()
	}
	if rej.Interval != nil {
		sv := toScheduleView(*rej.Interval)
		v.ConflictSchedule = &sv
	}
	if rej.Appointment != nil {
		av := toAppointmentView(*rej.Appointment)
		v.ConflictAppointment = &av
	}
	return v
}
