// Package validation decides whether a proposed availability interval or appointment may be
// written. Validators are stateless: every call reads a snapshot through a store reader and
// returns either nil or a *Rejection.
package validation

import (
	"errors"
	"fmt"
	"time"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/overlap"
)

type Reason string

const (
	ReasonInvalidField        Reason = "invalid_field"
	ReasonInvalidRange        Reason = "invalid_range"
	ReasonUnknownResource     Reason = "unknown_resource"
	ReasonInvalidWeekday      Reason = "invalid_weekday"
	ReasonOverlap             Reason = "overlap"
	ReasonPlaceOverlap        Reason = "place_overlap"
	ReasonWorkerOverlap       Reason = "worker_overlap"
	ReasonOutsideAvailability Reason = "outside_availability"
)

// IsConflict reports whether the reason is about existing data rather than malformed input.
func (r Reason) IsConflict() bool {
	switch r {
	case ReasonOverlap, ReasonPlaceOverlap, ReasonWorkerOverlap, ReasonOutsideAvailability:
		return true
	default:
		return false
	}
}

// Rejection is returned when a candidate must not be written. Interval is set for Overlap,
// Appointment for PlaceOverlap and WorkerOverlap; both point at the first conflicting record.
type Rejection struct {
	Reason      Reason
	Field       string
	Kind        overlap.Kind
	Interval    *domain.AvailabilityInterval
	Appointment *domain.Appointment

	msg string
}

func (r *Rejection) Error() string {
	return r.msg
}

// InvalidField builds the rejection for input that could not be decoded or failed a field rule.
func InvalidField(field, problem string) *Rejection {
	msg := problem
	if field != "" {
		msg = field + ": " + problem
	}
	return &Rejection{Reason: ReasonInvalidField, Field: field, msg: msg}
}

func invalidRange() *Rejection {
	return &Rejection{Reason: ReasonInvalidRange, Field: "time_out", msg: "Ending hour must be after the starting hour"}
}

func unknownResource(field, what string) *Rejection {
	return &Rejection{Reason: ReasonUnknownResource, Field: field, msg: "Wrong " + what}
}

func invalidWeekday(d domain.Weekday) *Rejection {
	return &Rejection{Reason: ReasonInvalidWeekday, Field: "weekday", msg: fmt.Sprintf("Wrong day: %d", int16(d))}
}

func intervalOverlap(kind overlap.Kind, iv domain.AvailabilityInterval) *Rejection {
	return &Rejection{
		Reason:   ReasonOverlap,
		Kind:     kind,
		Interval: &iv,
		msg:      fmt.Sprintf("There is an overlap with another event: %s, %s-%s", iv.Weekday, iv.TimeIn, iv.TimeOut),
	}
}

func appointmentOverlap(reason Reason, kind overlap.Kind, a domain.Appointment) *Rejection {
	// A place conflict names the other worker, a worker conflict names the other place.
	other := "worker " + a.WorkerID.String()
	if reason == ReasonWorkerOverlap {
		other = "location " + a.LocationID.String()
	}
	return &Rejection{
		Reason:      reason,
		Kind:        kind,
		Appointment: &a,
		msg: fmt.Sprintf("There is an overlap with another event: %s, %s %s-%s",
			other, domain.DateOf(a.Day).Format(time.DateOnly), a.TimeIn, a.TimeOut),
	}
}

func outsideAvailability(a domain.Appointment) *Rejection {
	return &Rejection{
		Reason: ReasonOutsideAvailability,
		msg:    fmt.Sprintf("There are no working hours in that time: %s %s-%s", a.Weekday(), a.TimeIn, a.TimeOut),
	}
}

// ReasonOf returns the rejection reason carried by err, looking through wrapping.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
