package grpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/validation"
)

// decode copies a Struct payload into a typed request. Unknown keys and mistyped values are
// rejected as invalid fields.
func decode(req *structpb.Struct, dst any) error {
	if req == nil {
		return validation.InvalidField("", "request is required")
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return validation.InvalidField("", "malformed request")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return validation.InvalidField(typeErr.Field, "has the wrong type")
		}
		return validation.InvalidField("", strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// parseID accepts an empty string as "not set" so the field validator can report it.
func parseID(field, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, validation.InvalidField(field, "must be a UUID")
	}
	return id, nil
}

func requireID(field, s string) (uuid.UUID, error) {
	id, err := parseID(field, s)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, validation.InvalidField(field, "is required")
	}
	return id, nil
}

func parseClock(field, s string) (domain.Clock, error) {
	if strings.TrimSpace(s) == "" {
		return 0, validation.InvalidField(field, "is required")
	}
	c, err := domain.ParseClock(s)
	if err != nil {
		return 0, validation.InvalidField(field, "must be a time of day (HH:MM or HH:MM:SS)")
	}
	return c, nil
}

// parseWeekday leaves the 1..7 check to the validators but refuses values that would wrap
// when narrowed.
func parseWeekday(field string, v int) (domain.Weekday, error) {
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, validation.InvalidField(field, "must be between 1 and 7")
	}
	return domain.Weekday(v), nil
}

func parseDay(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, validation.InvalidField(field, "must be a date (YYYY-MM-DD)")
	}
	return day, nil
}
