package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day with second resolution, stored as seconds since midnight.
type Clock int32

const SecondsPerDay = 24 * 60 * 60

var ErrInvalidClock = errors.New("invalid time of day")

func NewClock(hour, minute, second int) Clock {
	return Clock(hour*3600 + minute*60 + second)
}

func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewClock(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Valid() bool {
	return c >= 0 && c < SecondsPerDay
}

func (c Clock) Hour() int   { return int(c) / 3600 }
func (c Clock) Minute() int { return int(c) % 3600 / 60 }
func (c Clock) Second() int { return int(c) % 60 }

func (c Clock) Seconds() int64 { return int64(c) }

func (c Clock) Duration() time.Duration {
	return time.Duration(c) * time.Second
}

func (c Clock) String() string {
	if !c.Valid() {
		return fmt.Sprintf("invalid(%d)", int32(c))
	}
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

func (c Clock) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, ErrInvalidClock
	}
	return c.String(), nil
}

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case []byte:
		parsed, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case time.Time:
		*c = NewClock(v.Hour(), v.Minute(), v.Second())
		return nil
	case int64:
		// microseconds since midnight, the wire form of the postgres time type
		*c = Clock(v / int64(time.Second/time.Microsecond))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
}
