package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AvailabilityInterval is one weekly working window of a worker. A worker may have several
// non-overlapping windows on the same weekday.
type AvailabilityInterval struct {
	bun.BaseModel `bun:"table:schedules"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	WorkerID  uuid.UUID `bun:"worker_id,notnull,type:uuid" validate:"required"`
	Weekday   Weekday   `bun:"weekday,notnull" validate:"required"`
	TimeIn    Clock     `bun:"time_in,notnull,type:time" validate:"clock"`
	TimeOut   Clock     `bun:"time_out,notnull,type:time" validate:"clock"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	Worker *Worker `bun:"rel:belongs-to,join:worker_id=id"`
}

func (s *AvailabilityInterval) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (s AvailabilityInterval) Covers(in, out Clock) bool {
	return s.TimeIn <= in && s.TimeOut >= out
}
