package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Number     int       `bun:"number,notnull,unique" validate:"gt=0,max=2147483647"`
	WorkerID   uuid.UUID `bun:"worker_id,notnull,type:uuid" validate:"required"`
	LocationID uuid.UUID `bun:"location_id,notnull,type:uuid" validate:"required"`
	Day        time.Time `bun:"day,notnull,type:date" validate:"required"`
	TimeIn     Clock     `bun:"time_in,notnull,type:time" validate:"clock"`
	TimeOut    Clock     `bun:"time_out,notnull,type:time" validate:"clock"`
	Title      string    `bun:"title,notnull" validate:"required,max=255"`
	CreatorID  *string   `bun:"creator_id" validate:"omitempty,min=1,max=150"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`

	Worker   *Worker   `bun:"rel:belongs-to,join:worker_id=id"`
	Location *Location `bun:"rel:belongs-to,join:location_id=id"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (a Appointment) Weekday() Weekday {
	return ISOWeekday(a.Day)
}

func (a Appointment) StartInstant() time.Time {
	return DateOf(a.Day).Add(a.TimeIn.Duration())
}

func (a Appointment) EndInstant() time.Time {
	return DateOf(a.Day).Add(a.TimeOut.Duration())
}

func (a Appointment) SameDay(other Appointment) bool {
	return DateOf(a.Day).Equal(DateOf(other.Day))
}
