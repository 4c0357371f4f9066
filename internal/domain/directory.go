package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Worker struct {
	bun.BaseModel `bun:"table:workers"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Name       string    `bun:"name,notnull" validate:"required,max=255"`
	Speciality string    `bun:"speciality,notnull" validate:"max=255"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func (w *Worker) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &w.ID, &w.CreatedAt, &w.UpdatedAt)
}

type Location struct {
	bun.BaseModel `bun:"table:locations"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Room      int       `bun:"room,notnull,unique" validate:"gt=0,max=2147483647"`
	Name      string    `bun:"name,notnull" validate:"required,max=255"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (l *Location) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func stampModel(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			v, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*id = v
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
