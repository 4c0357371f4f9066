package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicsched/backend/internal/store"
)

type outboxRow struct {
	bun.BaseModel `bun:"table:outbox_events"`

	ID            uuid.UUID       `bun:"id,pk,type:uuid"`
	EventType     string          `bun:"event_type,notnull"`
	AggregateType string          `bun:"aggregate_type,notnull"`
	AggregateID   uuid.UUID       `bun:"aggregate_id,notnull,type:uuid"`
	Payload       json.RawMessage `bun:"payload,notnull,type:jsonb"`
	Traceparent   string          `bun:"traceparent,notnull"`
	Tracestate    string          `bun:"tracestate,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
	PublishedAt   *time.Time      `bun:"published_at"`
}

func (m *outboxRow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if m.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (m outboxRow) event() store.OutboxEvent {
	return store.OutboxEvent{
		ID:            m.ID,
		EventType:     m.EventType,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		Payload:       m.Payload,
		Traceparent:   m.Traceparent,
		Tracestate:    m.Tracestate,
		CreatedAt:     m.CreatedAt,
		PublishedAt:   m.PublishedAt,
	}
}

type OutboxRepo struct {
	db *bun.DB
}

func NewOutboxRepo(db *bun.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

var _ store.OutboxRepository = (*OutboxRepo)(nil)

// ClaimPending locks the oldest unpublished rows with SKIP LOCKED so several relays can run
// side by side, hands them to fn and marks what fn returns as published in the same
// transaction. An error from fn is returned after the ids it did report are committed.
func (r *OutboxRepo) ClaimPending(ctx context.Context, limit int, fn func(ctx context.Context, events []store.OutboxEvent) ([]uuid.UUID, error)) (int, error) {
	var (
		published int
		fnErr     error
	)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []outboxRow
		err := tx.NewSelect().
			Model(&rows).
			Where("published_at IS NULL").
			OrderExpr("created_at ASC").
			Limit(limit).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		events := make([]store.OutboxEvent, 0, len(rows))
		for _, row := range rows {
			events = append(events, row.event())
		}

		var ids []uuid.UUID
		ids, fnErr = fn(ctx, events)
		if len(ids) > 0 {
			_, err := tx.NewUpdate().
				Model((*outboxRow)(nil)).
				Set("published_at = ?", time.Now().UTC()).
				Where("id IN (?)", bun.In(ids)).
				Exec(ctx)
			if err != nil {
				return err
			}
			published = len(ids)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, fnErr
}
