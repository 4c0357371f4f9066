package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicsched/backend/internal/domain"
	"clinicsched/backend/internal/store"
)

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

var _ store.Repository = (*SchedulingRepo)(nil)

func (r *SchedulingRepo) InTransaction(ctx context.Context, locks store.LockKeys, fn func(ctx context.Context, tx store.SchedulingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, key := range locks.Keys() {
			if err := lockResource(ctx, tx, key); err != nil {
				return err
			}
		}
		return fn(ctx, schedulingTx{reader: reader{db: tx}, tx: tx})
	})
}

func lockResource(ctx context.Context, tx bun.Tx, key string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return err
}

// Snapshot reads outside any transaction. Results may be stale by the time a write happens.
func (r *SchedulingRepo) Snapshot() store.AppointmentReader {
	return reader{db: r.db}
}

func (r *SchedulingRepo) CreateWorker(ctx context.Context, w domain.Worker) (domain.Worker, error) {
	if _, err := r.db.NewInsert().Model(&w).Exec(ctx); err != nil {
		return domain.Worker{}, mapError(err)
	}
	return w, nil
}

func (r *SchedulingRepo) ListWorkers(ctx context.Context, speciality string) ([]domain.Worker, error) {
	var rows []domain.Worker
	q := r.db.NewSelect().Model(&rows).OrderExpr("name ASC")
	if speciality != "" {
		q = q.Where("speciality = ?", speciality)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) CreateLocation(ctx context.Context, l domain.Location) (domain.Location, error) {
	if _, err := r.db.NewInsert().Model(&l).Exec(ctx); err != nil {
		return domain.Location{}, mapError(err)
	}
	return l, nil
}

func (r *SchedulingRepo) ListLocations(ctx context.Context) ([]domain.Location, error) {
	var rows []domain.Location
	if err := r.db.NewSelect().Model(&rows).OrderExpr("room ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) ListSchedule(ctx context.Context, filter store.ScheduleFilter) ([]domain.AvailabilityInterval, error) {
	var rows []domain.AvailabilityInterval
	q := r.db.NewSelect().
		Model(&rows).
		Relation("Worker").
		OrderExpr("?TableAlias.weekday ASC, ?TableAlias.time_in ASC")
	if filter.Speciality != "" {
		q = q.Where("worker.speciality = ?", filter.Speciality)
	}
	if filter.Weekday != 0 {
		q = q.Where("?TableAlias.weekday = ?", filter.Weekday)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) ListAppointments(ctx context.Context, day time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("day = ?::date", dateParam(day)).
		OrderExpr("time_in ASC, number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func dateParam(day time.Time) string {
	return domain.DateOf(day).Format(time.DateOnly)
}

// reader serves the validator queries from either the pool or a transaction.
type reader struct {
	db bun.IDB
}

func (r reader) WorkerExists(ctx context.Context, workerID uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Worker)(nil)).
		Where("id = ?", workerID).
		Exists(ctx)
}

func (r reader) LocationExists(ctx context.Context, locationID uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Location)(nil)).
		Where("id = ?", locationID).
		Exists(ctx)
}

func (r reader) ListWorkerIntervals(ctx context.Context, workerID uuid.UUID, weekday domain.Weekday) ([]domain.AvailabilityInterval, error) {
	var rows []domain.AvailabilityInterval
	err := r.db.NewSelect().
		Model(&rows).
		Where("worker_id = ?", workerID).
		Where("weekday = ?", weekday).
		OrderExpr("time_in ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r reader) ListLocationAppointments(ctx context.Context, locationID uuid.UUID, day time.Time) ([]domain.Appointment, error) {
	return r.listAppointmentsBy(ctx, "location_id", locationID, day)
}

func (r reader) ListWorkerAppointments(ctx context.Context, workerID uuid.UUID, day time.Time) ([]domain.Appointment, error) {
	return r.listAppointmentsBy(ctx, "worker_id", workerID, day)
}

func (r reader) listAppointmentsBy(ctx context.Context, column string, id uuid.UUID, day time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("? = ?", bun.Ident(column), id).
		Where("day = ?::date", dateParam(day)).
		OrderExpr("time_in ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type schedulingTx struct {
	reader
	tx bun.Tx
}

func (t schedulingTx) GetInterval(ctx context.Context, id uuid.UUID) (domain.AvailabilityInterval, error) {
	var m domain.AvailabilityInterval
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.AvailabilityInterval{}, mapError(err)
	}
	return m, nil
}

func (t schedulingTx) InsertInterval(ctx context.Context, iv domain.AvailabilityInterval) (domain.AvailabilityInterval, error) {
	m := domain.AvailabilityInterval{
		ID:       iv.ID,
		WorkerID: iv.WorkerID,
		Weekday:  iv.Weekday,
		TimeIn:   iv.TimeIn,
		TimeOut:  iv.TimeOut,
	}
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.AvailabilityInterval{}, mapError(err)
	}
	return m, nil
}

func (t schedulingTx) UpdateInterval(ctx context.Context, iv domain.AvailabilityInterval) (domain.AvailabilityInterval, error) {
	m := iv
	res, err := t.tx.NewUpdate().
		Model(&m).
		Column("worker_id", "weekday", "time_in", "time_out", "updated_at").
		WherePK().
		Exec(ctx)
	if err := affectedOne(res, err); err != nil {
		return domain.AvailabilityInterval{}, err
	}
	return t.GetInterval(ctx, iv.ID)
}

func (t schedulingTx) DeleteInterval(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.AvailabilityInterval)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return affectedOne(res, err)
}

func (t schedulingTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

func (t schedulingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:         appt.ID,
		Number:     appt.Number,
		WorkerID:   appt.WorkerID,
		LocationID: appt.LocationID,
		Day:        domain.DateOf(appt.Day),
		TimeIn:     appt.TimeIn,
		TimeOut:    appt.TimeOut,
		Title:      appt.Title,
		CreatorID:  appt.CreatorID,
	}
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

func (t schedulingTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	m.Day = domain.DateOf(appt.Day)
	res, err := t.tx.NewUpdate().
		Model(&m).
		Column("number", "worker_id", "location_id", "day", "time_in", "time_out", "title", "creator_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err := affectedOne(res, err); err != nil {
		return domain.Appointment{}, err
	}
	return t.GetAppointment(ctx, appt.ID)
}

func (t schedulingTx) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return affectedOne(res, err)
}

func (t schedulingTx) MaxAppointmentNumber(ctx context.Context) (int, error) {
	var n int
	err := t.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		ColumnExpr("COALESCE(MAX(number), 0)").
		Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (t schedulingTx) InsertOutboxEvent(ctx context.Context, ev store.OutboxEvent) error {
	m := outboxRow{
		ID:            ev.ID,
		EventType:     ev.EventType,
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		Payload:       ev.Payload,
		Traceparent:   ev.Traceparent,
		Tracestate:    ev.Tracestate,
		CreatedAt:     ev.CreatedAt,
	}
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	return err
}

type execResult interface {
	RowsAffected() (int64, error)
}

func affectedOne(res execResult, err error) error {
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
