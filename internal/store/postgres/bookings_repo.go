package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	_, err := r.db.NewInsert().Model(&b).Exec(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) CreateBatch(ctx context.Context, bs []domain.Booking) ([]domain.Booking, error) {
	if len(bs) == 0 {
		return nil, nil
	}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&bs).Exec(ctx)
		return err
	})
	if err != nil {
		// A duplicate (recurrence_group_id, recurrence_index) means the
		// series was already materialized.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return bs, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("start_time = ?", start).
		Set("end_time = ?", end).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *BookingRepo) SetMeetingResult(ctx context.Context, id uuid.UUID, m domain.MeetingResult) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("meeting_url = ?", m.MeetingURL).
		Set("meeting_id = ?", m.MeetingID).
		Set("host_url = ?", m.HostURL).
		Set("meeting_password = ?", m.Password).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *BookingRepo) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("calendar_event_id = ?", eventID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *BookingRepo) ListUpcomingStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", domain.BookingStatusUpcoming).
		Where("start_time >= ?", from).
		Where("start_time <= ?", to).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListUpcomingEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", domain.BookingStatusUpcoming).
		Where("end_time < ?", cutoff).
		OrderExpr("end_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SetNotificationFlag reads then writes the flag map. Two overlapping
// scheduler runs can both observe a false flag; that double fire is an
// accepted race.
func (r *BookingRepo) SetNotificationFlag(ctx context.Context, id uuid.UUID, lead string) error {
	b, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.NotificationSent == nil {
		b.NotificationSent = make(map[string]bool)
	}
	b.NotificationSent[lead] = true
	_, err = r.db.NewUpdate().
		Model(&b).
		Column("notification_sent", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (r *BookingRepo) SetRecordingFlag(ctx context.Context, id uuid.UUID, trigger string) error {
	b, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.RecordingFetched == nil {
		b.RecordingFetched = make(map[string]bool)
	}
	b.RecordingFetched[trigger] = true
	_, err = r.db.NewUpdate().
		Model(&b).
		Column("recording_fetched", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
