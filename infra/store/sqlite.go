// Package store provides the SQLite-backed persistence layer. It mirrors
// the in-memory store's contract: every method is one transaction, and the
// acceptance race is settled by a conditional UPDATE on the unassigned row.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jbleroy/fieldops/core/billing"
	"github.com/jbleroy/fieldops/core/lifecycle"
	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/core/status"
	corestore "github.com/jbleroy/fieldops/core/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS missions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    billing_status TEXT NOT NULL DEFAULT 'pending',
    lat REAL,
    lng REAL,
    assigned_user_id TEXT NOT NULL DEFAULT '',
    scheduled_start INTEGER NOT NULL DEFAULT 0,
    scheduled_end INTEGER NOT NULL DEFAULT 0,
    estimated_seconds INTEGER NOT NULL DEFAULT 0,
    price_total INTEGER NOT NULL DEFAULT 0,
    price_subcontractor INTEGER NOT NULL DEFAULT 0,
    pause_reason TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS offers (
    id TEXT PRIMARY KEY,
    mission_id TEXT NOT NULL,
    candidate_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    accepted_at INTEGER,
    refused_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_offers_mission ON offers(mission_id);
CREATE TABLE IF NOT EXISTS invoices (
    mission_id TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    lines TEXT NOT NULL,
    subtotal INTEGER NOT NULL,
    vat_total INTEGER NOT NULL,
    grand_total INTEGER NOT NULL,
    issued_at INTEGER NOT NULL,
    paid_at INTEGER,
    method TEXT NOT NULL DEFAULT '',
    reference TEXT NOT NULL DEFAULT ''
);`

// SQLiteStore persists the dispatch state in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ corestore.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite allows one writer; serializing connections keeps every
	// transaction strictly ordered.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func nullNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64)
	return &t
}

func (s *SQLiteStore) CreateMission(ctx context.Context, m model.Mission) error {
	var lat, lng any
	if m.Location != nil {
		lat, lng = m.Location.Lat, m.Location.Lng
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO missions
        (id, title, status, billing_status, lat, lng, assigned_user_id,
         scheduled_start, scheduled_end, estimated_seconds,
         price_total, price_subcontractor, pause_reason, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, m.Status.String(), m.BillingStatus.String(), lat, lng,
		m.AssignedUserID, nanos(m.ScheduledStart), nanos(m.ScheduledEnd),
		int64(m.EstimatedDuration/time.Second), m.PriceTotal, m.PriceSubcontractor,
		m.PauseReason, nanos(m.CreatedAt), nanos(m.UpdatedAt))
	return err
}

const missionColumns = `id, title, status, billing_status, lat, lng, assigned_user_id,
    scheduled_start, scheduled_end, estimated_seconds,
    price_total, price_subcontractor, pause_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMission(row rowScanner) (model.Mission, error) {
	var (
		m                    model.Mission
		st, bst              string
		lat, lng             sql.NullFloat64
		start, end, estimate int64
		created, updated     int64
	)
	err := row.Scan(&m.ID, &m.Title, &st, &bst, &lat, &lng, &m.AssignedUserID,
		&start, &end, &estimate, &m.PriceTotal, &m.PriceSubcontractor,
		&m.PauseReason, &created, &updated)
	if err == sql.ErrNoRows {
		return model.Mission{}, corestore.ErrNotFound
	}
	if err != nil {
		return model.Mission{}, err
	}
	m.Status = status.ParseLifecycle(st)
	m.BillingStatus = status.ParseBilling(bst)
	if lat.Valid && lng.Valid {
		m.Location = &model.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
	}
	m.ScheduledStart = fromNanos(start)
	m.ScheduledEnd = fromNanos(end)
	m.EstimatedDuration = time.Duration(estimate) * time.Second
	m.CreatedAt = fromNanos(created)
	m.UpdatedAt = fromNanos(updated)
	return m, nil
}

func (s *SQLiteStore) GetMission(ctx context.Context, id string) (model.Mission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = ?`, id)
	return scanMission(row)
}

func getMissionTx(ctx context.Context, tx *sql.Tx, id string) (model.Mission, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = ?`, id)
	return scanMission(row)
}

func writeMissionTx(ctx context.Context, tx *sql.Tx, m model.Mission) error {
	var lat, lng any
	if m.Location != nil {
		lat, lng = m.Location.Lat, m.Location.Lng
	}
	res, err := tx.ExecContext(ctx, `UPDATE missions SET
        title = ?, status = ?, billing_status = ?, lat = ?, lng = ?,
        assigned_user_id = ?, scheduled_start = ?, scheduled_end = ?,
        estimated_seconds = ?, price_total = ?, price_subcontractor = ?,
        pause_reason = ?, updated_at = ?
        WHERE id = ?`,
		m.Title, m.Status.String(), m.BillingStatus.String(), lat, lng,
		m.AssignedUserID, nanos(m.ScheduledStart), nanos(m.ScheduledEnd),
		int64(m.EstimatedDuration/time.Second), m.PriceTotal, m.PriceSubcontractor,
		m.PauseReason, nanos(m.UpdatedAt), m.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return corestore.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateMission(ctx context.Context, m model.Mission) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return writeMissionTx(ctx, tx, m)
	})
}

func (s *SQLiteStore) DeleteMission(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM missions WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return corestore.ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM offers WHERE mission_id = ?`, id)
		return err
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Transition(ctx context.Context, id string, op lifecycle.Op, mutate func(*model.Mission) error) (model.Mission, model.Mission, error) {
	var prev, cur model.Mission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		prev, err = getMissionTx(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := lifecycle.Next(prev.Status, op)
		if err != nil {
			cur = prev
			return err
		}
		cur = prev
		cur.Status = next
		if mutate != nil {
			if err := mutate(&cur); err != nil {
				cur = prev
				return err
			}
		}
		cur.UpdatedAt = time.Now()
		return writeMissionTx(ctx, tx, cur)
	})
	return prev, cur, err
}

func (s *SQLiteStore) CreateOffers(ctx context.Context, offers []model.Offer) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, o := range offers {
			_, err := tx.ExecContext(ctx, `INSERT INTO offers
                (id, mission_id, candidate_id, created_at, expires_at, accepted_at, refused_at)
                VALUES (?, ?, ?, ?, ?, ?, ?)`,
				o.ID, o.MissionID, o.CandidateID, nanos(o.CreatedAt), nanos(o.ExpiresAt),
				nullNanos(o.AcceptedAt), nullNanos(o.RefusedAt))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func scanOffers(rows *sql.Rows) ([]model.Offer, error) {
	var res []model.Offer
	for rows.Next() {
		var (
			o                 model.Offer
			created, expires  int64
			accepted, refused sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.MissionID, &o.CandidateID, &created, &expires, &accepted, &refused); err != nil {
			return nil, err
		}
		o.CreatedAt = fromNanos(created)
		o.ExpiresAt = fromNanos(expires)
		o.AcceptedAt = fromNullNanos(accepted)
		o.RefusedAt = fromNullNanos(refused)
		res = append(res, o)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) OffersByMission(ctx context.Context, missionID string) ([]model.Offer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, mission_id, candidate_id, created_at, expires_at, accepted_at, refused_at
        FROM offers WHERE mission_id = ? ORDER BY created_at`, missionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanOffers(rows)
}

func (s *SQLiteStore) AcceptOffer(ctx context.Context, missionID, candidateID string, now time.Time) (model.Offer, model.Mission, error) {
	var (
		offer   model.Offer
		mission model.Mission
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMissionTx(ctx, tx, missionID)
		if err != nil {
			return err
		}
		mission = m
		if m.Assigned() {
			return corestore.ErrMissionAssigned
		}

		// Claim the candidate's live offer. The WHERE clause is the liveness
		// predicate; zero rows means no live offer.
		res, err := tx.ExecContext(ctx, `UPDATE offers SET accepted_at = ?
            WHERE mission_id = ? AND candidate_id = ?
              AND accepted_at IS NULL AND refused_at IS NULL AND expires_at > ?`,
			now.UnixNano(), missionID, candidateID, now.UnixNano())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return corestore.ErrNoLiveOffer
		}

		if err := voidLiveOffersTx(ctx, tx, missionID, now, candidateID); err != nil {
			return err
		}

		// The winner is settled by this conditional write: it only lands on
		// the still-unassigned row.
		res, err = tx.ExecContext(ctx, `UPDATE missions
            SET assigned_user_id = ?, status = ?, updated_at = ?
            WHERE id = ? AND assigned_user_id = ''`,
			candidateID, status.Assigned.String(), now.UnixNano(), missionID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return corestore.ErrMissionAssigned
		}

		mission.AssignedUserID = candidateID
		mission.Status = status.Assigned
		mission.UpdatedAt = now
		acceptedAt := now
		row := tx.QueryRowContext(ctx, `SELECT id, created_at, expires_at FROM offers
            WHERE mission_id = ? AND candidate_id = ? AND accepted_at = ?`,
			missionID, candidateID, now.UnixNano())
		var created, expires int64
		if err := row.Scan(&offer.ID, &created, &expires); err != nil {
			return err
		}
		offer.MissionID = missionID
		offer.CandidateID = candidateID
		offer.CreatedAt = fromNanos(created)
		offer.ExpiresAt = fromNanos(expires)
		offer.AcceptedAt = &acceptedAt
		return nil
	})
	if err != nil {
		return model.Offer{}, mission, err
	}
	return offer, mission, nil
}

func (s *SQLiteStore) RefuseOffer(ctx context.Context, missionID, candidateID string, now time.Time) (model.Offer, error) {
	var offer model.Offer
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE offers SET refused_at = ?
            WHERE mission_id = ? AND candidate_id = ?
              AND accepted_at IS NULL AND refused_at IS NULL AND expires_at > ?`,
			now.UnixNano(), missionID, candidateID, now.UnixNano())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return corestore.ErrNoLiveOffer
		}
		row := tx.QueryRowContext(ctx, `SELECT id, created_at, expires_at FROM offers
            WHERE mission_id = ? AND candidate_id = ? AND refused_at = ?`,
			missionID, candidateID, now.UnixNano())
		var created, expires int64
		if err := row.Scan(&offer.ID, &created, &expires); err != nil {
			return err
		}
		offer.MissionID = missionID
		offer.CandidateID = candidateID
		offer.CreatedAt = fromNanos(created)
		offer.ExpiresAt = fromNanos(expires)
		refusedAt := now
		offer.RefusedAt = &refusedAt
		return nil
	})
	if err != nil {
		return model.Offer{}, err
	}
	return offer, nil
}

func (s *SQLiteStore) AssignMission(ctx context.Context, missionID, userID string, now time.Time) (model.Mission, error) {
	var mission model.Mission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMissionTx(ctx, tx, missionID)
		if err != nil {
			return err
		}
		mission = m
		if m.Assigned() {
			return corestore.ErrMissionAssigned
		}
		if _, err := lifecycle.Next(m.Status, lifecycle.OpAssign); err != nil {
			return err
		}
		if err := voidLiveOffersTx(ctx, tx, missionID, now, ""); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE missions
            SET assigned_user_id = ?, status = ?, updated_at = ?
            WHERE id = ? AND assigned_user_id = ''`,
			userID, status.Assigned.String(), now.UnixNano(), missionID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return corestore.ErrMissionAssigned
		}
		mission.AssignedUserID = userID
		mission.Status = status.Assigned
		mission.UpdatedAt = now
		return nil
	})
	if err != nil {
		return mission, err
	}
	return mission, nil
}

// voidLiveOffersTx expires live offers, optionally sparing one candidate.
func voidLiveOffersTx(ctx context.Context, tx *sql.Tx, missionID string, now time.Time, except string) error {
	_, err := tx.ExecContext(ctx, `UPDATE offers SET expires_at = ?
        WHERE mission_id = ? AND candidate_id != ?
          AND accepted_at IS NULL AND refused_at IS NULL AND expires_at > ?`,
		now.UnixNano(), missionID, except, now.UnixNano())
	return err
}

func (s *SQLiteStore) VoidLiveOffers(ctx context.Context, missionID string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE offers SET expires_at = ?
        WHERE mission_id = ?
          AND accepted_at IS NULL AND refused_at IS NULL AND expires_at > ?`,
		now.UnixNano(), missionID, now.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offers
        WHERE accepted_at IS NULL AND refused_at IS NULL AND expires_at <= ?`,
		now.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) IssueInvoice(ctx context.Context, inv model.Invoice) (model.Mission, error) {
	var mission model.Mission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMissionTx(ctx, tx, inv.MissionID)
		if err != nil {
			return err
		}
		mission = m
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM invoices WHERE mission_id = ?`, inv.MissionID).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return billing.ErrInvoiceAlreadyExists
		}
		next, err := lifecycle.Next(m.Status, lifecycle.OpInvoice)
		if err != nil {
			return err
		}
		lines, err := json.Marshal(inv.Lines)
		if err != nil {
			return fmt.Errorf("encode invoice lines: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO invoices
            (mission_id, id, lines, subtotal, vat_total, grand_total, issued_at, paid_at, method, reference)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.MissionID, inv.ID, string(lines), inv.SubtotalMinor, inv.VATTotalMinor,
			inv.GrandTotalMinor, nanos(inv.IssuedAt), nullNanos(inv.PaidAt), inv.Method, inv.Reference)
		if err != nil {
			return err
		}
		mission.Status = next
		mission.BillingStatus = status.BillingInvoiced
		mission.UpdatedAt = inv.IssuedAt
		return writeMissionTx(ctx, tx, mission)
	})
	if err != nil {
		return mission, err
	}
	return mission, nil
}

func scanInvoice(row rowScanner) (model.Invoice, error) {
	var (
		inv    model.Invoice
		lines  string
		issued int64
		paid   sql.NullInt64
	)
	err := row.Scan(&inv.MissionID, &inv.ID, &lines, &inv.SubtotalMinor, &inv.VATTotalMinor,
		&inv.GrandTotalMinor, &issued, &paid, &inv.Method, &inv.Reference)
	if err == sql.ErrNoRows {
		return model.Invoice{}, corestore.ErrNotFound
	}
	if err != nil {
		return model.Invoice{}, err
	}
	if err := json.Unmarshal([]byte(lines), &inv.Lines); err != nil {
		return model.Invoice{}, fmt.Errorf("decode invoice lines: %w", err)
	}
	inv.IssuedAt = fromNanos(issued)
	inv.PaidAt = fromNullNanos(paid)
	return inv, nil
}

const invoiceColumns = `mission_id, id, lines, subtotal, vat_total, grand_total, issued_at, paid_at, method, reference`

func (s *SQLiteStore) InvoiceByMission(ctx context.Context, missionID string) (model.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE mission_id = ?`, missionID)
	return scanInvoice(row)
}

func (s *SQLiteStore) MarkInvoicePaid(ctx context.Context, missionID string, now time.Time, method, reference string) (model.Invoice, model.Mission, error) {
	var (
		inv     model.Invoice
		mission model.Mission
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE mission_id = ?`, missionID)
		got, err := scanInvoice(row)
		if err == corestore.ErrNotFound {
			return billing.ErrNoUnpaidInvoice
		}
		if err != nil {
			return err
		}
		if got.Paid() {
			return billing.ErrNoUnpaidInvoice
		}
		m, err := getMissionTx(ctx, tx, missionID)
		if err != nil {
			return err
		}
		mission = m
		next, err := lifecycle.Next(m.Status, lifecycle.OpMarkPaid)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE invoices SET paid_at = ?, method = ?, reference = ?
            WHERE mission_id = ?`, now.UnixNano(), method, reference, missionID)
		if err != nil {
			return err
		}
		paidAt := now
		got.PaidAt = &paidAt
		got.Method = method
		got.Reference = reference
		inv = got
		mission.Status = next
		mission.BillingStatus = status.BillingPaid
		mission.UpdatedAt = now
		return writeMissionTx(ctx, tx, mission)
	})
	if err != nil {
		return inv, mission, err
	}
	return inv, mission, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
