package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core/attendance"
)

// openSessionConstraint is the partial unique index that serializes
// concurrent check-ins for the same (member, gym).
const openSessionConstraint = "attendance_session_open_key"

type sessionRow struct {
	ID              string     `db:"id"`
	MemberID        string     `db:"member_id"`
	GymID           string     `db:"gym_id"`
	CheckInTime     time.Time  `db:"check_in_time"`
	CheckOutTime    *time.Time `db:"check_out_time"`
	Status          string     `db:"status"`
	DateKey         string     `db:"date_key"`
	DurationMinutes *int       `db:"duration_minutes"`
	Method          string     `db:"method"`
	CreatedAt       time.Time  `db:"created_at"`
}

func (row sessionRow) session() attendance.Session {
	sess := attendance.Session{
		ID:          row.ID,
		MemberID:    row.MemberID,
		GymID:       row.GymID,
		CheckInTime: row.CheckInTime.UTC(),
		Status:      row.Status,
		DateKey:     row.DateKey,
		Method:      row.Method,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if row.CheckOutTime != nil {
		t := row.CheckOutTime.UTC()
		sess.CheckOutTime = &t
	}
	if row.DurationMinutes != nil {
		d := *row.DurationMinutes
		sess.DurationMinutes = &d
	}
	return sess
}

func sessions(rows []sessionRow) []attendance.Session {
	sesss := make([]attendance.Session, 0, len(rows))
	for _, row := range rows {
		sesss = append(sesss, row.session())
	}
	return sesss
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) FindOpenSessions(ctx context.Context, memberID, gymID string) ([]attendance.Session, error) {
	const q = `
SELECT * FROM attendance_session
WHERE member_id = $1 AND gym_id = $2 AND status = 'OPEN'
ORDER BY check_in_time DESC`

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q, memberID, gymID); err != nil {
		return nil, errors.Wrap(err, "querying open sessions")
	}
	return sessions(rows), nil
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, sess attendance.Session) (attendance.Session, error) {
	const q = `
INSERT INTO attendance_session (id, member_id, gym_id, check_in_time, status, date_key, method, created_at)
VALUES (:id, :member_id, :gym_id, :check_in_time, :status, :date_key, :method, :created_at)`

	row := sessionRow{
		ID:          sess.ID,
		MemberID:    sess.MemberID,
		GymID:       sess.GymID,
		CheckInTime: sess.CheckInTime.UTC(),
		Status:      sess.Status,
		DateKey:     sess.DateKey,
		Method:      sess.Method,
		CreatedAt:   sess.CreatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation && pqErr.Constraint == openSessionConstraint {
			return attendance.Session{}, attendance.ErrOpenSessionExists
		}
		return attendance.Session{}, errors.Wrap(err, "creating session")
	}
	return row.session(), nil
}

// CloseSession transitions an OPEN session to CLOSED. The status predicate
// makes the update conditional: a session already closed by a concurrent scan
// matches no row and reports attendance.ErrSessionNotOpen.
func (repo *attendanceRepository) CloseSession(ctx context.Context, id string, checkOut time.Time, durationMinutes int) (attendance.Session, error) {
	const q = `
UPDATE attendance_session
SET status = 'CLOSED', check_out_time = $2, duration_minutes = $3
WHERE id = $1 AND status = 'OPEN'
RETURNING *`

	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, q, id, checkOut.UTC(), durationMinutes); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Session{}, attendance.ErrSessionNotOpen
		}
		return attendance.Session{}, errors.Wrap(err, "closing session")
	}
	return row.session(), nil
}

func (repo *attendanceRepository) FilterSessions(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Session, error) {
	var (
		conds []string
		args  []interface{}
	)
	appendCond := func(field string, val interface{}) {
		args = append(args, val)
		conds = append(conds, field+" = $"+strconv.Itoa(len(args)))
	}
	if filter.MemberID != "" {
		appendCond("member_id", filter.MemberID)
	}
	if filter.GymID != "" {
		appendCond("gym_id", filter.GymID)
	}
	if filter.Status != "" {
		appendCond("status", filter.Status)
	}
	if filter.DateKey != "" {
		appendCond("date_key", filter.DateKey)
	}

	q := "SELECT * FROM attendance_session"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY check_in_time DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += " LIMIT $" + strconv.Itoa(len(args))
	}

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions(rows), nil
}

func (repo *attendanceRepository) CountOnDate(ctx context.Context, gymID, dateKey string) (int, error) {
	const q = `SELECT count(*) FROM attendance_session WHERE gym_id = $1 AND date_key = $2`

	var count int
	if err := repo.db.GetContext(ctx, &count, q, gymID, dateKey); err != nil {
		return 0, errors.Wrap(err, "counting sessions")
	}
	return count, nil
}

func (repo *attendanceRepository) DailyCounts(ctx context.Context, gymID string, dateKeys []string) (map[string]int, error) {
	const q = `
SELECT date_key, count(*) AS visits FROM attendance_session
WHERE gym_id = $1 AND date_key = ANY ($2)
GROUP BY date_key`

	var rows []struct {
		DateKey string `db:"date_key"`
		Visits  int    `db:"visits"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, gymID, pq.Array(dateKeys)); err != nil {
		return nil, errors.Wrap(err, "querying daily counts")
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.DateKey] = row.Visits
	}
	return counts, nil
}
