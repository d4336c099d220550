package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/mazoezi/backend/core/attendance"
)

type attendanceRepository struct {
	db *sessionTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.session}
}

// query returns sessions most recently checked in first.
func (repo *attendanceRepository) query() []attendance.Session {
	sesss := make([]attendance.Session, 0, len(repo.db.table))
	for _, sess := range repo.db.table {
		sesss = append(sesss, *sess)
	}
	sort.Slice(sesss, func(i, j int) bool { return sesss[i].CheckInTime.After(sesss[j].CheckInTime) })
	return sesss
}

func (repo *attendanceRepository) FindOpenSessions(_ context.Context, memberID, gymID string) ([]attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var open []attendance.Session
	for _, sess := range repo.query() {
		if sess.MemberID == memberID && sess.GymID == gymID && sess.IsOpen() {
			open = append(open, sess)
		}
	}
	return open, nil
}

func (repo *attendanceRepository) CreateSession(_ context.Context, sess attendance.Session) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// open-session uniqueness, same guard the partial unique index enforces
	for _, existing := range repo.db.table {
		if existing.MemberID == sess.MemberID && existing.GymID == sess.GymID && existing.IsOpen() {
			return attendance.Session{}, attendance.ErrOpenSessionExists
		}
	}

	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *attendanceRepository) CloseSession(_ context.Context, id string, checkOut time.Time, durationMinutes int) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sess, ok := repo.db.table[id]
	if !ok || !sess.IsOpen() {
		return attendance.Session{}, attendance.ErrSessionNotOpen
	}

	checkOut = checkOut.UTC()
	sess.Status = attendance.StatusClosed
	sess.CheckOutTime = &checkOut
	sess.DurationMinutes = &durationMinutes
	return *sess, nil
}

func (repo *attendanceRepository) FilterSessions(_ context.Context, filter attendance.QueryFilter) ([]attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var sesss []attendance.Session
	for _, sess := range repo.query() {
		if filter.MemberID != "" && sess.MemberID != filter.MemberID {
			continue
		}
		if filter.GymID != "" && sess.GymID != filter.GymID {
			continue
		}
		if filter.Status != "" && sess.Status != filter.Status {
			continue
		}
		if filter.DateKey != "" && sess.DateKey != filter.DateKey {
			continue
		}
		sesss = append(sesss, sess)
		if filter.Limit > 0 && len(sesss) == filter.Limit {
			break
		}
	}
	return sesss, nil
}

func (repo *attendanceRepository) CountOnDate(_ context.Context, gymID, dateKey string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, sess := range repo.db.table {
		if sess.GymID == gymID && sess.DateKey == dateKey {
			count++
		}
	}
	return count, nil
}

func (repo *attendanceRepository) DailyCounts(_ context.Context, gymID string, dateKeys []string) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	keys := make(map[string]bool, len(dateKeys))
	for _, key := range dateKeys {
		keys[key] = true
	}

	counts := make(map[string]int, len(dateKeys))
	for _, sess := range repo.db.table {
		if sess.GymID == gymID && keys[sess.DateKey] {
			counts[sess.DateKey]++
		}
	}
	return counts, nil
}
