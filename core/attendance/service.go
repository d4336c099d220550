package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mazoezi/backend/core"
)

var (
	// errors
	ErrNotFound = errors.New("session not found")
	// ErrOpenSessionExists is returned by Repository.CreateSession when an
	// OPEN session already exists for the (member, gym) pair. The store
	// enforces this uniqueness, which turns a concurrent double check-in
	// into a well-defined conflict instead of duplicate state.
	ErrOpenSessionExists = errors.New("an open session already exists for this member and gym")
	// ErrSessionNotOpen is returned by Repository.CloseSession when the
	// session is no longer OPEN at write time (closed by a concurrent scan).
	ErrSessionNotOpen = errors.New("session is not open")
)

// user-facing messages; raw store errors never reach the member UI.
const (
	msgCheckedIn  = "Welcome to the gym! Session started."
	msgFailed     = "Failed to process attendance."
	msgBadScan    = "Invalid scan."
	checkedOutFmt = "See you next time! Session duration: %s"
)

type (
	Repository interface {
		// FindOpenSessions returns every OPEN session for the pair, most
		// recent check-in first. At most one should ever exist.
		FindOpenSessions(ctx context.Context, memberID, gymID string) ([]Session, error)
		// CreateSession inserts a new session. ErrOpenSessionExists signals
		// the open-session uniqueness guard rejected a duplicate check-in.
		CreateSession(ctx context.Context, sess Session) (Session, error)
		// CloseSession transitions the session to CLOSED iff it is still
		// OPEN at write time; ErrSessionNotOpen otherwise.
		CloseSession(ctx context.Context, id string, checkOut time.Time, durationMinutes int) (Session, error)
		// FilterSessions applies AND operation on available QueryFilter
		// fields, most recent check-in first.
		FilterSessions(ctx context.Context, filter QueryFilter) ([]Session, error)
		// CountOnDate counts a gym's sessions whose DateKey equals dateKey.
		CountOnDate(ctx context.Context, gymID, dateKey string) (int, error)
		// DailyCounts returns per-dateKey session counts for a gym.
		DailyCounts(ctx context.Context, gymID string, dateKeys []string) (map[string]int, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RecordScan converts a single scan event into the correct session-state
// transition. Whether this is a check-in or a check-out is inferred from the
// existence of an OPEN session; the member does not declare intent.
// `now` is injected to keep the transition deterministic under test.
func (svc *Service) RecordScan(ctx context.Context, memberID, gymID string, now time.Time) ScanResult {
	if memberID == "" || gymID == "" {
		return ScanResult{Outcome: OutcomeFailed, Message: msgBadScan}
	}
	now = now.UTC()

	open, err := svc.repo.FindOpenSessions(ctx, memberID, gymID)
	if err != nil {
		svc.logger.Error("attendance: finding open session", err)
		return ScanResult{Outcome: OutcomeFailed, Message: msgFailed}
	}

	if len(open) > 0 {
		if len(open) > 1 {
			// should be impossible under the uniqueness guard; recover
			// deterministically with the most recent session.
			svc.logger.Warn(fmt.Sprintf(
				"attendance: %d open sessions for member=%s gym=%s; closing most recent", len(open), memberID, gymID))
		}
		return svc.checkOut(ctx, open[0], now)
	}
	return svc.checkIn(ctx, memberID, gymID, now)
}

func (svc *Service) checkIn(ctx context.Context, memberID, gymID string, now time.Time) ScanResult {
	sess := Session{
		ID:          uuid.New().String(),
		MemberID:    memberID,
		GymID:       gymID,
		CheckInTime: now,
		Status:      StatusOpen,
		DateKey:     now.Format(DateKeyLayout),
		Method:      MethodQRScan,
		CreatedAt:   now,
	}

	if _, err := svc.repo.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, ErrOpenSessionExists) {
			// lost a double-scan race: a concurrent call already opened the
			// session. Report that check-in rather than duplicating it.
			if winners, ferr := svc.repo.FindOpenSessions(ctx, memberID, gymID); ferr == nil && len(winners) > 0 {
				return ScanResult{Outcome: OutcomeCheckedIn, Message: msgCheckedIn}
			}
			return ScanResult{Outcome: OutcomeFailed, Message: msgFailed}
		}
		svc.logger.Error("attendance: creating session", err)
		return ScanResult{Outcome: OutcomeFailed, Message: msgFailed}
	}
	return ScanResult{Outcome: OutcomeCheckedIn, Message: msgCheckedIn}
}

func (svc *Service) checkOut(ctx context.Context, sess Session, now time.Time) ScanResult {
	duration := int(now.Sub(sess.CheckInTime) / time.Minute)
	if duration < 0 {
		// clock skew or stale read: a negative duration must never be stored
		svc.logger.Warn(fmt.Sprintf(
			"attendance: check-out before check-in for session=%s (skew %v); clamping duration to 0",
			sess.ID, sess.CheckInTime.Sub(now)))
		duration = 0
	}

	if _, err := svc.repo.CloseSession(ctx, sess.ID, now, duration); err != nil {
		if errors.Is(err, ErrSessionNotOpen) {
			// a concurrent scan already closed it; that close is
			// authoritative and must not be overwritten.
			return ScanResult{Outcome: OutcomeFailed, Message: msgFailed}
		}
		svc.logger.Error("attendance: closing session", err)
		return ScanResult{Outcome: OutcomeFailed, Message: msgFailed}
	}

	return ScanResult{
		Outcome:         OutcomeCheckedOut,
		Message:         fmt.Sprintf(checkedOutFmt, FormatDuration(duration)),
		DurationMinutes: &duration,
	}
}

// MemberHistory returns a member's sessions, most recent first.
func (svc *Service) MemberHistory(ctx context.Context, memberID string, limit int) ([]Session, error) {
	return svc.repo.FilterSessions(ctx, QueryFilter{MemberID: memberID, Limit: limit})
}

// GymSessions returns a gym's sessions, optionally narrowed to a calendar day.
func (svc *Service) GymSessions(ctx context.Context, gymID, dateKey string, limit int) ([]Session, error) {
	return svc.repo.FilterSessions(ctx, QueryFilter{GymID: gymID, DateKey: dateKey, Limit: limit})
}
