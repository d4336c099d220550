package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mazoezi/backend/core/attendance"
	inmemdb "github.com/mazoezi/backend/storage/database/inmem"
	testutil "github.com/mazoezi/backend/tests"
)

const (
	memberID = "11111111-1111-1111-1111-111111111111"
	gymID    = "22222222-2222-2222-2222-222222222222"
)

func setup() (*attendance.Service, attendance.Repository, *testutil.Logger) {
	db := inmemdb.Open()
	repo := inmemdb.NewAttendanceRepository(db)
	logger := testutil.NewLogger()
	return attendance.NewService(repo, logger), repo, logger
}

func TestService_RecordScan_checkInThenOut(t *testing.T) {
	svc, repo, _ := setup()
	ctx := context.Background()

	checkIn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	res := svc.RecordScan(ctx, memberID, gymID, checkIn)
	if res.Outcome != attendance.OutcomeCheckedIn {
		t.Fatalf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeCheckedIn)
	}
	if res.Message != "Welcome to the gym! Session started." {
		t.Errorf("RecordScan() message = %q", res.Message)
	}

	open, err := repo.FindOpenSessions(ctx, memberID, gymID)
	if err != nil {
		t.Fatalf("FindOpenSessions(): %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open sessions = %d, want 1", len(open))
	}
	if open[0].DateKey != "2024-03-01" {
		t.Errorf("DateKey = %s, want 2024-03-01", open[0].DateKey)
	}
	if open[0].Method != attendance.MethodQRScan {
		t.Errorf("Method = %s, want %s", open[0].Method, attendance.MethodQRScan)
	}

	// 1h35m later, the same scan checks the member out
	checkOut := checkIn.Add(95 * time.Minute)
	res = svc.RecordScan(ctx, memberID, gymID, checkOut)
	if res.Outcome != attendance.OutcomeCheckedOut {
		t.Fatalf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeCheckedOut)
	}
	if res.Message != "See you next time! Session duration: 1h 35m" {
		t.Errorf("RecordScan() message = %q", res.Message)
	}
	if res.DurationMinutes == nil || *res.DurationMinutes != 95 {
		t.Errorf("DurationMinutes = %v, want 95", res.DurationMinutes)
	}

	sess, err := repo.FilterSessions(ctx, attendance.QueryFilter{MemberID: memberID})
	if err != nil {
		t.Fatalf("FilterSessions(): %v", err)
	}
	if len(sess) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sess))
	}
	if sess[0].Status != attendance.StatusClosed {
		t.Errorf("Status = %s, want %s", sess[0].Status, attendance.StatusClosed)
	}
	if sess[0].CheckOutTime == nil || !sess[0].CheckOutTime.Equal(checkOut) {
		t.Errorf("CheckOutTime = %v, want %v", sess[0].CheckOutTime, checkOut)
	}

	// a third scan opens a fresh session
	res = svc.RecordScan(ctx, memberID, gymID, checkOut.Add(time.Hour))
	if res.Outcome != attendance.OutcomeCheckedIn {
		t.Fatalf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeCheckedIn)
	}
}

func TestService_RecordScan_badInput(t *testing.T) {
	svc, _, _ := setup()
	now := time.Now().UTC()

	tests := []struct {
		name     string
		memberID string
		gymID    string
	}{
		{name: "no member", gymID: gymID},
		{name: "no gym", memberID: memberID},
		{name: "neither"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.RecordScan(context.Background(), tt.memberID, tt.gymID, now)
			if res.Outcome != attendance.OutcomeFailed {
				t.Errorf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeFailed)
			}
			if res.Message != "Invalid scan." {
				t.Errorf("RecordScan() message = %q", res.Message)
			}
		})
	}
}

// DateKey reflects the check-in instant, even when the session spans midnight.
func TestService_RecordScan_midnightSpan(t *testing.T) {
	svc, repo, _ := setup()
	ctx := context.Background()

	checkIn := time.Date(2024, 3, 1, 23, 50, 0, 0, time.UTC)
	svc.RecordScan(ctx, memberID, gymID, checkIn)

	res := svc.RecordScan(ctx, memberID, gymID, checkIn.Add(30*time.Minute))
	if res.Outcome != attendance.OutcomeCheckedOut {
		t.Fatalf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeCheckedOut)
	}

	sess, _ := repo.FilterSessions(ctx, attendance.QueryFilter{MemberID: memberID})
	if sess[0].DateKey != "2024-03-01" {
		t.Errorf("DateKey = %s, want 2024-03-01", sess[0].DateKey)
	}
}

// A check-out timestamp before the check-in (clock skew) stores a zero
// duration, never a negative one.
func TestService_RecordScan_clockSkew(t *testing.T) {
	svc, _, logger := setup()
	ctx := context.Background()

	checkIn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.RecordScan(ctx, memberID, gymID, checkIn)

	res := svc.RecordScan(ctx, memberID, gymID, checkIn.Add(-10*time.Minute))
	if res.Outcome != attendance.OutcomeCheckedOut {
		t.Fatalf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeCheckedOut)
	}
	if res.DurationMinutes == nil || *res.DurationMinutes != 0 {
		t.Errorf("DurationMinutes = %v, want 0", res.DurationMinutes)
	}
	if len(logger.Messages) == 0 {
		t.Error("expected a skew warning to be logged")
	}
}

// Concurrent scans for the same pair never produce two open sessions.
func TestService_RecordScan_concurrent(t *testing.T) {
	svc, repo, _ := setup()
	ctx := context.Background()
	now := time.Now().UTC()

	const scans = 8
	var wg sync.WaitGroup
	results := make([]attendance.ScanResult, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.RecordScan(ctx, memberID, gymID, now)
		}(i)
	}
	wg.Wait()

	// every scan resolves to a definite outcome
	for i, res := range results {
		if res.Outcome == "" {
			t.Errorf("scan %d has no outcome", i)
		}
	}

	open, err := repo.FindOpenSessions(ctx, memberID, gymID)
	if err != nil {
		t.Fatalf("FindOpenSessions(): %v", err)
	}
	if len(open) > 1 {
		t.Errorf("open sessions = %d, want at most 1", len(open))
	}
}

// stubRepo forces the conflict paths that cannot be reached deterministically
// through the in-memory store.
type stubRepo struct {
	attendance.Repository

	openSessions  []attendance.Session
	createErr     error
	closeErr      error
	reReadWinners []attendance.Session
	reRead        bool
}

func (s *stubRepo) FindOpenSessions(context.Context, string, string) ([]attendance.Session, error) {
	if s.reRead {
		return s.reReadWinners, nil
	}
	s.reRead = true
	return s.openSessions, nil
}

func (s *stubRepo) CreateSession(_ context.Context, sess attendance.Session) (attendance.Session, error) {
	if s.createErr != nil {
		return attendance.Session{}, s.createErr
	}
	return sess, nil
}

func (s *stubRepo) CloseSession(_ context.Context, _ string, checkOut time.Time, durationMinutes int) (attendance.Session, error) {
	if s.closeErr != nil {
		return attendance.Session{}, s.closeErr
	}
	return attendance.Session{Status: attendance.StatusClosed, CheckOutTime: &checkOut, DurationMinutes: &durationMinutes}, nil
}

// Losing the create race reports the winner's check-in instead of failing.
func TestService_RecordScan_createConflict(t *testing.T) {
	winner := attendance.Session{ID: "winner", MemberID: memberID, GymID: gymID, Status: attendance.StatusOpen}
	repo := &stubRepo{
		createErr:     attendance.ErrOpenSessionExists,
		reReadWinners: []attendance.Session{winner},
	}
	svc := attendance.NewService(repo, testutil.NewLogger())

	res := svc.RecordScan(context.Background(), memberID, gymID, time.Now().UTC())
	if res.Outcome != attendance.OutcomeCheckedIn {
		t.Errorf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeCheckedIn)
	}
}

// Losing the close race fails: the concurrent close is authoritative.
func TestService_RecordScan_closeConflict(t *testing.T) {
	open := attendance.Session{
		ID:          "sess",
		MemberID:    memberID,
		GymID:       gymID,
		Status:      attendance.StatusOpen,
		CheckInTime: time.Now().UTC().Add(-time.Hour),
	}
	repo := &stubRepo{
		openSessions: []attendance.Session{open},
		closeErr:     attendance.ErrSessionNotOpen,
	}
	svc := attendance.NewService(repo, testutil.NewLogger())

	res := svc.RecordScan(context.Background(), memberID, gymID, time.Now().UTC())
	if res.Outcome != attendance.OutcomeFailed {
		t.Errorf("RecordScan() outcome = %s, want %s", res.Outcome, attendance.OutcomeFailed)
	}
	if res.Message != "Failed to process attendance." {
		t.Errorf("RecordScan() message = %q", res.Message)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0h 0m"},
		{35, "0h 35m"},
		{60, "1h 0m"},
		{95, "1h 35m"},
		{125, "2h 5m"},
	}
	for _, tt := range tests {
		if got := attendance.FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
