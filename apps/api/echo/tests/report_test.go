package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/mazoezi/backend/apps/api/echo"
	"github.com/mazoezi/backend/core/report"
	"github.com/mazoezi/backend/core/user"
	testutil "github.com/mazoezi/backend/tests"
)

func TestReportAPI_dashboards(t *testing.T) {
	srv := setup(t)

	testutil.CreateGym(t, gymRepo, gym1ID, "Iron Temple", "Nairobi", true)
	member := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "pwd", user.RoleMember, user.StatusActive, gym1ID)
	admin := testutil.CreateUser(t, usrRepo, "u2", "Admin", "admin@test.test", "pwd", user.RoleGymAdmin, user.StatusActive, gym1ID)
	super := testutil.CreateUser(t, usrRepo, "u3", "Super", "super@test.test", "pwd", user.RoleSuperAdmin, user.StatusActive, "")

	memberToken := getToken(t, member)
	adminToken := getToken(t, admin)

	// a completed visit for the member
	scanBody := marchallObj(t, ScanRequest{Code: gym1ID})
	for i := 0; i < 2; i++ {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/scan", memberToken, scanBody)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("scan code = %d: %s", rec.Code, rec.Body.String())
		}
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/reports/member-dashboard", memberToken)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("member dashboard code = %d: %s", rec.Code, rec.Body.String())
	}
	var md report.MemberDashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &md); err != nil {
		t.Fatalf("unmarshalling dashboard: %v", err)
	}
	if md.Gym == nil || md.Gym.ID != gym1ID {
		t.Errorf("Gym = %v, want %s", md.Gym, gym1ID)
	}
	if md.CompletedSessions != 1 {
		t.Errorf("CompletedSessions = %d, want 1", md.CompletedSessions)
	}

	// members cannot pull the gym dashboard
	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/gym-dashboard", memberToken)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/gym-dashboard", adminToken)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("gym dashboard code = %d: %s", rec.Code, rec.Body.String())
	}
	var gd report.GymDashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &gd); err != nil {
		t.Fatalf("unmarshalling dashboard: %v", err)
	}
	if gd.TotalMembers != 1 { // admins are not members
		t.Errorf("TotalMembers = %d, want 1", gd.TotalMembers)
	}
	if gd.TodayCheckins != 1 {
		t.Errorf("TodayCheckins = %d, want 1", gd.TodayCheckins)
	}

	// a super admin without a target gym gets nothing to report on
	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/gym-dashboard", getToken(t, super))
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/gym-dashboard?gym_id="+gym1ID, getToken(t, super))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("gym dashboard code = %d: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/platform-dashboard", adminToken)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/platform-dashboard", getToken(t, super))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("platform dashboard code = %d: %s", rec.Code, rec.Body.String())
	}
	var pd report.PlatformDashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &pd); err != nil {
		t.Fatalf("unmarshalling dashboard: %v", err)
	}
	if pd.TotalGyms != 1 || pd.ActiveGyms != 1 {
		t.Errorf("gyms = %d/%d active, want 1/1", pd.TotalGyms, pd.ActiveGyms)
	}
}
