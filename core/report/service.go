package report

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core/attendance"
	"github.com/mazoezi/backend/core/gym"
	"github.com/mazoezi/backend/core/plan"
	"github.com/mazoezi/backend/core/user"
)

const (
	recentSessionsLimit = 5
	recentActivityLimit = 10
	trendDays           = 7
	trendMonths         = 6
)

type (
	// DayVisits is one point of the visits-per-day trend.
	DayVisits struct {
		Day     string `json:"day"` // weekday label
		DateKey string `json:"date_key"`
		Visits  int    `json:"visits"`
	}

	MonthCount struct {
		Month string `json:"month"`
		Count int    `json:"count"`
	}

	MonthRevenue struct {
		Month   string  `json:"month"`
		Revenue float64 `json:"revenue"`
	}

	// Activity is a session enriched with the member's name for display.
	Activity struct {
		attendance.Session
		MemberName string `json:"member_name"`
	}

	MemberDashboard struct {
		User              user.User            `json:"user"`
		Gym               *gym.Gym             `json:"gym,omitempty"`
		PlanDaysLeft      *int                 `json:"plan_days_left,omitempty"`
		RecentSessions    []attendance.Session `json:"recent_sessions"`
		CompletedSessions int                  `json:"completed_sessions"`
	}

	GymDashboard struct {
		TotalMembers        int            `json:"total_members"`
		ActiveMembers       int            `json:"active_members"`
		PendingMembers      int            `json:"pending_members"`
		ExpiredMembers      int            `json:"expired_members"`
		ExpiringSoonMembers int            `json:"expiring_soon_members"`
		TodayCheckins       int            `json:"today_checkins"`
		WeeklyVisits        []DayVisits    `json:"weekly_visits"`
		MemberGrowth        []MonthCount   `json:"member_growth"`
		Revenue             []MonthRevenue `json:"revenue"`
		RecentActivity      []Activity     `json:"recent_activity"`
	}

	PlatformDashboard struct {
		TotalGyms    int `json:"total_gyms"`
		ActiveGyms   int `json:"active_gyms"`
		TotalAdmins  int `json:"total_admins"`
		TotalMembers int `json:"total_members"`
	}

	Service struct {
		users    user.Repository
		gyms     gym.Repository
		plans    plan.Repository
		sessions attendance.Repository
	}
)

func NewService(users user.Repository, gyms gym.Repository, plans plan.Repository, sessions attendance.Repository) *Service {
	return &Service{users: users, gyms: gyms, plans: plans, sessions: sessions}
}

// MemberDashboard assembles a member's home view: profile, gym, plan state
// and recent visits.
func (svc *Service) MemberDashboard(ctx context.Context, memberID string, now time.Time) (MemberDashboard, error) {
	usr, err := svc.users.GetUserByID(ctx, memberID)
	if err != nil {
		return MemberDashboard{}, errors.Wrap(err, "getting member")
	}

	dash := MemberDashboard{User: usr, PlanDaysLeft: usr.PlanDaysLeft(now)}

	if usr.GymID != "" {
		if g, err := svc.gyms.GetGymByID(ctx, usr.GymID); err == nil {
			dash.Gym = &g
		} else if err != gym.ErrNotFound {
			return MemberDashboard{}, errors.Wrap(err, "getting gym")
		}
	}

	recent, err := svc.sessions.FilterSessions(ctx, attendance.QueryFilter{MemberID: memberID, Limit: recentSessionsLimit})
	if err != nil {
		return MemberDashboard{}, errors.Wrap(err, "querying recent sessions")
	}
	dash.RecentSessions = recent

	closed, err := svc.sessions.FilterSessions(ctx, attendance.QueryFilter{MemberID: memberID, Status: attendance.StatusClosed})
	if err != nil {
		return MemberDashboard{}, errors.Wrap(err, "counting completed sessions")
	}
	dash.CompletedSessions = len(closed)

	return dash, nil
}

// GymDashboard assembles a gym admin's stats view.
func (svc *Service) GymDashboard(ctx context.Context, gymID string, now time.Time) (GymDashboard, error) {
	now = now.UTC()

	members, err := svc.users.FilterUsers(ctx, user.QueryFilter{GymID: gymID, Role: user.RoleMember})
	if err != nil {
		return GymDashboard{}, errors.Wrap(err, "querying members")
	}

	dash := GymDashboard{TotalMembers: len(members)}
	for _, m := range members {
		switch m.Status {
		case user.StatusActive:
			dash.ActiveMembers++
		case user.StatusPending:
			dash.PendingMembers++
		}
		if m.PlanExpired(now) {
			dash.ExpiredMembers++
		} else if m.PlanExpiringSoon(now) {
			dash.ExpiringSoonMembers++
		}
	}

	today := now.Format(attendance.DateKeyLayout)
	if dash.TodayCheckins, err = svc.sessions.CountOnDate(ctx, gymID, today); err != nil {
		return GymDashboard{}, errors.Wrap(err, "counting today's check-ins")
	}

	if dash.WeeklyVisits, err = svc.weeklyVisits(ctx, gymID, now); err != nil {
		return GymDashboard{}, err
	}

	dash.MemberGrowth, dash.Revenue, err = svc.monthlySeries(ctx, gymID, members, now)
	if err != nil {
		return GymDashboard{}, err
	}

	if dash.RecentActivity, err = svc.recentActivity(ctx, gymID, members); err != nil {
		return GymDashboard{}, err
	}
	return dash, nil
}

func (svc *Service) weeklyVisits(ctx context.Context, gymID string, now time.Time) ([]DayVisits, error) {
	keys := make([]string, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		keys = append(keys, now.AddDate(0, 0, -i).Format(attendance.DateKeyLayout))
	}

	counts, err := svc.sessions.DailyCounts(ctx, gymID, keys)
	if err != nil {
		return nil, errors.Wrap(err, "querying daily visit counts")
	}

	visits := make([]DayVisits, 0, len(keys))
	for _, key := range keys {
		day, _ := time.Parse(attendance.DateKeyLayout, key)
		visits = append(visits, DayVisits{Day: day.Format("Mon"), DateKey: key, Visits: counts[key]})
	}
	return visits, nil
}

// monthlySeries buckets member sign-ups and plan revenue into the last
// 6 calendar months. Revenue follows the original reporting rule: a plan's
// price counts toward its expiry month.
func (svc *Service) monthlySeries(ctx context.Context, gymID string, members []user.User, now time.Time) ([]MonthCount, []MonthRevenue, error) {
	labels := make([]string, 0, trendMonths)
	growth := make(map[string]int, trendMonths)
	revenue := make(map[string]float64, trendMonths)
	for i := trendMonths - 1; i >= 0; i-- {
		label := now.AddDate(0, -i, 0).Format("Jan")
		labels = append(labels, label)
		growth[label] = 0
		revenue[label] = 0
	}

	plans, err := svc.plans.QueryGymPlans(ctx, gymID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying plans")
	}
	prices := make(map[string]float64, len(plans))
	for _, p := range plans {
		prices[p.ID] = p.Price
	}

	for _, m := range members {
		joined := m.CreatedAt.Format("Jan")
		if _, ok := growth[joined]; ok {
			growth[joined]++
		}
		if m.PlanID != "" && m.PlanExpiry != nil {
			expiry := m.PlanExpiry.Format("Jan")
			if _, ok := revenue[expiry]; ok {
				revenue[expiry] += prices[m.PlanID]
			}
		}
	}

	growthSeries := make([]MonthCount, 0, len(labels))
	revenueSeries := make([]MonthRevenue, 0, len(labels))
	for _, label := range labels {
		growthSeries = append(growthSeries, MonthCount{Month: label, Count: growth[label]})
		revenueSeries = append(revenueSeries, MonthRevenue{Month: label, Revenue: revenue[label]})
	}
	return growthSeries, revenueSeries, nil
}

func (svc *Service) recentActivity(ctx context.Context, gymID string, members []user.User) ([]Activity, error) {
	recent, err := svc.sessions.FilterSessions(ctx, attendance.QueryFilter{GymID: gymID, Limit: recentActivityLimit})
	if err != nil {
		return nil, errors.Wrap(err, "querying recent sessions")
	}

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	activity := make([]Activity, 0, len(recent))
	for _, sess := range recent {
		name, ok := names[sess.MemberID]
		if !ok {
			name = "Unknown member"
		}
		activity = append(activity, Activity{Session: sess, MemberName: name})
	}
	return activity, nil
}

// PlatformDashboard assembles the super admin's multi-gym overview.
func (svc *Service) PlatformDashboard(ctx context.Context) (PlatformDashboard, error) {
	gyms, err := svc.gyms.FilterGyms(ctx, gym.QueryFilter{})
	if err != nil {
		return PlatformDashboard{}, errors.Wrap(err, "querying gyms")
	}

	dash := PlatformDashboard{TotalGyms: len(gyms)}
	for _, g := range gyms {
		if g.Active {
			dash.ActiveGyms++
		}
	}

	admins, err := svc.users.FilterUsers(ctx, user.QueryFilter{Role: user.RoleGymAdmin})
	if err != nil {
		return PlatformDashboard{}, errors.Wrap(err, "querying admins")
	}
	dash.TotalAdmins = len(admins)

	members, err := svc.users.FilterUsers(ctx, user.QueryFilter{Role: user.RoleMember})
	if err != nil {
		return PlatformDashboard{}, errors.Wrap(err, "querying members")
	}
	dash.TotalMembers = len(members)

	return dash, nil
}
