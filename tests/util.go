package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/gym"
	"github.com/mazoezi/backend/core/plan"
	"github.com/mazoezi/backend/core/user"
)

// NewConfig returns an app config suitable for tests; no env lookups.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:                     false,
		TestMode:                  true,
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "Mazoezi",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          "noreply@test.test",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:                      "localhost",
			Addr:                      ":0",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Attendance: core.AttendanceConfig{RequireActiveGym: true},
	}
}

// NewValidator returns a validator and translator with the app's custom
// validations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Logger is a core.Logger that records messages for assertions.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, msg)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log(msg) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(msg) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(msg) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(msg) }
func (l *Logger) Fatal(msg string, args ...interface{}) { panic(msg) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	id, name, email, pwd, role, status, gymID string,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    status,
		GymID:     gymID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateGym(t *testing.T, repo gym.Repository, id, name, location string, active bool) gym.Gym {
	t.Helper()

	g, err := repo.CreateGym(context.Background(), gym.Gym{
		ID:        id,
		Name:      name,
		Location:  location,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateGym(): %v", err)
	}
	return g
}

func CreatePlan(t *testing.T, repo plan.Repository, id, gymID, name string, price float64, durationMonths int) plan.Plan {
	t.Helper()

	p, err := repo.CreatePlan(context.Background(), plan.Plan{
		ID:             id,
		GymID:          gymID,
		Name:           name,
		Price:          price,
		DurationMonths: durationMonths,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePlan(): %v", err)
	}
	return p
}
