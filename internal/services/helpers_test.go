package services

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/database"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/repository"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/risk"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// scorerFunc adapts a function to Scorer
type scorerFunc func(ctx context.Context, req risk.Request) risk.Assessment

func (f scorerFunc) Evaluate(ctx context.Context, req risk.Request) risk.Assessment {
	return f(ctx, req)
}

// fixedScore returns an assessment consistent with score
func fixedScore(score float64) Scorer {
	return scorerFunc(func(context.Context, risk.Request) risk.Assessment {
		return risk.Assessment{
			RiskScore:   score,
			ThreatLevel: risk.Classify(score),
			Analysis:    "test analysis",
			Suggestions: []string{"Verify sender"},
			RiskFactors: models.RiskFactors{Content: score},
		}
	})
}

// recordingNotifier captures live events
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) EmailChanged(event string, email *models.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+":"+email.ID)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// testEnv wires every service over one in-memory database
type testEnv struct {
	db        *gorm.DB
	store     repository.Store
	audit     AuditTrail
	directory DirectoryService
	sessions  SessionService
	mail      MailService
	notifier  *recordingNotifier
	logs      *bytes.Buffer
	scorer    Scorer
}

const (
	adminID = "admin-001"
	aliceID = "u-alice"
	bobID   = "u-bob"
)

func newTestEnv(t *testing.T, scorer Scorer) *testEnv {
	db, err := database.Connect(database.Options{
		Driver:   database.DriverSQLite,
		URL:      ":memory:",
		LogLevel: gormlogger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	var buf bytes.Buffer
	security := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil))

	store := repository.NewStore(db)
	lock := &sync.Mutex{}
	audit := NewAuditTrail(store, security.GetLogger(), func() string { return "10.0.1.1" })

	directory, err := NewDirectoryService(store, audit, DirectoryConfig{
		BcryptCost: bcrypt.MinCost,
		Security:   security,
		Lock:       lock,
	})
	require.NoError(t, err)

	if scorer == nil {
		scorer = risk.NewEvaluator(risk.EvaluatorConfig{Timeout: time.Second})
	}
	notifier := &recordingNotifier{}

	env := &testEnv{
		db:        db,
		store:     store,
		audit:     audit,
		directory: directory,
		sessions:  NewSessionService(directory, session.NewMemoryStore(time.Hour), audit),
		mail: NewMailService(store, directory, scorer, audit, MailConfig{
			Security: security,
			Notifier: notifier,
			Lock:     lock,
		}),
		notifier: notifier,
		logs:     &buf,
		scorer:   scorer,
	}
	env.provision(t, adminID, "admin@mailguard.io", "admin123", models.RoleAdmin)
	env.provision(t, aliceID, "alice@company.com", "alice123", models.RoleUser)
	env.provision(t, bobID, "bob@company.com", "bobby123", models.RoleUser)
	return env
}

func (e *testEnv) provision(t *testing.T, id, email, code string, role models.Role) *models.User {
	user, err := e.directory.Provision(context.Background(), models.SystemActor, ProvisionRequest{
		ID:          id,
		Email:       email,
		DisplayName: id,
		AccessCode:  code,
		Role:        role,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) logCount(t *testing.T) int64 {
	count, err := e.store.Logs().Count(context.Background())
	require.NoError(t, err)
	return count
}

// insertEmail stores a message directly, bypassing scoring
func (e *testEnv) insertEmail(t *testing.T, id, recipient string, score float64, status models.ProcessingStatus) *models.Email {
	email := &models.Email{
		ID:               id,
		Sender:           "external@partner.net",
		Recipient:        recipient,
		Subject:          "Quarterly report",
		Body:             "See attached.",
		Direction:        models.DirectionReceived,
		RiskScore:        score,
		ThreatLevel:      risk.Classify(score),
		Analysis:         "inserted",
		Suggestions:      []string{},
		ProcessingStatus: status,
		Timestamp:        time.Now().UTC(),
	}
	require.NoError(t, e.store.Emails().Create(context.Background(), email))
	return email
}
