package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/internal/utils"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	utils.SetJWTSecret("services-test-secret")
}

var dbSeq atomic.Int64

// newTestDB opens a private in-memory sqlite database with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// recordingBroadcaster keeps every published event.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (r *recordingBroadcaster) Publish(_ context.Context, ev realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingBroadcaster) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}

func (r *recordingBroadcaster) Named(name string) []realtime.Event {
	var out []realtime.Event
	for _, ev := range r.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// fixture wires every project-scoped service against one database.
type fixture struct {
	db       *gorm.DB
	guard    *Guard
	rec      *recordingBroadcaster
	notifier *realtime.Notifier

	projects *ProjectService
	budget   *BudgetService
	invoices *InvoiceService
	chat     *ChatService
	sketches *SketchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	guard := NewGuard(db)
	rec := &recordingBroadcaster{}
	notifier := realtime.NewNotifier(rec, time.Second)
	return &fixture{
		db:       db,
		guard:    guard,
		rec:      rec,
		notifier: notifier,
		projects: NewProjectService(db, guard, notifier),
		budget:   NewBudgetService(db, guard, notifier),
		invoices: NewInvoiceService(db, guard, NewBusinessCalendar(CalendarWeekdaysOnly), 14),
		chat:     NewChatService(db, guard, notifier),
		sketches: NewSketchService(db, guard, notifier),
	}
}

func (f *fixture) user(t *testing.T, email, role string) *Session {
	t.Helper()
	u := &models.User{Email: email, Name: email, Role: role, AuthType: models.AuthTypeLocal, IsActive: true}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return &Session{UserID: u.ID, Email: email, Role: role}
}

// project creates a project owned by a fresh owner and returns both.
func (f *fixture) project(t *testing.T, name string) (*models.Project, *Session) {
	t.Helper()
	owner := f.user(t, fmt.Sprintf("owner-%s@example.com", name), models.RoleOwner)
	p, err := f.projects.Create(context.Background(), owner, &CreateProjectRequest{Name: name})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p, owner
}

// member creates a user and joins them to p.
func (f *fixture) member(t *testing.T, p *models.Project, email string) *Session {
	t.Helper()
	sess := f.user(t, email, models.RoleContributor)
	if _, err := f.projects.Join(context.Background(), sess, p.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}
	return sess
}

func assertKind(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %s error, got %v", response.KindOf(target), err)
	}
}
