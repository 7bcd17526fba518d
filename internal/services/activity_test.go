package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

func TestActivityService_RecordAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")
	activity := NewActivityService(f.db)

	pid := p.ID
	for _, module := range []string{"budget-items", "budget-items", "messages"} {
		activity.Record(ctx, &ActivityEntry{ProjectID: &pid, UserID: &owner.UserID, Module: module, Action: "create", Extra: map[string]int{"status": 201}})
	}
	activity.Record(ctx, &ActivityEntry{Module: "auth", Action: "create"})

	resp, err := activity.List(ctx, f.guard, owner, p.ID, &ActivityListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || resp.Page != 1 || resp.PageSize != 20 {
		t.Errorf("unexpected page %+v", resp)
	}
	if resp.Items[0].Level != "info" || resp.Items[0].Extra != `{"status":201}` {
		t.Errorf("unexpected row %+v", resp.Items[0])
	}

	filtered, err := activity.List(ctx, f.guard, owner, p.ID, &ActivityListRequest{Module: "messages"})
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Total != 1 {
		t.Errorf("module filter total = %d", filtered.Total)
	}

	_, err = activity.List(ctx, f.guard, ben, p.ID, &ActivityListRequest{})
	assertKind(t, err, response.ErrForbidden)
}

func TestActivityService_Prune(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := NewActivityService(f.db)

	old := &models.ActivityLog{Level: "info", Module: "auth", Action: "create", CreatedAt: time.Now().AddDate(0, 0, -100)}
	fresh := &models.ActivityLog{Level: "info", Module: "auth", Action: "create"}
	f.db.Create(old)
	f.db.Create(fresh)

	deleted, err := activity.Prune(ctx, 90)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned row, got %d", deleted)
	}

	if n, _ := activity.Prune(ctx, 0); n != 0 {
		t.Error("zero retention keeps everything")
	}
}

func TestMaintenanceService_KeepAlive(t *testing.T) {
	f := newFixture(t)
	f.user(t, "ana@example.com", models.RoleOwner)
	f.user(t, "ben@example.com", models.RoleContributor)

	m := NewMaintenanceService(f.db, &config.MaintenanceConfig{ActivityRetainDays: 30}, NewActivityService(f.db))
	result, err := m.KeepAlive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.ActiveUsers != 2 {
		t.Errorf("expected 2 users, got %d", result.ActiveUsers)
	}
	if result.PingDurationMs < 0 {
		t.Errorf("negative ping %d", result.PingDurationMs)
	}
}

func TestMaintenanceService_Scheduler(t *testing.T) {
	f := newFixture(t)
	m := NewMaintenanceService(f.db, &config.MaintenanceConfig{KeepAliveEnabled: true, KeepAliveSpec: "@every 1h", ActivityRetainDays: 30}, NewActivityService(f.db))
	if err := m.StartScheduler(); err != nil {
		t.Fatal(err)
	}
	m.StopScheduler()

	bad := NewMaintenanceService(f.db, &config.MaintenanceConfig{KeepAliveEnabled: true, KeepAliveSpec: "not a spec"}, NewActivityService(f.db))
	if err := bad.StartScheduler(); err == nil {
		bad.StopScheduler()
		t.Error("invalid spec should be rejected")
	}
}
