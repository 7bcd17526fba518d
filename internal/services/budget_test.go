package services

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

func TestBudgetService_ProposeItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _ := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")

	item, err := f.budget.ProposeItem(ctx, ben, p.ID, "Sofa", 450)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if item.Status != models.BudgetStatusPending {
		t.Errorf("new items start PENDING, got %s", item.Status)
	}

	var stored models.BudgetItem
	if err := f.db.First(&stored, item.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Title != "Sofa" || stored.Amount != 450 || stored.Status != models.BudgetStatusPending {
		t.Errorf("stored item = %+v", stored)
	}

	f.notifier.Wait()
	events := f.rec.Named(realtime.EventBudgetUpdated)
	if len(events) != 1 {
		t.Fatalf("expected one budget event, got %d", len(events))
	}
	var payload models.BudgetItem
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.ID != item.ID || payload.Amount != 450 {
		t.Errorf("event payload = %+v", payload)
	}
}

func TestBudgetService_ProposeItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	outsider := f.user(t, "eve@example.com", models.RoleContributor)

	for _, amount := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		_, err := f.budget.ProposeItem(ctx, owner, p.ID, "Lamp", amount)
		assertKind(t, err, response.ErrInvalidArgument)
	}

	_, err := f.budget.ProposeItem(ctx, owner, p.ID, "  ", 10)
	assertKind(t, err, response.ErrInvalidArgument)

	_, err = f.budget.ProposeItem(ctx, outsider, p.ID, "Lamp", 10)
	assertKind(t, err, response.ErrForbidden)

	var count int64
	f.db.Model(&models.BudgetItem{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected proposals must not persist, found %d", count)
	}
}

func TestBudgetService_SetItemStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")

	item, err := f.budget.ProposeItem(ctx, ben, p.ID, "Sofa", 450)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.budget.SetItemStatus(ctx, ben, p.ID, item.ID, models.BudgetStatusApproved)
	assertKind(t, err, response.ErrForbidden)

	updated, err := f.budget.SetItemStatus(ctx, owner, p.ID, item.ID, "approved")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != models.BudgetStatusApproved {
		t.Errorf("expected APPROVED, got %s", updated.Status)
	}

	// Any status may follow any other.
	if _, err := f.budget.SetItemStatus(ctx, owner, p.ID, item.ID, models.BudgetStatusRejected); err != nil {
		t.Fatalf("reject after approve: %v", err)
	}
	if _, err := f.budget.SetItemStatus(ctx, owner, p.ID, item.ID, models.BudgetStatusPending); err != nil {
		t.Fatalf("back to pending: %v", err)
	}

	_, err = f.budget.SetItemStatus(ctx, owner, p.ID, item.ID, "ARCHIVED")
	assertKind(t, err, response.ErrInvalidArgument)

	_, err = f.budget.SetItemStatus(ctx, owner, p.ID, 9999, models.BudgetStatusApproved)
	assertKind(t, err, response.ErrNotFound)
}

func TestBudgetService_SetItemStatusCrossProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loft, loftOwner := f.project(t, "loft")
	studio, studioOwner := f.project(t, "studio")

	item, err := f.budget.ProposeItem(ctx, studioOwner, studio.ID, "Desk", 300)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.budget.SetItemStatus(ctx, loftOwner, loft.ID, item.ID, models.BudgetStatusApproved)
	assertKind(t, err, response.ErrNotFound)

	var stored models.BudgetItem
	f.db.First(&stored, item.ID)
	if stored.Status != models.BudgetStatusPending {
		t.Errorf("item of another project was modified: %s", stored.Status)
	}
}

func TestBudgetService_ListItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")

	for _, title := range []string{"Sofa", "Lamp", "Rug"} {
		if _, err := f.budget.ProposeItem(ctx, owner, p.ID, title, 10); err != nil {
			t.Fatal(err)
		}
	}

	items, err := f.budget.ListItems(ctx, owner, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].Title != "Sofa" || items[2].Title != "Rug" {
		t.Errorf("unexpected ledger order %+v", items)
	}
}
