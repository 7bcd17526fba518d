package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

func approve(t *testing.T, f *fixture, sess *Session, projectID uint, title string, amount float64) *models.BudgetItem {
	t.Helper()
	ctx := context.Background()
	item, err := f.budget.ProposeItem(ctx, sess, projectID, title, amount)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.budget.SetItemStatus(ctx, sess, projectID, item.ID, models.BudgetStatusApproved); err != nil {
		t.Fatal(err)
	}
	return item
}

func TestInvoiceService_GenerateWithoutApprovedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")

	if _, err := f.budget.ProposeItem(ctx, owner, p.ID, "Sofa", 450); err != nil {
		t.Fatal(err)
	}

	_, err := f.invoices.Generate(ctx, owner, p.ID)
	assertKind(t, err, response.ErrNoApprovedItems)
	if err.Error() != "No approved budget items found" {
		t.Errorf("unexpected message %q", err.Error())
	}

	var count int64
	f.db.Model(&models.Invoice{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no invoice rows, got %d", count)
	}
}

func TestInvoiceService_GenerateSumsApprovedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	f.invoices.now = func() time.Time { return time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC) }

	approve(t, f, owner, p.ID, "Sofa", 100)
	approve(t, f, owner, p.ID, "Lamp", 25)
	if _, err := f.budget.ProposeItem(ctx, owner, p.ID, "Rug", 999); err != nil {
		t.Fatal(err)
	}

	invoice, err := f.invoices.Generate(ctx, owner, p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if invoice.TotalAmount != 125 {
		t.Errorf("expected total 125, got %v", invoice.TotalAmount)
	}
	if invoice.Status != models.InvoiceStatusPending {
		t.Errorf("expected PENDING, got %s", invoice.Status)
	}
	if len(invoice.Lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(invoice.Lines))
	}
	if invoice.Project == nil || invoice.Project.Name != "loft" {
		t.Errorf("invoice should carry its project, got %+v", invoice.Project)
	}
	// 14 weekdays after Monday 2024-07-01 is Friday 2024-07-19.
	want := time.Date(2024, 7, 19, 9, 0, 0, 0, time.UTC)
	if !invoice.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", invoice.DueDate, want)
	}
}

func TestInvoiceService_GenerateIsRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	approve(t, f, owner, p.ID, "Sofa", 100)

	first, err := f.invoices.Generate(ctx, owner, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.invoices.Generate(ctx, owner, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Error("each call should create a distinct invoice")
	}
	if second.TotalAmount != 100 {
		t.Errorf("second invoice total = %v", second.TotalAmount)
	}
}

func TestInvoiceService_GenerateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	p, owner := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")
	approve(t, f, owner, p.ID, "Sofa", 100)

	_, err := f.invoices.Generate(context.Background(), ben, p.ID)
	assertKind(t, err, response.ErrForbidden)
}

func TestInvoiceService_SetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")
	approve(t, f, owner, p.ID, "Sofa", 100)

	invoice, err := f.invoices.Generate(ctx, owner, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.invoices.SetStatus(ctx, ben, invoice.ID, models.InvoiceStatusPaid)
	assertKind(t, err, response.ErrForbidden)

	_, err = f.invoices.SetStatus(ctx, owner, invoice.ID, "VOID")
	assertKind(t, err, response.ErrInvalidArgument)

	_, err = f.invoices.SetStatus(ctx, owner, 9999, models.InvoiceStatusPaid)
	assertKind(t, err, response.ErrNotFound)

	paid, err := f.invoices.SetStatus(ctx, owner, invoice.ID, "paid")
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != models.InvoiceStatusPaid {
		t.Errorf("expected PAID, got %s", paid.Status)
	}
}

func TestInvoiceService_AuthorizeInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")
	outsider := f.user(t, "eve@example.com", models.RoleContributor)
	approve(t, f, owner, p.ID, "Sofa", 100)

	invoice, err := f.invoices.Generate(ctx, owner, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	if got, err := f.invoices.AuthorizeInvoice(ctx, ben, invoice.ID, TierMember); err != nil || got.ProjectID != p.ID {
		t.Fatalf("member read access: %v", err)
	}
	_, err = f.invoices.AuthorizeInvoice(ctx, ben, invoice.ID, TierAdmin)
	assertKind(t, err, response.ErrForbidden)
	_, err = f.invoices.AuthorizeInvoice(ctx, outsider, invoice.ID, TierMember)
	assertKind(t, err, response.ErrForbidden)
	_, err = f.invoices.AuthorizeInvoice(ctx, nil, invoice.ID, TierMember)
	assertKind(t, err, response.ErrUnauthenticated)
}

func TestInvoiceService_Reads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")
	outsider := f.user(t, "eve@example.com", models.RoleContributor)
	approve(t, f, owner, p.ID, "Sofa", 100)

	invoice, err := f.invoices.Generate(ctx, owner, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.invoices.Get(ctx, ben, invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Lines) != 1 || got.Lines[0].Title != "Sofa" {
		t.Errorf("unexpected lines %+v", got.Lines)
	}

	_, err = f.invoices.Get(ctx, outsider, invoice.ID)
	assertKind(t, err, response.ErrForbidden)

	list, err := f.invoices.ListByProject(ctx, ben, p.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByProject = %d, %v", len(list), err)
	}

	mine, err := f.invoices.ListMine(ctx, ben)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListMine = %d, %v", len(mine), err)
	}
	none, err := f.invoices.ListMine(ctx, outsider)
	if err != nil || len(none) != 0 {
		t.Fatalf("outsider ListMine = %d, %v", len(none), err)
	}
}
