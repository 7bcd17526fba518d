package services

import (
	"context"
	"testing"

	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/internal/realtime"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

func TestSketchService_SaveAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _ := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")

	first, err := f.sketches.Save(ctx, ben, p.ID, "", "http://localhost:8080/files/sketches/2/1-a.png")
	if err != nil {
		t.Fatal(err)
	}
	if first.Title != "Untitled sketch" {
		t.Errorf("default title = %q", first.Title)
	}
	second, err := f.sketches.Save(ctx, ben, p.ID, "Kitchen", "https://cdn.example.com/k.png")
	if err != nil {
		t.Fatal(err)
	}

	list, err := f.sketches.List(ctx, ben, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("expected newest first, got %+v", list)
	}

	f.notifier.Wait()
	if n := len(f.rec.Named(realtime.EventNewSketch)); n != 2 {
		t.Errorf("expected 2 new-sketch events, got %d", n)
	}
}

func TestSketchService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	outsider := f.user(t, "eve@example.com", models.RoleContributor)

	for _, u := range []string{"", "ftp://x/y.png", "not a url", "https://"} {
		_, err := f.sketches.Save(ctx, owner, p.ID, "x", u)
		assertKind(t, err, response.ErrInvalidArgument)
	}

	_, err := f.sketches.Save(ctx, outsider, p.ID, "x", "https://cdn.example.com/a.png")
	assertKind(t, err, response.ErrForbidden)
}
