package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/huangang/studiodesk/backend/pkg/response"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent map[string]string
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	for _, addr := range to {
		m.sent[addr] = body
	}
	return nil
}

func TestInviteService_Send(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")

	mailer := &fakeMailer{}
	queue := NewSyncQueue()
	queue.SetProcessor(InviteMailProcessor(mailer))
	invites := NewInviteService(f.db, f.guard, queue, "https://studio.example.com")

	result, err := invites.Send(ctx, owner, p.ID, []string{"Ben@Example.com", "ben@example.com", "nope", "cleo@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	queue.Wait()

	sort.Strings(result.Queued)
	if strings.Join(result.Queued, ",") != "ben@example.com,cleo@example.com" {
		t.Errorf("queued = %v", result.Queued)
	}
	if len(result.Rejected) != 1 || result.Rejected[0] != "nope" {
		t.Errorf("rejected = %v", result.Rejected)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected 2 e-mails, got %d", len(mailer.sent))
	}
	if body := mailer.sent["cleo@example.com"]; !strings.Contains(body, p.InviteCode) {
		t.Error("invitation should carry the invite code")
	}
}

func TestInviteService_SendFailuresDoNotSurface(t *testing.T) {
	f := newFixture(t)
	p, owner := f.project(t, "loft")

	queue := NewSyncQueue()
	queue.SetProcessor(InviteMailProcessor(&fakeMailer{fail: true}))
	invites := NewInviteService(f.db, f.guard, queue, "")

	if _, err := invites.Send(context.Background(), owner, p.ID, []string{"ben@example.com"}); err != nil {
		t.Fatalf("delivery failure must not fail the request: %v", err)
	}
	queue.Wait()
}

func TestInviteService_SendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, owner := f.project(t, "loft")
	ben := f.member(t, p, "ben@example.com")
	invites := NewInviteService(f.db, f.guard, NewSyncQueue(), "")

	_, err := invites.Send(ctx, ben, p.ID, []string{"x@example.com"})
	assertKind(t, err, response.ErrForbidden)

	_, err = invites.Send(ctx, owner, p.ID, nil)
	assertKind(t, err, response.ErrInvalidArgument)

	many := make([]string, maxInvitesPerRequest+1)
	for i := range many {
		many[i] = "a@example.com"
	}
	_, err = invites.Send(ctx, owner, p.ID, many)
	assertKind(t, err, response.ErrInvalidArgument)

	_, err = invites.Send(ctx, owner, p.ID, []string{"bad", "worse"})
	assertKind(t, err, response.ErrInvalidArgument)
}

func TestBuildInviteEmail_EscapesNames(t *testing.T) {
	subject, body := BuildInviteEmail(&InviteEmailTask{
		ProjectName: "<Loft>",
		InviterName: "Ana & Co",
		InviteCode:  "ABCD1234",
	})
	if !strings.Contains(subject, "<Loft>") {
		t.Errorf("subject = %q", subject)
	}
	if strings.Contains(body, "<Loft>") || !strings.Contains(body, "&lt;Loft&gt;") {
		t.Error("project name should be escaped in the body")
	}
	if !strings.Contains(body, "Ana &amp; Co") {
		t.Error("inviter name should be escaped in the body")
	}
}

func TestBuildMessage_SubjectStaysOneHeader(t *testing.T) {
	subject, body := BuildInviteEmail(&InviteEmailTask{
		ProjectName: "Loft\r\nBcc: victim@example.com\r\n\r\n<b>replaced</b>",
		InviteCode:  "ABCD1234",
	})
	msg := buildMessage("studio@example.com", []string{"ben@example.com"}, subject, body, time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))

	head, gotBody, ok := strings.Cut(msg, "\r\n\r\n")
	if !ok {
		t.Fatal("message has no header terminator")
	}
	if gotBody != body {
		t.Error("body should follow the header block unchanged")
	}

	lines := strings.Split(head, "\r\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 header lines, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "bcc:") {
			t.Errorf("unexpected header line %q", line)
		}
	}
	if !strings.HasPrefix(lines[2], "Subject: ") {
		t.Errorf("third header should be the subject, got %q", lines[2])
	}
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	msg := buildMessage("studio@example.com", []string{"ben@example.com"}, "You're invited to join Café Nord", "<p>hi</p>", time.Now())
	head, _, _ := strings.Cut(msg, "\r\n\r\n")

	if !strings.Contains(head, "Subject: =?utf-8?q?") {
		t.Errorf("subject should be RFC 2047 encoded: %q", head)
	}
	for i := 0; i < len(head); i++ {
		if head[i] > 127 {
			t.Fatalf("raw 8-bit byte in headers at %d", i)
		}
	}
}
