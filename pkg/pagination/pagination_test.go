package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("expected max limit, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Now().UTC().Truncate(time.Microsecond), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: in=%+v out=%+v", in, out)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatalf("expected decode error")
	}
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
}

func TestBuildPage(t *testing.T) {
	type row struct {
		ID        uuid.UUID
		CreatedAt time.Time
	}
	rows := make([]row, 11)
	for i := range rows {
		rows[i] = row{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Duration(i) * time.Minute)}
	}

	page := BuildPage(rows, 10, func(r row) Cursor {
		return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	if len(page.Items) != 10 {
		t.Fatalf("expected trimmed page of 10, got %d", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatalf("expected next cursor for buffered page")
	}

	page = BuildPage(rows[:5], 10, func(r row) Cursor {
		return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	if page.NextCursor != "" {
		t.Fatalf("expected no next cursor for final page")
	}
}
