package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestParseCursorEmptyIsFirstPage(t *testing.T) {
	got, err := ParseCursor("  ")
	if err != nil || got != nil {
		t.Fatalf("expected nil cursor, got %+v err=%v", got, err)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{"!!!", "bm9waXBl", EncodeCursor(Cursor{})[:4]} {
		if _, err := ParseCursor(value); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("expected ErrInvalidCursor for %q, got %v", value, err)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, MaxLimit + 50: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffered limit 11, got %d", got)
	}
}

func TestTrim(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Cursor, 4)
	for i := range rows {
		rows[i] = Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Hour), ID: uuid.New()}
	}
	identity := func(c Cursor) Cursor { return c }

	page, next := Trim(rows, 3, identity)
	if len(page) != 3 || next == "" {
		t.Fatalf("expected 3 rows and a cursor, got %d %q", len(page), next)
	}
	cursor, err := ParseCursor(next)
	if err != nil || cursor.ID != rows[2].ID {
		t.Fatalf("expected cursor at third row, got %+v err=%v", cursor, err)
	}

	page, next = Trim(rows, 10, identity)
	if len(page) != 4 || next != "" {
		t.Fatalf("expected last page without cursor, got %d %q", len(page), next)
	}
}
