package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCatalog_HasHash(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{"known hash", true},
		{"unknown hash", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{row: &fakeRow{values: []any{tt.exists}}}
			c := NewCatalog(q, nil)

			got, err := c.HasHash(context.Background(), "abc")
			if err != nil {
				t.Fatalf("HasHash() error = %v", err)
			}
			if got != tt.exists {
				t.Errorf("HasHash() = %v, want %v", got, tt.exists)
			}
			if q.lastArgs[0] != "abc" {
				t.Errorf("hash arg = %v", q.lastArgs[0])
			}
		})
	}
}

func TestCatalog_Upsert(t *testing.T) {
	q := &fakeQuerier{}
	c := NewCatalog(q, nil)

	rec := FileRecord{
		Path:     "docs/a.txt",
		Name:     "a.txt",
		Hash:     "deadbeef",
		Language: "en",
	}
	if err := c.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if len(q.execs) != 1 {
		t.Fatalf("execs = %d, want 1", len(q.execs))
	}
	call := q.execs[0]
	if !strings.Contains(call.sql, "ON CONFLICT (file_path)") {
		t.Errorf("upsert SQL missing conflict clause: %s", call.sql)
	}
	want := []any{"docs/a.txt", "a.txt", "deadbeef", "en"}
	for i, w := range want {
		if call.args[i] != w {
			t.Errorf("arg[%d] = %v, want %v", i, call.args[i], w)
		}
	}
}

func TestCatalog_Get(t *testing.T) {
	now := time.Now()
	q := &fakeQuerier{row: &fakeRow{values: []any{"docs/a.txt", "a.txt", "deadbeef", "en", now}}}
	c := NewCatalog(q, nil)

	rec, err := c.Get(context.Background(), "docs/a.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Hash != "deadbeef" || rec.Language != "en" {
		t.Errorf("Get() = %+v", rec)
	}
}

func TestCatalog_Get_NotFound(t *testing.T) {
	q := &fakeQuerier{row: &fakeRow{err: pgx.ErrNoRows}}
	c := NewCatalog(q, nil)

	_, err := c.Get(context.Background(), "missing.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_Delete_NotFound(t *testing.T) {
	q := &fakeQuerier{execTag: pgconn.NewCommandTag("DELETE 0")}
	c := NewCatalog(q, nil)

	err := c.Delete(context.Background(), "missing.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_Delete(t *testing.T) {
	q := &fakeQuerier{execTag: pgconn.NewCommandTag("DELETE 1")}
	c := NewCatalog(q, nil)

	if err := c.Delete(context.Background(), "docs/a.txt"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}
