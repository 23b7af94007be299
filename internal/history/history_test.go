package history

import (
	"testing"
	"time"

	"github.com/retrophonic/rotaryd/internal/call"
	"github.com/retrophonic/rotaryd/internal/reply"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		rec := call.Record{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Reason:    call.ReasonHungUp,
			Turns: []reply.Turn{
				{Role: reply.RoleCaller, Text: "hello"},
				{Role: reply.RoleDevice, Text: "hello yourself"},
			},
		}
		if err := s.Record(rec); err != nil {
			t.Fatalf("Record(%s): %v", id, err)
		}
	}

	recs, err := s.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	// Newest first.
	if recs[0].ID != "third" || recs[2].ID != "first" {
		t.Errorf("order = %s, %s, %s; want third, second, first",
			recs[0].ID, recs[1].ID, recs[2].ID)
	}
	if len(recs[0].Turns) != 2 {
		t.Errorf("turns = %d, want 2", len(recs[0].Turns))
	}
}

func TestListLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		rec := call.Record{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Second),
			Reason:    call.ReasonTurnCap,
		}
		if err := s.Record(rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recs, err := s.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].ID != "e" {
		t.Errorf("newest = %q, want e", recs[0].ID)
	}
}

func TestListEmpty(t *testing.T) {
	s := openTestStore(t)
	recs, err := s.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("len = %d, want 0", len(recs))
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("expected error for on-disk store without dir")
	}
}
