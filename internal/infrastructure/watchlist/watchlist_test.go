package watchlist

import (
	"path/filepath"
	"testing"
)

func TestAddNormalizesAndPreservesOrder(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), "watchlist.json"))

	updated, err := store.Add([]string{"aapl", "MSFT", " aapl ", ""})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(updated) != 2 || updated[0] != "AAPL" || updated[1] != "MSFT" {
		t.Fatalf("unexpected watchlist: %v", updated)
	}

	updated, err = store.Add([]string{"nvda", "MSFT"})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(updated) != 3 || updated[2] != "NVDA" {
		t.Fatalf("unexpected watchlist after second add: %v", updated)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), "watchlist.json"))
	if _, err := store.Add([]string{"AAPL", "MSFT"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	removed, err := store.Remove("aapl")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatalf("expected AAPL to be removed")
	}

	removed, err = store.Remove("TSLA")
	if err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if removed {
		t.Fatalf("TSLA was never in the watchlist")
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != "MSFT" {
		t.Fatalf("unexpected remaining watchlist: %v", list)
	}
}

func TestListMissingFile(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), "watchlist.json"))
	list, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty watchlist, got %v", list)
	}
}
