package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetAvailability_MissingItem(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetAvailability(ctx, "no-such-item")
	if !errors.Is(err, availability.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestGetAvailability_LazyEmptyRecord(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertItem(ctx, "tour-1", "City Walk"); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}

	record, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	if record.ItemID != "tour-1" {
		t.Errorf("ItemID = %q, expected %q", record.ItemID, "tour-1")
	}
	if !record.IsZero() {
		t.Errorf("expected empty record for item without rules, got %+v", record)
	}
}

func TestSaveAvailability_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertItem(ctx, "tour-1", "City Walk"); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}

	start := availability.MustParseDate("2026-03-01")
	end := availability.MustParseDate("2026-08-31")
	saved := availability.Record{
		ItemID:         "tour-1",
		StartDate:      &start,
		EndDate:        &end,
		Weekdays:       []time.Weekday{time.Monday, time.Friday},
		SpecificDates:  []availability.Date{availability.MustParseDate("2026-06-15")},
		ExclusionDates: []availability.Date{availability.MustParseDate("2026-07-04")},
	}
	if err := s.SaveAvailability(ctx, saved); err != nil {
		t.Fatalf("SaveAvailability() failed: %v", err)
	}
	s.InvalidateCache("tour-1")

	loaded, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	if !loaded.Equal(saved) {
		t.Errorf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", saved, loaded)
	}
}

func TestSaveAvailability_Upsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertItem(ctx, "tour-1", ""); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}

	first := availability.Record{ItemID: "tour-1", Weekdays: []time.Weekday{time.Monday}}
	if err := s.SaveAvailability(ctx, first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second := availability.Record{ItemID: "tour-1", Weekdays: []time.Weekday{time.Saturday, time.Sunday}}
	if err := s.SaveAvailability(ctx, second); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	s.InvalidateCache("tour-1")

	loaded, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	if !loaded.Equal(second) {
		t.Errorf("upsert did not replace rules: %+v", loaded)
	}
}

func TestSaveAvailability_UnknownItemRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.SaveAvailability(ctx, availability.Record{
		ItemID:   "no-such-item",
		Weekdays: []time.Weekday{time.Monday},
	})
	if err == nil {
		t.Error("expected foreign key rejection for unknown item")
	}
}

func TestCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertItem(ctx, "tour-1", ""); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}

	// Prime the cache with the empty record.
	if _, err := s.GetAvailability(ctx, "tour-1"); err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}

	updated := availability.Record{ItemID: "tour-1", Weekdays: []time.Weekday{time.Monday}}
	if err := s.SaveAvailability(ctx, updated); err != nil {
		t.Fatalf("SaveAvailability() failed: %v", err)
	}

	// Without invalidation the stale cached record is still served.
	stale, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	if !stale.IsZero() {
		t.Fatalf("expected stale cached record before invalidation, got %+v", stale)
	}

	s.InvalidateCache("tour-1")
	fresh, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	if !fresh.Equal(updated) {
		t.Errorf("expected fresh record after invalidation, got %+v", fresh)
	}
}

func TestGetAvailability_CacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertItem(ctx, "tour-1", ""); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}
	if err := s.SaveAvailability(ctx, availability.Record{
		ItemID:   "tour-1",
		Weekdays: []time.Weekday{time.Monday},
	}); err != nil {
		t.Fatalf("SaveAvailability() failed: %v", err)
	}

	first, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	first.Weekdays[0] = time.Saturday

	second, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	if second.Weekdays[0] != time.Monday {
		t.Error("mutating a returned record leaked into the cache")
	}
}

func TestDeleteItem_CascadesAvailability(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertItem(ctx, "tour-1", ""); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}
	if err := s.SaveAvailability(ctx, availability.Record{
		ItemID:   "tour-1",
		Weekdays: []time.Weekday{time.Monday},
	}); err != nil {
		t.Fatalf("SaveAvailability() failed: %v", err)
	}

	if err := s.DeleteItem(ctx, "tour-1"); err != nil {
		t.Fatalf("DeleteItem() failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM item_availability").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("availability row survived item delete, count = %d", count)
	}

	if _, err := s.GetAvailability(ctx, "tour-1"); !errors.Is(err, availability.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound after delete, got %v", err)
	}
}

func TestDeleteAvailability_RestoresLazyEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertItem(ctx, "tour-1", ""); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}
	if err := s.SaveAvailability(ctx, availability.Record{
		ItemID:   "tour-1",
		Weekdays: []time.Weekday{time.Monday},
	}); err != nil {
		t.Fatalf("SaveAvailability() failed: %v", err)
	}

	if err := s.DeleteAvailability(ctx, "tour-1"); err != nil {
		t.Fatalf("DeleteAvailability() failed: %v", err)
	}

	record, err := s.GetAvailability(ctx, "tour-1")
	if err != nil {
		t.Fatalf("GetAvailability() failed: %v", err)
	}
	if !record.IsZero() {
		t.Errorf("expected empty record after rule delete, got %+v", record)
	}
}

func TestListItemIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, id := range []string{"tour-3", "tour-1", "tour-2"} {
		if err := s.UpsertItem(ctx, id, ""); err != nil {
			t.Fatalf("UpsertItem(%q) failed: %v", id, err)
		}
	}

	ids, err := s.ListItemIDs(ctx)
	if err != nil {
		t.Fatalf("ListItemIDs() failed: %v", err)
	}
	expected := []string{"tour-3", "tour-1", "tour-2"}
	if len(ids) != len(expected) {
		t.Fatalf("got %d ids, expected %d", len(ids), len(expected))
	}
	for i, id := range expected {
		if ids[i] != id {
			t.Errorf("ids[%d] = %q, expected %q (insertion order)", i, ids[i], id)
		}
	}
}
