package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

// ItemStore is an in-memory batch.ItemStore double.
//
// Unknown item IDs behave like existing catalog items with no availability
// rules yet (the lazily-created empty record), unless explicitly marked
// missing. Individual saves can be forced to fail to exercise per-item
// failure classification.
//
// Thread-safety: all methods are safe for concurrent use.
type ItemStore struct {
	mu            sync.Mutex
	records       map[string]availability.Record
	missing       map[string]bool
	saveErrs      map[string]error
	saves         int
	invalidations []string
}

// NewItemStore creates an empty store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		records:  make(map[string]availability.Record),
		missing:  make(map[string]bool),
		saveErrs: make(map[string]error),
	}
}

// Seed installs an existing availability record.
func (s *ItemStore) Seed(record availability.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ItemID] = record.Clone()
}

// MarkMissing makes the item behave as deleted from the catalog.
func (s *ItemStore) MarkMissing(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missing[itemID] = true
}

// FailSave makes SaveAvailability return err for the given item.
func (s *ItemStore) FailSave(itemID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErrs[itemID] = err
}

// GetAvailability implements batch.ItemStore.
func (s *ItemStore) GetAvailability(_ context.Context, itemID string) (availability.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[itemID] {
		return availability.Record{}, fmt.Errorf("item %s: %w", itemID, availability.ErrItemNotFound)
	}
	if record, ok := s.records[itemID]; ok {
		return record.Clone(), nil
	}
	return availability.EmptyRecord(itemID), nil
}

// SaveAvailability implements batch.ItemStore.
func (s *ItemStore) SaveAvailability(_ context.Context, record availability.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErrs[record.ItemID]; err != nil {
		return err
	}
	s.records[record.ItemID] = record.Clone()
	s.saves++
	return nil
}

// InvalidateCache implements batch.ItemStore.
func (s *ItemStore) InvalidateCache(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidations = append(s.invalidations, itemID)
}

// Record returns the stored record for an item and whether one exists.
func (s *ItemStore) Record(itemID string) (availability.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[itemID]
	if !ok {
		return availability.Record{}, false
	}
	return record.Clone(), true
}

// SaveCount reports the number of successful writes.
func (s *ItemStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Invalidations returns the item IDs whose caches were invalidated, in
// order.
func (s *ItemStore) Invalidations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.invalidations...)
}
