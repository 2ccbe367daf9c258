package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

// UpsertItem creates a catalog item or updates its name.
// Uses ON CONFLICT(id) DO UPDATE so reruns are idempotent.
func (s *Store) UpsertItem(ctx context.Context, itemID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, itemID, name)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// DeleteItem removes an item and, via CASCADE, its availability row.
func (s *Store) DeleteItem(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.InvalidateCache(itemID)
	return nil
}

// ListItemIDs returns every catalog item ID in insertion order.
func (s *Store) ListItemIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return ids, nil
}

// GetAvailability loads the availability record for an item.
//
// An item with no availability row yet reads as the empty record (no rules,
// every date available). A missing catalog item is the non-retryable
// not-found case, reported via availability.ErrItemNotFound.
func (s *Store) GetAvailability(ctx context.Context, itemID string) (availability.Record, error) {
	s.mu.Lock()
	if cached, ok := s.cache[itemID]; ok {
		s.mu.Unlock()
		return cached.Clone(), nil
	}
	s.mu.Unlock()

	var start, end, weekdays, specific, exclusion sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT ia.start_date, ia.end_date, ia.weekdays, ia.specific_dates, ia.exclusion_dates
		FROM items i
		LEFT JOIN item_availability ia ON ia.item_id = i.id
		WHERE i.id = ?
	`, itemID).Scan(&start, &end, &weekdays, &specific, &exclusion)
	if err == sql.ErrNoRows {
		return availability.Record{}, fmt.Errorf("item %s: %w", itemID, availability.ErrItemNotFound)
	}
	if err != nil {
		return availability.Record{}, fmt.Errorf("get availability %s: %w", itemID, err)
	}

	record := availability.EmptyRecord(itemID)
	if weekdays.Valid {
		record, err = decodeRecord(itemID, start, end, weekdays.String, specific.String, exclusion.String)
		if err != nil {
			return availability.Record{}, fmt.Errorf("get availability %s: %w", itemID, err)
		}
	}

	s.mu.Lock()
	s.cache[itemID] = record.Clone()
	s.mu.Unlock()
	return record, nil
}

// SaveAvailability upserts the availability row for record.ItemID.
//
// The item itself must already exist (foreign key); saving rules does not
// create catalog entries. Callers invalidate the cache afterwards.
func (s *Store) SaveAvailability(ctx context.Context, record availability.Record) error {
	tokens := availability.WeekdayTokens(record.Weekdays)
	if tokens == nil {
		tokens = []string{}
	}
	weekdaysJSON, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("save availability: %w", err)
	}
	specificJSON, err := encodeDates(record.SpecificDates)
	if err != nil {
		return fmt.Errorf("save availability: %w", err)
	}
	exclusionJSON, err := encodeDates(record.ExclusionDates)
	if err != nil {
		return fmt.Errorf("save availability: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO item_availability
		(item_id, start_date, end_date, weekdays, specific_dates, exclusion_dates, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			start_date      = excluded.start_date,
			end_date        = excluded.end_date,
			weekdays        = excluded.weekdays,
			specific_dates  = excluded.specific_dates,
			exclusion_dates = excluded.exclusion_dates,
			updated_at      = excluded.updated_at
	`,
		record.ItemID,
		dateColumn(record.StartDate),
		dateColumn(record.EndDate),
		string(weekdaysJSON),
		specificJSON,
		exclusionJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save availability %s: %w", record.ItemID, err)
	}
	return nil
}

// DeleteAvailability removes an item's rules, restoring the lazy empty
// record on the next read.
func (s *Store) DeleteAvailability(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM item_availability WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete availability %s: %w", itemID, err)
	}
	s.InvalidateCache(itemID)
	return nil
}

// InvalidateCache drops the cached record for an item.
func (s *Store) InvalidateCache(itemID string) {
	s.mu.Lock()
	delete(s.cache, itemID)
	s.mu.Unlock()
}

func dateColumn(d *availability.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func encodeDates(dates []availability.Date) (string, error) {
	if dates == nil {
		dates = []availability.Date{}
	}
	data, err := json.Marshal(dates)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeRecord(itemID string, start, end sql.NullString, weekdays, specific, exclusion string) (availability.Record, error) {
	record := availability.Record{ItemID: itemID}

	if start.Valid {
		d, err := availability.ParseDate(start.String)
		if err != nil {
			return availability.Record{}, fmt.Errorf("start_date: %w", err)
		}
		record.StartDate = &d
	}
	if end.Valid {
		d, err := availability.ParseDate(end.String)
		if err != nil {
			return availability.Record{}, fmt.Errorf("end_date: %w", err)
		}
		record.EndDate = &d
	}

	var tokens []string
	if err := json.Unmarshal([]byte(weekdays), &tokens); err != nil {
		return availability.Record{}, fmt.Errorf("weekdays: %w", err)
	}
	days, err := availability.ParseWeekdays(tokens)
	if err != nil {
		return availability.Record{}, fmt.Errorf("weekdays: %w", err)
	}
	record.Weekdays = days

	if err := json.Unmarshal([]byte(specific), &record.SpecificDates); err != nil {
		return availability.Record{}, fmt.Errorf("specific_dates: %w", err)
	}
	if err := json.Unmarshal([]byte(exclusion), &record.ExclusionDates); err != nil {
		return availability.Record{}, fmt.Errorf("exclusion_dates: %w", err)
	}
	return record, nil
}
