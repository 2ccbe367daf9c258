package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

// Scenario defines one declarative batch-edit conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Items seeds the catalog before the batch runs.
	Items []SeedItem `yaml:"items,omitempty"`

	// Missing lists item IDs that behave as deleted from the catalog.
	Missing []string `yaml:"missing,omitempty"`

	// Targets is the item ID list submitted to the batch.
	Targets []string `yaml:"targets"`

	// Change is the change set applied to every target.
	Change ChangeSpec `yaml:"change"`

	// OperationID pins the operation identity for deterministic warnings.
	// Defaults to the scenario name.
	OperationID string `yaml:"operation_id,omitempty"`

	// User is the submitting operator.
	User string `yaml:"user,omitempty"`

	// ChunkSize overrides the default chunk size.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// BudgetSeconds overrides the default invocation time budget.
	BudgetSeconds int `yaml:"budget_seconds,omitempty"`

	// ChunkSeconds is the simulated wall-clock cost of each chunk. Non-zero
	// values exercise the time budget and forced interruptions.
	ChunkSeconds int `yaml:"chunk_seconds,omitempty"`

	// Resume keeps invoking resume until the operation completes.
	Resume bool `yaml:"resume,omitempty"`
}

// SeedItem is one pre-existing catalog record.
type SeedItem struct {
	ID             string   `yaml:"id"`
	StartDate      string   `yaml:"start_date,omitempty"`
	EndDate        string   `yaml:"end_date,omitempty"`
	Weekdays       []string `yaml:"weekdays,omitempty"`
	SpecificDates  []string `yaml:"specific_dates,omitempty"`
	ExclusionDates []string `yaml:"exclusion_dates,omitempty"`
}

// ChangeSpec is the YAML form of a change set.
type ChangeSpec struct {
	Reset          bool     `yaml:"reset,omitempty"`
	StartDate      string   `yaml:"start_date,omitempty"`
	EndDate        string   `yaml:"end_date,omitempty"`
	Weekdays       []string `yaml:"weekdays,omitempty"`
	SpecificDates  []string `yaml:"specific_dates,omitempty"`
	ExclusionDates []string `yaml:"exclusion_dates,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Targets) == 0 {
		return fmt.Errorf("targets list is required and must be non-empty")
	}
	if _, err := s.Change.toChangeSet(); err != nil {
		return fmt.Errorf("change: %w", err)
	}
	for i, item := range s.Items {
		if item.ID == "" {
			return fmt.Errorf("items[%d]: id is required", i)
		}
		if _, err := item.toRecord(); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	if s.ChunkSeconds < 0 || s.BudgetSeconds < 0 || s.ChunkSize < 0 {
		return fmt.Errorf("durations and sizes must be non-negative")
	}
	return nil
}

func (c ChangeSpec) toChangeSet() (availability.ChangeSet, error) {
	var change availability.ChangeSet
	change.Reset = c.Reset

	var err error
	if change.StartDate, err = parseOptionalDate("start_date", c.StartDate); err != nil {
		return availability.ChangeSet{}, err
	}
	if change.EndDate, err = parseOptionalDate("end_date", c.EndDate); err != nil {
		return availability.ChangeSet{}, err
	}
	if change.Weekdays, err = availability.ParseWeekdays(c.Weekdays); err != nil {
		return availability.ChangeSet{}, fmt.Errorf("weekdays: %w", err)
	}
	if change.SpecificDates, err = parseDateList("specific_dates", c.SpecificDates); err != nil {
		return availability.ChangeSet{}, err
	}
	if change.ExclusionDates, err = parseDateList("exclusion_dates", c.ExclusionDates); err != nil {
		return availability.ChangeSet{}, err
	}
	return change, nil
}

func (s SeedItem) toRecord() (availability.Record, error) {
	record := availability.Record{ItemID: s.ID}

	var err error
	if record.StartDate, err = parseOptionalDate("start_date", s.StartDate); err != nil {
		return availability.Record{}, err
	}
	if record.EndDate, err = parseOptionalDate("end_date", s.EndDate); err != nil {
		return availability.Record{}, err
	}
	if record.Weekdays, err = availability.ParseWeekdays(s.Weekdays); err != nil {
		return availability.Record{}, fmt.Errorf("weekdays: %w", err)
	}
	if record.SpecificDates, err = parseDateList("specific_dates", s.SpecificDates); err != nil {
		return availability.Record{}, err
	}
	if record.ExclusionDates, err = parseDateList("exclusion_dates", s.ExclusionDates); err != nil {
		return availability.Record{}, err
	}
	return record, nil
}

func parseOptionalDate(field, raw string) (*availability.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := availability.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &d, nil
}

func parseDateList(field string, raw []string) ([]availability.Date, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]availability.Date, 0, len(raw))
	for _, s := range raw {
		d, err := availability.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, d)
	}
	return out, nil
}
