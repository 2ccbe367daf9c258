package cli

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

//go:embed changeset.cue
var changeSetSchema string

// LoadError represents an error that occurred while loading an input file.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

// changeSetFile is the decoded wire form of a change set file. Pointer and
// slice fields distinguish "absent" from "present but empty".
type changeSetFile struct {
	Reset          *bool    `json:"reset"`
	StartDate      *string  `json:"start_date"`
	EndDate        *string  `json:"end_date"`
	Weekdays       []string `json:"weekdays"`
	SpecificDates  []string `json:"specific_dates"`
	ExclusionDates []string `json:"exclusion_dates"`
}

// LoadChangeSet reads a change set from a .cue, .yaml/.yml or .json file,
// validates it against the embedded schema and converts it to the typed
// change set.
//
// Schema validation happens before type conversion, so malformed weekday
// tokens and date strings are reported with the file path rather than
// surfacing later as merge errors.
func LoadChangeSet(path string) (availability.ChangeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return availability.ChangeSet{}, &LoadError{Code: ErrCodeFileRead, Path: path, Message: err.Error()}
	}

	ctx := cuecontext.New()
	var value cue.Value
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue", ".json":
		// CUE is a superset of JSON; one compile path covers both.
		value = ctx.CompileBytes(data, cue.Filename(path))
	case ".yaml", ".yml":
		file, err := yaml.Extract(path, data)
		if err != nil {
			return availability.ChangeSet{}, &LoadError{Code: ErrCodeBadChange, Path: path, Message: err.Error()}
		}
		value = ctx.BuildFile(file)
	default:
		return availability.ChangeSet{}, &LoadError{
			Code: ErrCodeBadChange, Path: path,
			Message: fmt.Sprintf("unsupported change set extension %q (use .cue, .yaml or .json)", ext),
		}
	}
	if err := value.Err(); err != nil {
		return availability.ChangeSet{}, &LoadError{Code: ErrCodeBadChange, Path: path, Message: err.Error()}
	}

	schema := ctx.CompileString(changeSetSchema, cue.Filename("changeset.cue"))
	if err := schema.Err(); err != nil {
		return availability.ChangeSet{}, fmt.Errorf("internal schema error: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#ChangeSet")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return availability.ChangeSet{}, &LoadError{Code: ErrCodeBadChange, Path: path, Message: err.Error()}
	}

	var wire changeSetFile
	if err := unified.Decode(&wire); err != nil {
		return availability.ChangeSet{}, &LoadError{Code: ErrCodeBadChange, Path: path, Message: err.Error()}
	}
	change, err := wire.toChangeSet()
	if err != nil {
		return availability.ChangeSet{}, &LoadError{Code: ErrCodeBadChange, Path: path, Message: err.Error()}
	}
	return change, nil
}

func (w changeSetFile) toChangeSet() (availability.ChangeSet, error) {
	var change availability.ChangeSet
	if w.Reset != nil {
		change.Reset = *w.Reset
	}
	if w.StartDate != nil {
		d, err := availability.ParseDate(*w.StartDate)
		if err != nil {
			return availability.ChangeSet{}, fmt.Errorf("start_date: %w", err)
		}
		change.StartDate = &d
	}
	if w.EndDate != nil {
		d, err := availability.ParseDate(*w.EndDate)
		if err != nil {
			return availability.ChangeSet{}, fmt.Errorf("end_date: %w", err)
		}
		change.EndDate = &d
	}

	days, err := availability.ParseWeekdays(w.Weekdays)
	if err != nil {
		return availability.ChangeSet{}, fmt.Errorf("weekdays: %w", err)
	}
	change.Weekdays = days

	change.SpecificDates, err = parseDates("specific_dates", w.SpecificDates)
	if err != nil {
		return availability.ChangeSet{}, err
	}
	change.ExclusionDates, err = parseDates("exclusion_dates", w.ExclusionDates)
	if err != nil {
		return availability.ChangeSet{}, err
	}
	return change, nil
}

func parseDates(field string, raw []string) ([]availability.Date, error) {
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

// LoadItemIDs reads item IDs from a file, one per line. Blank lines and
// lines starting with '#' are skipped; surrounding whitespace is trimmed.
func LoadItemIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeFileRead, Path: path, Message: err.Error()}
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeFileRead, Path: path, Message: err.Error()}
	}
	if len(ids) == 0 {
		return nil, &LoadError{Code: ErrCodeBadItems, Path: path, Message: "no item ids found"}
	}
	return ids, nil
}
