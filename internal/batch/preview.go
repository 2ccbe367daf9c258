package batch

import (
	"context"
	"errors"

	"github.com/smartdev1/tours-bulk-editor/internal/availability"
)

// ItemPreview is the concrete-date diff for one sampled item.
type ItemPreview struct {
	ItemID string            `json:"item_id"`
	Diff   availability.Diff `json:"diff"`
}

// PreviewResult summarizes what a change set would do to a sample of the
// item set, over a bounded date window, without persisting anything.
type PreviewResult struct {
	WindowStart availability.Date `json:"window_start"`
	WindowEnd   availability.Date `json:"window_end"`
	TotalItems  int               `json:"total_items"`
	SampleSize  int               `json:"sample_size"`
	Items       []ItemPreview     `json:"items"`
	Errors      []ItemFailure     `json:"errors,omitempty"`
}

// Preview expands the existing and would-be-merged records of the first
// sampleSize items into concrete available dates and diffs them. It shares
// the merge and expansion logic with production apply, so the preview
// cannot drift from what a later Start would do.
//
// sampleSize <= 0 takes the configured default. Items that fail to load or
// merge are reported in Errors, mirroring how Start would classify them.
func (o *Orchestrator) Preview(ctx context.Context, itemIDs []string, change availability.ChangeSet, sampleSize int) (*PreviewResult, error) {
	if len(itemIDs) == 0 {
		return nil, newError(ErrCodeEmptyItemList, "no item ids supplied")
	}
	change = change.Normalize()
	if change.IsEmpty() {
		return nil, newError(ErrCodeEmptyChangeSet, "every change field is absent and reset is false")
	}
	if err := change.Validate(); err != nil {
		return nil, &Error{Code: ErrCodeValidationFailed, Message: err.Error(), Err: err}
	}

	if sampleSize <= 0 {
		sampleSize = o.cfg.PreviewSample
	}
	itemIDs = dedupeStrings(itemIDs)
	sample := itemIDs
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	windowStart := availability.DateOf(o.clock.Now())
	windowEnd := windowStart.AddDays(o.cfg.PreviewWindowDays - 1)

	result := &PreviewResult{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		TotalItems:  len(itemIDs),
		SampleSize:  len(sample),
	}
	for _, itemID := range sample {
		existing, err := o.items.GetAvailability(ctx, itemID)
		if err != nil {
			result.Errors = append(result.Errors, ItemFailure{ItemID: itemID, Message: err.Error()})
			continue
		}
		diff, err := availability.Preview(existing, change, windowStart, windowEnd)
		if err != nil {
			var verr *availability.ValidationError
			if errors.As(err, &verr) {
				result.Errors = append(result.Errors, ItemFailure{ItemID: itemID, Message: verr.Error()})
				continue
			}
			return nil, &Error{Code: ErrCodeValidationFailed, Message: "preview " + itemID, Err: err}
		}
		result.Items = append(result.Items, ItemPreview{ItemID: itemID, Diff: diff})
	}
	return result, nil
}
