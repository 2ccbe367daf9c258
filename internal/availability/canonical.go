package availability

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for content-addressed operation identity. The version
// suffix enables future algorithm migration without colliding with old IDs.
const operationIDDomain = "bulkedit/operation/v1"

// OperationID derives a deterministic operation identifier from the batch
// inputs: the sorted item IDs, the change set, the submitting user and the
// creation time truncated to the minute. Identical resubmissions of the
// same form therefore map to the same ID and are idempotent-detectable.
//
// Format: SHA256(domain + 0x00 + canonicalJSON), hex-encoded. The null
// separator prevents domain/payload boundary ambiguity.
func OperationID(itemIDs []string, change ChangeSet, user string, createdAt time.Time) (string, error) {
	sorted := append([]string(nil), itemIDs...)
	sort.Strings(sorted)
	ids := make([]any, len(sorted))
	for i, id := range sorted {
		ids[i] = id
	}

	payload := map[string]any{
		"item_ids":   ids,
		"change":     changeCanonical(change),
		"user":       user,
		"created_at": createdAt.UTC().Truncate(time.Minute).Unix(),
	}
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("operation id: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(operationIDDomain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// changeCanonical flattens a change set into canonical-marshalable values.
// Absent fields are omitted entirely so that "absent" and "present but
// empty" cannot hash differently by accident.
func changeCanonical(c ChangeSet) map[string]any {
	out := map[string]any{"reset": c.Reset}
	if c.StartDate != nil {
		out["start_date"] = c.StartDate.String()
	}
	if c.EndDate != nil {
		out["end_date"] = c.EndDate.String()
	}
	if len(c.Weekdays) > 0 {
		out["weekdays"] = stringsToAny(WeekdayTokens(NormalizeWeekdays(c.Weekdays)))
	}
	if len(c.SpecificDates) > 0 {
		out["specific_dates"] = datesToAny(DedupeDates(c.SpecificDates))
	}
	if len(c.ExclusionDates) > 0 {
		out["exclusion_dates"] = datesToAny(DedupeDates(c.ExclusionDates))
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func datesToAny(ds []Date) []any {
	out := make([]any, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

// MarshalCanonical produces deterministic JSON for hashing: object keys
// sorted, strings NFC-normalized, no HTML escaping, no floats, no null.
// This is the only serialization used for operation identity.
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := MarshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("value of %q: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString NFC-normalizes then encodes without HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, fmt.Errorf("encode string: %w", err)
	}
	// Encoder appends a trailing newline.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
