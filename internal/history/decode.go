package history

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// Decoder parses history export documents.
type Decoder struct {
	// Strict rejects keys that are not part of the export schema.
	Strict bool
}

// ignoredFields are present in some exports but carry nothing we keep.
var ignoredFields = map[string]bool{
	"locationInfos": true,
}

// Decode parses an export using strict field checking.
func Decode(r io.Reader) ([]RawActivityRecord, error) {
	return Decoder{Strict: true}.Decode(r)
}

// DecodeFile opens path and decodes it with d.
func (d Decoder) DecodeFile(path string) ([]RawActivityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	records, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Decode reads a JSON array of activity records. Shape problems are reported
// with the record index and field name; a wrong type never silently becomes
// an empty value.
func (d Decoder) Decode(r io.Reader) ([]RawActivityRecord, error) {
	dec := json.NewDecoder(r)
	var entries []json.RawMessage
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("export is not a JSON array: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("export is not a JSON array: null")
	}
	if dec.More() {
		return nil, fmt.Errorf("export has trailing content after the array")
	}

	records := make([]RawActivityRecord, 0, len(entries))
	for i, entry := range entries {
		rec, err := d.decodeRecord(entry)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d Decoder) decodeRecord(entry json.RawMessage) (RawActivityRecord, error) {
	var rec RawActivityRecord

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return rec, fmt.Errorf("not a JSON object: %w", err)
	}
	if fields == nil {
		return rec, fmt.Errorf("not a JSON object: null")
	}

	// Sorted so the first reported problem is stable.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := fields[key]

		var target interface{}
		switch key {
		case "header":
			target = &rec.Header
		case "title":
			target = &rec.Title
		case "titleUrl":
			target = &rec.TitleURL
		case "time":
			target = &rec.Time
		case "description":
			target = &rec.Description
		case "activityControls":
			target = &rec.ActivityControls
		case "products":
			target = &rec.Products
		case "details":
			target = &rec.Details
		case "subtitles":
			target = &rec.Subtitles
		default:
			if d.Strict && !ignoredFields[key] {
				return rec, fmt.Errorf("unexpected field %q", key)
			}
			continue
		}

		if err := json.Unmarshal(raw, target); err != nil {
			return rec, fmt.Errorf("field %q: %w", key, err)
		}
	}

	return rec, nil
}
