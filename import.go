package regs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MergeStrategy defines how imported records meet existing ones.
type MergeStrategy string

const (
	// MergeStrategySkip keeps existing records and adds only new ids.
	MergeStrategySkip MergeStrategy = "skip"
	// MergeStrategyReplace makes the imported records the whole collection.
	MergeStrategyReplace MergeStrategy = "replace"
	// MergeStrategyMerge upserts imported records by id (default).
	MergeStrategyMerge MergeStrategy = "merge"
)

// ParseMergeStrategy parses a strategy name. Empty means merge.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeStrategyMerge:
		return MergeStrategyMerge, nil
	case MergeStrategySkip:
		return MergeStrategySkip, nil
	case MergeStrategyReplace:
		return MergeStrategyReplace, nil
	}
	return "", &ValidationError{Field: "strategy", Message: fmt.Sprintf("unknown merge strategy %q", s)}
}

// ImportResult summarizes an import.
type ImportResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Merged  int      `json:"merged"`
	Skipped int      `json:"skipped"`
	Removed int      `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportJSON reads an export produced by ExportJSON and applies it to the
// local collection. Imported records are stored pending so the next sync
// mirrors them. With dryRun the result is computed but nothing is written.
//
// The slot lock is held for the whole import.
func (c *Client) ImportJSON(ctx context.Context, r io.Reader, strategy MergeStrategy, dryRun bool) (*ImportResult, error) {
	if strategy == "" {
		strategy = MergeStrategyMerge
	}
	if _, err := ParseMergeStrategy(string(strategy)); err != nil {
		return nil, err
	}

	imported, result, err := decodeExport(ctx, r)
	if err != nil {
		return result, err
	}

	err = c.withLock(func() error {
		records, err := c.records.Load(ctx)
		if err != nil {
			return err
		}
		tombstones, err := c.records.Tombstones(ctx)
		if err != nil {
			return err
		}

		merged := applyImport(records, imported, strategy, result)
		if dryRun {
			return nil
		}

		for _, rec := range imported {
			delete(tombstones, rec.ID)
		}
		sortNewestFirst(merged)
		if err := c.records.Save(ctx, merged); err != nil {
			return err
		}
		if err := c.records.SaveTombstones(ctx, tombstones); err != nil {
			return err
		}
		c.snapshot.Publish(merged)
		return nil
	})
	if err != nil {
		return result, err
	}

	c.logger.Info("import complete",
		"strategy", strategy,
		"dry_run", dryRun,
		"total", result.Total,
		"created", result.Created,
		"merged", result.Merged,
		"skipped", result.Skipped,
		"removed", result.Removed,
		"errors", len(result.Errors),
	)
	return result, nil
}

// applyImport returns the collection that results from importing into
// existing under strategy, counting outcomes into result.
func applyImport(existing, imported []Record, strategy MergeStrategy, result *ImportResult) []Record {
	var out []Record
	if strategy == MergeStrategyReplace {
		out = make([]Record, 0, len(imported))
	} else {
		out = cloneRecords(existing)
	}

	for _, rec := range imported {
		exists := indexOf(existing, rec.ID) >= 0
		switch {
		case exists && strategy == MergeStrategySkip:
			result.Skipped++
			continue
		case exists:
			result.Merged++
		default:
			result.Created++
		}

		if idx := indexOf(out, rec.ID); idx >= 0 {
			out[idx] = rec
		} else {
			out = append(out, rec)
		}
	}

	if strategy == MergeStrategyReplace {
		for _, rec := range existing {
			if indexOf(out, rec.ID) < 0 {
				result.Removed++
			}
		}
	}
	return out
}

// decodeExport streams the export document, returning every valid record.
// Invalid records are reported in the result and left out.
func decodeExport(ctx context.Context, r io.Reader) ([]Record, *ImportResult, error) {
	dec := json.NewDecoder(r)
	result := &ImportResult{}

	token, err := dec.Token()
	if err != nil {
		return nil, result, fmt.Errorf("read opening token: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, result, fmt.Errorf("expected opening brace, got %v", token)
	}

	var (
		version string
		records []Record
	)
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, result, err
		}

		token, err := dec.Token()
		if err != nil {
			return nil, result, fmt.Errorf("read field name: %w", err)
		}
		field, ok := token.(string)
		if !ok {
			return nil, result, fmt.Errorf("expected field name, got %v", token)
		}

		switch field {
		case "version":
			if err := dec.Decode(&version); err != nil {
				return nil, result, fmt.Errorf("decode version: %w", err)
			}
			if version != ExportVersion {
				return nil, result, fmt.Errorf("unsupported export version %q (expected %q)", version, ExportVersion)
			}
		case "records":
			if records, err = decodeRecords(ctx, dec, result); err != nil {
				return nil, result, fmt.Errorf("import records: %w", err)
			}
		default:
			var discard json.RawMessage
			if err := dec.Decode(&discard); err != nil {
				return nil, result, fmt.Errorf("decode %s: %w", field, err)
			}
		}
	}

	if version == "" {
		return nil, result, fmt.Errorf("missing version field in export file")
	}
	return records, result, nil
}

func decodeRecords(ctx context.Context, dec *json.Decoder, result *ImportResult) ([]Record, error) {
	token, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read records array start: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("expected records array, got %v", token)
	}

	var out []Record
	seen := make(map[string]bool)
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		result.Total++

		if err := checkImported(rec); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %q: %v", rec.ID, err))
			continue
		}
		if seen[rec.ID] {
			result.Errors = append(result.Errors, fmt.Sprintf("record %q: duplicate id", rec.ID))
			continue
		}
		seen[rec.ID] = true

		rec = normalize(rec)
		rec.Synced = boolPtr(false)
		out = append(out, rec)
	}

	token, err = dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read records array end: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != ']' {
		return nil, fmt.Errorf("expected records array end, got %v", token)
	}
	return out, nil
}

func checkImported(rec Record) error {
	if err := validateStruct(rec); err != nil {
		return err
	}
	if _, err := ParseTimestamp(rec.Timestamp); err != nil {
		return err
	}
	return nil
}
