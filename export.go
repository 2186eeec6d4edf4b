package regs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ExportVersion is the current version of the export format.
const ExportVersion = "1"

// ExportFormat is the top-level structure of a JSON export.
type ExportFormat struct {
	Version        string    `json:"version"`
	ExportedAt     time.Time `json:"exported_at"`
	Collection     string    `json:"collection"`
	PendingDeletes []string  `json:"pending_deletes"`
	Records        []Record  `json:"records"`
}

// ExportJSON streams the local collection as JSON to w.
func (c *Client) ExportJSON(ctx context.Context, w io.Writer) error {
	var (
		records    []Record
		tombstones map[string]bool
	)
	err := c.withLock(func() error {
		var err error
		if records, err = c.records.Load(ctx); err != nil {
			return err
		}
		tombstones, err = c.records.Tombstones(ctx)
		return err
	})
	if err != nil {
		return err
	}

	pending := make([]string, 0, len(tombstones))
	for id := range tombstones {
		pending = append(pending, id)
	}
	slices.Sort(pending)
	rawPending, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode pending deletes: %w", err)
	}

	header := fmt.Sprintf(`{"version":%s,"exported_at":%s,"collection":%s,"pending_deletes":%s,"records":[`,
		jsonString(ExportVersion),
		jsonString(c.now().UTC().Format(time.RFC3339)),
		jsonString(c.config.Collection),
		rawPending,
	)
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc := json.NewEncoder(w)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, err)
		}
	}

	if _, err := io.WriteString(w, "]}\n"); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}
	return nil
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Backup writes a consistent copy of the database to destPath.
// destPath must not exist.
func (s *Store) Backup(ctx context.Context, destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup: %s already exists", destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("backup: create directory: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, destPath); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}
