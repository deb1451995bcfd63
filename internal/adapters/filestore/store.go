// Package filestore keeps processed ids and classified records in JSON
// files, one directory per user.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/utils"
)

const (
	processedFile  = "processed_ids.json"
	classifiedFile = "classified_emails.json"
)

// Store is a RecordStore backed by two JSON documents per user
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates the base directory if needed
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

func (s *Store) userDir(userID string) string {
	if userID == "" {
		return s.dir
	}
	return filepath.Join(s.dir, userID)
}

// readJSON decodes path into out. A missing file leaves out untouched.
func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	return utils.WriteFileAtomic(path, data)
}

func (s *Store) loadProcessed(userID string) ([]string, error) {
	var ids []string
	err := readJSON(filepath.Join(s.userDir(userID), processedFile), &ids)
	return ids, err
}

func (s *Store) loadRecords(userID string) ([]*core.ClassifiedRecord, error) {
	var records []*core.ClassifiedRecord
	err := readJSON(filepath.Join(s.userDir(userID), classifiedFile), &records)
	return records, err
}

// ProcessedIDs returns the ids already handled for the user
func (s *Store) ProcessedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.loadProcessed(userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// SaveRecord prepends the record to the classified list and marks its id
// processed. A record with a known id replaces the stored one.
func (s *Store) SaveRecord(ctx context.Context, userID string, record *core.ClassifiedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(userID)
	if err != nil {
		return err
	}
	kept := make([]*core.ClassifiedRecord, 0, len(records)+1)
	kept = append(kept, record)
	for _, r := range records {
		if r.ID != record.ID {
			kept = append(kept, r)
		}
	}

	ids, err := s.loadProcessed(userID)
	if err != nil {
		return err
	}
	if !contains(ids, record.ID) {
		ids = append(ids, record.ID)
	}

	dir := s.userDir(userID)
	if err := writeJSON(filepath.Join(dir, classifiedFile), kept); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, processedFile), ids)
}

// Records returns the user's records, newest first. limit <= 0 means all.
func (s *Store) Records(ctx context.Context, userID string, limit int) ([]*core.ClassifiedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReceivedAt.After(records[j].ReceivedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// DeleteOlderThan drops records received more than days ago. Their ids stay
// in the processed list so the messages are not classified again.
func (s *Store) DeleteOlderThan(ctx context.Context, userID string, days int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadRecords(userID)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	kept := make([]*core.ClassifiedRecord, 0, len(records))
	for _, r := range records {
		if r.ReceivedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}
	deleted := int64(len(records) - len(kept))
	if deleted == 0 {
		return 0, nil
	}

	if err := writeJSON(filepath.Join(s.userDir(userID), classifiedFile), kept); err != nil {
		return 0, err
	}
	s.logger.Info("Deleted old records",
		zap.String("user_id", userID),
		zap.Int("days", days),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
