package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"employee-access-service/internal/code"
	"employee-access-service/internal/identity/domain"
	"employee-access-service/internal/identity/export"
)

const (
	snapshotFile = "employee_codes.json"
	exportFile   = "employee_codes.txt"
)

// snapshotRecord is the on-disk shape of one identity. The snapshot maps
// canonical phone → record, so the phone itself is not repeated inside.
type snapshotRecord struct {
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessAt time.Time `json:"last_access_at"`
}

// FileStore persists identities as a file pair under one directory: a JSON
// snapshot (the source of truth) and a text export derived from it.
//
// Every mutation rewrites the snapshot via write-to-temp-then-rename and
// syncs it before the export is regenerated. The mutation is committed once
// the snapshot rename lands: a failed or interrupted export write leaves the
// store fully consistent and only the derived listing stale, which
// RegenerateExport (or any later mutation) repairs. All writes are
// serialized behind a single mutex; reads are served from the in-memory
// state under a read lock and never observe a torn store.
type FileStore struct {
	mu      sync.RWMutex
	dir     string
	byPhone map[string]*domain.Identity
}

// OpenFile opens (creating if needed) the file-backed store in dir and loads
// the snapshot. Failing to load an existing snapshot is an error, not a
// silent reset: wiping issued codes would strand every registered employee.
func OpenFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	s := &FileStore{dir: dir, byPhone: make(map[string]*domain.Identity)}

	raw, err := os.ReadFile(s.snapshotPath())
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read snapshot: %w", err)
	}
	var records map[string]snapshotRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("store: decode snapshot %s: %w", s.snapshotPath(), err)
	}
	for phone, r := range records {
		s.byPhone[phone] = &domain.Identity{
			Phone:        phone,
			DisplayName:  r.Name,
			Code:         r.Code,
			CreatedAt:    r.CreatedAt,
			LastAccessAt: r.LastAccessAt,
		}
	}
	return s, nil
}

// Len reports how many identities are loaded. Used for the startup log line.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPhone)
}

func (s *FileStore) snapshotPath() string { return filepath.Join(s.dir, snapshotFile) }
func (s *FileStore) exportPath() string   { return filepath.Join(s.dir, exportFile) }

func (s *FileStore) Lookup(_ context.Context, phone string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPhone[phone]
	if !ok {
		return nil, nil
	}
	cp := *id
	return &cp, nil
}

func (s *FileStore) FindByCode(_ context.Context, c string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.byPhone {
		if code.Equal(id.Code, c) {
			cp := *id
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *FileStore) Register(_ context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPhone[identity.Phone]; ok {
		return ErrDuplicateIdentity
	}
	for _, id := range s.byPhone {
		if id.Code == identity.Code {
			return ErrDuplicateCode
		}
	}

	cp := *identity
	next := s.cloneState()
	next[cp.Phone] = &cp
	if err := s.writeSnapshot(next); err != nil {
		return err
	}
	s.byPhone = next
	s.refreshExport(next)
	return nil
}

func (s *FileStore) TouchAccess(_ context.Context, phone string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPhone[phone]; !ok {
		return ErrNotFound
	}

	next := s.cloneState()
	next[phone].LastAccessAt = at
	if err := s.writeSnapshot(next); err != nil {
		return err
	}
	s.byPhone = next
	s.refreshExport(next)
	return nil
}

func (s *FileStore) List(_ context.Context) ([]*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Identity, 0, len(s.byPhone))
	for _, id := range s.byPhone {
		cp := *id
		out = append(out, &cp)
	}
	return out, nil
}

// cloneState copies the in-memory map so mutations build the next state
// aside and swap it in only after the snapshot is durably on disk.
func (s *FileStore) cloneState() map[string]*domain.Identity {
	next := make(map[string]*domain.Identity, len(s.byPhone)+1)
	for phone, id := range s.byPhone {
		cp := *id
		next[phone] = &cp
	}
	return next
}

// writeSnapshot writes the source-of-truth file (temp file, fsync, atomic
// rename). Once it returns nil the mutation is durable. Caller holds the
// write lock.
func (s *FileStore) writeSnapshot(state map[string]*domain.Identity) error {
	records := make(map[string]snapshotRecord, len(state))
	for phone, id := range state {
		records[phone] = snapshotRecord{
			Name:         id.DisplayName,
			Code:         id.Code,
			CreatedAt:    id.CreatedAt,
			LastAccessAt: id.LastAccessAt,
		}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	if err := writeFileAtomic(s.snapshotPath(), raw); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	return nil
}

// refreshExport regenerates the derived listing after a committed snapshot
// write. A failure here is recoverable (cmd/export re-derives the file), so
// it is logged and not propagated. Caller holds the write lock.
func (s *FileStore) refreshExport(state map[string]*domain.Identity) {
	listing := export.Render(identitiesOf(state))
	if err := writeFileAtomic(s.exportPath(), []byte(listing)); err != nil {
		log.Printf("store: write export (stale until regenerated): %v", err)
	}
}

// RegenerateExport rewrites the export file from the committed snapshot
// state. Used by the recovery tool after a crash between the two writes.
func (s *FileStore) RegenerateExport() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing := export.Render(identitiesOf(s.byPhone))
	if err := writeFileAtomic(s.exportPath(), []byte(listing)); err != nil {
		return fmt.Errorf("store: write export: %w", err)
	}
	return nil
}

func identitiesOf(state map[string]*domain.Identity) []*domain.Identity {
	phones := make([]string, 0, len(state))
	for phone := range state {
		phones = append(phones, phone)
	}
	sort.Strings(phones)
	out := make([]*domain.Identity, 0, len(state))
	for _, phone := range phones {
		out = append(out, state[phone])
	}
	return out
}

// writeFileAtomic writes data to a temp file in the same directory, syncs
// it, and renames it over path so readers see either the old or the new
// complete file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
