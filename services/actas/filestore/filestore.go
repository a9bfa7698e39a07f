package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voxcliente/backend/pkg/gen"
	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrUnknownKind = errors.New("unknown file kind")
)

// Store keeps generated documents on disk for a limited time and hands out
// random identifiers for them. The registry lives in memory only: after a
// restart it is empty and earlier identifiers resolve to ErrNotFound.
type Store struct {
	root  string
	ttl   time.Duration
	ids   gen.UUIDGenerator
	now   func() time.Time
	log   *slog.Logger
	mu    sync.RWMutex
	files map[string]*entity.StoredDocument
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(g gen.UUIDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

func New(root string, ttl time.Duration, log *slog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		root:  root,
		ttl:   ttl,
		ids:   gen.UUID(),
		now:   time.Now,
		log:   log,
		files: make(map[string]*entity.StoredDocument),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, kind := range []consts.Kind{consts.KindActa, consts.KindTranscript} {
		if err := os.MkdirAll(s.kindDir(kind), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s dir: %w", kind, err)
		}
	}
	log.Info("file store initialized",
		slog.String("root", root),
		slog.Duration("ttl", ttl))

	return s, nil
}

func (s *Store) kindDir(kind consts.Kind) string {
	return filepath.Join(s.root, string(kind)+"s")
}

// Save copies sourcePath into the store. The source is left untouched.
func (s *Store) Save(ctx context.Context, sourcePath string, kind consts.Kind, originalFilename string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	id := s.ids.NextString()
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = consts.DocxExt
	}
	dest := filepath.Join(s.kindDir(kind), id+ext)

	if err := copyFile(sourcePath, dest); err != nil {
		s.log.Error("failed to save file",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to save %s: %w", kind, err)
	}

	doc := &entity.StoredDocument{
		ID:               id,
		Path:             dest,
		Kind:             kind,
		OriginalFilename: originalFilename,
		CreatedAt:        s.now(),
	}

	s.mu.Lock()
	s.files[id] = doc
	total := len(s.files)
	s.mu.Unlock()

	s.log.Info("file saved",
		slog.String("id", id),
		slog.String("kind", string(kind)),
		slog.String("path", dest),
		slog.Int("total_files", total))

	return id, nil
}

// Resolve returns the registry record only when the backing file still
// exists. A record whose file vanished is dropped.
func (s *Store) Resolve(ctx context.Context, id string) (entity.StoredDocument, error) {
	s.mu.RLock()
	doc, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		s.log.Warn("file not found in registry", slog.String("id", id))
		return entity.StoredDocument{}, ErrNotFound
	}

	if _, err := os.Stat(doc.Path); err != nil {
		s.log.Warn("file missing on disk, dropping entry",
			slog.String("id", id),
			slog.String("path", doc.Path))
		s.mu.Lock()
		if cur, ok := s.files[id]; ok && cur == doc {
			delete(s.files, id)
		}
		s.mu.Unlock()
		return entity.StoredDocument{}, ErrNotFound
	}

	return *doc, nil
}

// PurgeExpired removes documents older than the TTL and returns how many
// were dropped.
func (s *Store) PurgeExpired(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)

	var expired []string
	for _, doc := range s.snapshot() {
		if doc.CreatedAt.Before(cutoff) {
			expired = append(expired, doc.ID)
		}
	}

	removed := s.removeAll(expired)
	s.log.Info("expired files purged",
		slog.Int("removed", removed),
		slog.Time("cutoff", cutoff))
	return removed
}

// PurgeAll removes every tracked document.
func (s *Store) PurgeAll(ctx context.Context) int {
	snap := s.snapshot()
	ids := make([]string, 0, len(snap))
	for _, doc := range snap {
		ids = append(ids, doc.ID)
	}

	removed := s.removeAll(ids)
	s.log.Info("all files purged", slog.Int("removed", removed))
	return removed
}

// Stats aggregates the registry. Sizes are read from disk on every call.
func (s *Store) Stats(ctx context.Context) entity.StoreStats {
	stats := entity.StoreStats{
		ByKind: map[consts.Kind]int{
			consts.KindActa:       0,
			consts.KindTranscript: 0,
		},
		TTLHours: s.ttl.Hours(),
	}

	for _, doc := range s.snapshot() {
		stats.TotalFiles++
		stats.ByKind[doc.Kind]++
		if info, err := os.Stat(doc.Path); err == nil {
			stats.TotalSizeBytes += info.Size()
		}
	}
	stats.TotalSizeMB = consts.Round2(float64(stats.TotalSizeBytes) / consts.BytesPerMB)

	return stats
}

func (s *Store) snapshot() []entity.StoredDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.StoredDocument, 0, len(s.files))
	for _, doc := range s.files {
		out = append(out, *doc)
	}
	return out
}

func (s *Store) removeAll(ids []string) int {
	removed := 0
	for _, id := range ids {
		if s.remove(id) {
			removed++
		}
	}
	return removed
}

func (s *Store) remove(id string) bool {
	s.mu.Lock()
	doc, ok := s.files[id]
	if ok {
		delete(s.files, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error("failed to remove file from disk",
			slog.String("id", id),
			slog.String("path", doc.Path),
			slog.String("error", err.Error()))
	}
	s.log.Debug("file removed", slog.String("id", id))
	return true
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
