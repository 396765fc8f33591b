package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
	"document-qa/internal/models"
)

const (
	tempPrefix      = ".upload-"
	indexTempSuffix = ".index.tmp"
	backupSuffix    = ".prev"
)

// Store keeps uploaded documents and their index files side by side in one directory.
type Store struct {
	dir   string
	locks *Locker
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := helper.CreateFolder(dir); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir, locks: NewLocker()}, nil
}

// Dir is the storage directory.
func (s *Store) Dir() string { return s.dir }

// Locks returns the per-filename locks guarding documents in this store.
func (s *Store) Locks() *Locker { return s.locks }

// ValidateFilename rejects names that would escape the storage directory.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", models.ErrInvalidFilename, name)
	}
	if strings.HasPrefix(name, tempPrefix) {
		return fmt.Errorf("%w: %q uses a reserved prefix", models.ErrInvalidFilename, name)
	}
	return nil
}

// DocumentPath is where the raw upload for filename lives.
func (s *Store) DocumentPath(filename string) string {
	return filepath.Join(s.dir, filename)
}

// IndexPath is the sibling index file for filename.
func (s *Store) IndexPath(filename string) string {
	return filepath.Join(s.dir, filename+models.IndexSuffix)
}

// Exists reports whether both the document and its index are present.
func (s *Store) Exists(filename string) (bool, error) {
	for _, p := range []string{s.DocumentPath(filename), s.IndexPath(filename)} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// Staged is a file written under a temporary name. It becomes visible under its final
// name only through Publish; Discard removes it.
type Staged struct {
	Path      string
	Size      int64
	finalPath string
}

// Stage copies r into a temporary file next to the final document path. The temporary
// name keeps the document's extension so extractors can dispatch on it.
func (s *Store) Stage(filename string, r io.Reader) (*Staged, error) {
	return s.stage(filename, "", s.DocumentPath(filename), func(w io.Writer) (int64, error) {
		return io.Copy(w, r)
	})
}

// StageIndex writes src to a temporary file that Publish moves to filename's index path.
func (s *Store) StageIndex(filename string, src io.WriterTo) (*Staged, error) {
	return s.stage(filename, indexTempSuffix, s.IndexPath(filename), src.WriteTo)
}

func (s *Store) stage(filename, suffix, finalPath string, write func(io.Writer) (int64, error)) (*Staged, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	tmpPath := filepath.Join(s.dir, tempPrefix+id+"-"+filename+suffix)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open staging file: %w", err)
	}
	n, err := write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write staging file: %w", err)
	}
	return &Staged{Path: tmpPath, Size: n, finalPath: finalPath}, nil
}

// Discard removes the staged file if it is still in place. It is a no-op once published.
func (st *Staged) Discard() {
	_ = os.Remove(st.Path)
}

// Publication is a set of staged files moved to their final names. The files they
// replaced are kept aside until Finish; Rollback puts them back.
type Publication struct {
	published []*Staged
	backups   map[string]string
}

// Publish moves every staged file to its final name. Existing files under those names
// are set aside first. On error nothing under the final names has changed.
func Publish(staged ...*Staged) (*Publication, error) {
	p := &Publication{backups: make(map[string]string)}
	for _, st := range staged {
		info, err := os.Lstat(st.finalPath)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err == nil && !info.Mode().IsRegular() {
			err = fmt.Errorf("%s is not a regular file", filepath.Base(st.finalPath))
		}
		if err == nil {
			backup := st.Path + backupSuffix
			if err = os.Rename(st.finalPath, backup); err == nil {
				p.backups[st.finalPath] = backup
				continue
			}
		}
		p.Rollback()
		return nil, fmt.Errorf("set aside %s: %w", filepath.Base(st.finalPath), err)
	}
	for _, st := range staged {
		if err := os.Rename(st.Path, st.finalPath); err != nil {
			p.Rollback()
			return nil, fmt.Errorf("publish %s: %w", filepath.Base(st.finalPath), err)
		}
		p.published = append(p.published, st)
	}
	return p, nil
}

// Rollback removes the published files and restores the ones they replaced.
func (p *Publication) Rollback() {
	for _, st := range p.published {
		if err := os.Remove(st.finalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Str("path", st.finalPath).Msg("Error removing published file")
		}
	}
	for final, backup := range p.backups {
		if err := os.Rename(backup, final); err != nil {
			log.Error().Err(err).Str("path", final).Msg("Error restoring replaced file")
		}
	}
	p.published, p.backups = nil, nil
}

// Finish drops the replaced files.
func (p *Publication) Finish() {
	for _, backup := range p.backups {
		if err := os.Remove(backup); err != nil {
			log.Warn().Err(err).Str("path", backup).Msg("Error removing replaced file")
		}
	}
	p.published, p.backups = nil, nil
}

// List describes every document that has an index file, sorted by name.
func (s *Store) List() ([]models.DocumentInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var docs []models.DocumentInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, models.IndexSuffix) {
			continue
		}
		filename := strings.TrimSuffix(name, models.IndexSuffix)
		info, err := os.Stat(s.DocumentPath(filename))
		if err != nil {
			continue
		}
		docs = append(docs, models.DocumentInfo{
			Filename:   filename,
			SizeBytes:  info.Size(),
			IngestedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// Locker hands out one RWMutex per filename.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.RWMutex)}
}

func (l *Locker) get(name string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[name] = m
	}
	return m
}

// Lock takes the writer lock for name and returns its release func.
func (l *Locker) Lock(name string) func() {
	m := l.get(name)
	m.Lock()
	return m.Unlock
}

// RLock takes the reader lock for name and returns its release func.
func (l *Locker) RLock(name string) func() {
	m := l.get(name)
	m.RLock()
	return m.RUnlock
}
