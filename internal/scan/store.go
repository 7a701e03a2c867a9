package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lazerdave/shipping-forecast-recorder/internal/fileutil"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

const latestPointerName = "latest.json"

// Store persists snapshots as JSON documents plus an atomically updated
// pointer to the newest one. Readers therefore always see either the previous
// generation or the new one, never a partial write.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

type latestPointer struct {
	Generation string `json:"generation"`
	Path       string `json:"path"`
}

// Save writes the snapshot document and then repoints latest.json at it.
func (s *Store) Save(snap *Snapshot) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStorage, "scan", "save", s.dir, err)
	}

	name := fmt.Sprintf("scan_%s.json", snap.Generation)
	path := filepath.Join(s.dir, name)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "scan", "save", "encode snapshot", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrStorage, "scan", "save", path, err)
	}

	ptr, err := json.Marshal(latestPointer{Generation: snap.Generation, Path: name})
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "scan", "save", "encode pointer", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(s.dir, latestPointerName), ptr, 0o644); err != nil {
		return "", services.Wrap(services.ErrStorage, "scan", "save", "update latest pointer", err)
	}
	return path, nil
}

// LoadLatest reads the snapshot the latest pointer names. A missing pointer
// means no scan has ever completed here.
func (s *Store) LoadLatest() (*Snapshot, error) {
	ptrData, err := os.ReadFile(filepath.Join(s.dir, latestPointerName))
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "scan", "load", "read latest pointer", err)
	}
	var ptr latestPointer
	if err := json.Unmarshal(ptrData, &ptr); err != nil {
		return nil, services.Wrap(services.ErrStorage, "scan", "load", "decode latest pointer", err)
	}
	return s.Load(filepath.Join(s.dir, ptr.Path))
}

// Load reads one snapshot document.
func (s *Store) Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "scan", "load", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, services.Wrap(services.ErrStorage, "scan", "load", path, err)
	}
	return &snap, nil
}
