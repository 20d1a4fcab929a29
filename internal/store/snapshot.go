package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// FlushInterval is how often the persistence loop checks the dirty flag
// and, if set, writes both maps to disk.
const FlushInterval = 5 * time.Second

// diskImage is the on-disk snapshot format: both maps, kept separate so a
// reload restores primary/replica ownership exactly.
type diskImage struct {
	Primary map[string]string `json:"primary"`
	Replica map[string]string `json:"replica"`
}

// SnapshotPath returns the per-node snapshot file path for a node
// listening on port, rooted at dataDir.
func SnapshotPath(dataDir string, port int) string {
	return filepath.Join(dataDir, fmt.Sprintf("data_%d.json", port))
}

// Flush writes the current primary/replica maps to path if the store is
// dirty, then clears the dirty flag. The write is performed via a
// temp-file-plus-rename so a concurrent crash can't leave a half-written
// file, the same pattern this node's WAL-backed ancestor used for its
// own snapshot writes.
//
// Flush does not hold s.mu during file I/O: it copies both maps first (see
// snapshotMaps), so disk I/O never happens while the mutation mutex is
// held.
func (s *Store) Flush(path string) error {
	primary, replica, dirty := s.snapshotMaps()
	if !dirty {
		return nil
	}

	img := diskImage{Primary: primary, Replica: replica}
	data, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename snapshot: %w", err)
	}

	s.clearDirty()
	return nil
}

// Load reads path and replaces the store's maps with its contents. A
// missing file is not an error — the store stays empty. A truncated or
// otherwise corrupt file is tolerated: both maps reset to empty and a
// warning is logged through logger.
func (s *Store) Load(path string, logger *log.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: read snapshot: %w", err)
	}

	if len(data) == 0 {
		logger.Printf("snapshot %s is empty, starting with empty maps", path)
		s.replaceMaps(make(map[string]string), make(map[string]string))
		return nil
	}

	var img diskImage
	if err := json.Unmarshal(data, &img); err != nil {
		logger.Printf("snapshot %s is corrupt (%v), starting with empty maps", path, err)
		s.replaceMaps(make(map[string]string), make(map[string]string))
		return nil
	}

	if img.Primary == nil {
		img.Primary = make(map[string]string)
	}
	if img.Replica == nil {
		img.Replica = make(map[string]string)
	}
	s.replaceMaps(img.Primary, img.Replica)
	return nil
}

// RunFlushLoop flushes the store to path every FlushInterval until stop is
// closed. Persistence errors are logged and ignored on the next tick —
// they never propagate to clients.
func (s *Store) RunFlushLoop(path string, logger *log.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Flush(path); err != nil {
				logger.Printf("snapshot flush failed: %v", err)
			}
		}
	}
}
