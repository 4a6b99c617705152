package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/tabwell/schema"
)

// TabRecord captures one tab's metadata for persistence. Load state is
// deliberately absent: every restored tab starts unloaded.
type TabRecord struct {
	ID        schema.TabID     `json:"id"`
	ProfileID schema.ProfileID `json:"profile_id"`
	Parent    schema.TabID     `json:"parent,omitempty"`
	URL       string           `json:"url"`
	Title     string           `json:"title,omitempty"`
}

// SessionSnapshot is the complete persisted session. Every save replaces the
// whole file; there is no append log.
type SessionSnapshot struct {
	Order               []schema.TabID                     `json:"order"`
	Tabs                []TabRecord                        `json:"tabs"`
	ActiveTab           schema.TabID                       `json:"active_tab,omitempty"`
	LastActiveByProfile map[schema.ProfileID]schema.TabID  `json:"last_active_by_profile,omitempty"`
	Window              schema.WindowGeometry              `json:"window"`
}

const sessionFile = "session.json"

// Store persists the session snapshot to disk.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Load reads the session snapshot from disk. A missing file is not an error.
func (s *Store) Load() (SessionSnapshot, bool, error) {
	path := filepath.Join(s.dir, sessionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("session load miss")
			}
			return SessionSnapshot{}, false, nil
		}
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return SessionSnapshot{}, false, err
	}
	var snapshot SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return SessionSnapshot{}, false, err
	}
	if s.log != nil {
		s.log.Debug("session load ok", "tabs", len(snapshot.Tabs))
	}
	return snapshot, true, nil
}

// Save writes the session snapshot atomically: temp file, fsync, rename.
func (s *Store) Save(snapshot SessionSnapshot) error {
	path := filepath.Join(s.dir, sessionFile)
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return s.saveFailed(err)
	}
	tmp, err := os.CreateTemp(s.dir, "session-*.json")
	if err != nil {
		return s.saveFailed(err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return s.saveFailed(err)
	}
	if s.log != nil {
		s.log.Trace("session save ok", "tabs", len(snapshot.Tabs))
	}
	return nil
}

func (s *Store) saveFailed(err error) error {
	if s.log != nil {
		s.log.Warn("session save failed", "err", err)
	}
	return err
}
