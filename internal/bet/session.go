package bet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// sessionFile is the on-disk shape of a saved session.
type sessionFile struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
}

// Session persists the player's display name between runs. The name is not
// authenticated and not unique; it only labels history records.
type Session struct {
	path string
}

// NewSession builds a Session stored at path.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// Load reads the saved display name. A missing file is not an error and
// yields an empty name.
func (s *Session) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read session: %w", err)
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("parse session: %w", err)
	}

	return file.Name, nil
}

// Save writes the display name atomically.
func (s *Session) Save(name string) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	file := sessionFile{
		Name:      name,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write session tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}

	return nil
}
