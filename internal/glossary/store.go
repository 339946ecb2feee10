package glossary

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// JSONStore persists the project collection as a single JSON file.
type JSONStore struct {
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads all projects, returning an empty collection when the file does
// not exist yet.
func (s *JSONStore) Load() ([]Project, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Save writes the whole collection as indented JSON, creating parent
// directories as needed.
func (s *JSONStore) Save(projects []Project) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
