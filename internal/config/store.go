package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileStore persists individual settings back into a configuration file,
// keeping every other key the file already has.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store for the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store writes to.
func (s *FileStore) Path() string {
	return s.path
}

// SetExecutable records path as lldb.executable.
func (s *FileStore) SetExecutable(path string) error {
	return s.set("lldb", "executable", path)
}

// set writes section.key = value. The file is created if it does not
// exist and replaced atomically otherwise.
func (s *FileStore) set(section, key string, value any) error {
	if s.path == "" {
		return ErrNoConfigFile
	}
	format, err := FormatOf(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(format)
	if err != nil {
		return err
	}

	table, ok := doc[section].(map[string]any)
	if !ok {
		table = make(map[string]any)
		doc[section] = table
	}
	table[key] = value

	var data []byte
	if format == FormatTOML {
		data, err = toml.Marshal(doc)
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.path, err)
	}

	return writeFileAtomic(s.path, data)
}

func (s *FileStore) read(format Format) (map[string]any, error) {
	doc := make(map[string]any)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", s.path, err)
	}

	if format == FormatTOML {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &ParseError{Path: s.path, Err: err}
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
