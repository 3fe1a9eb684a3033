package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileRepository stores the token in a single 0600 file.
type FileRepository struct {
	path string
}

// NewFileRepository returns a repository backed by the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// DefaultHome returns ~/.gatekeep.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".gatekeep"), nil
}

// Path returns the token file location.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Load() (string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("session.FileRepository.Load: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

func (r *FileRepository) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("session.FileRepository.Save: create dir: %w", err)
	}
	if err := os.WriteFile(r.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("session.FileRepository.Save: %w", err)
	}
	return nil
}

func (r *FileRepository) Clear() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session.FileRepository.Clear: %w", err)
	}
	return nil
}
