// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoStorageAccess is returned when the models directory cannot be written.
	ErrNoStorageAccess = errors.New("no write access to models directory")

	// ErrInvalidFileName is returned for names that would leave the models directory.
	ErrInvalidFileName = errors.New("invalid model file name")
)

// =============================================================================
// DIRECTORY RESOLUTION
// =============================================================================

const (
	appDirName      = "konsulton"
	modelsDirName   = "models"
	fallbackSubpath = "OfflineStoryMaker/models"
)

// ResolveModelsDirectory returns the directory model files live in and
// creates it if needed. The result depends only on override and the
// platform environment, so repeated calls return the same path.
//
// Resolution order:
//   - override, when non-empty
//   - the per-user application data directory + konsulton/models
//   - ~/Downloads/OfflineStoryMaker/models when no data directory exists
func ResolveModelsDirectory(override string) (string, error) {
	dir := override
	if dir == "" {
		if data, err := userDataDir(); err == nil {
			dir = filepath.Join(data, appDirName, modelsDirName)
		} else {
			home, herr := os.UserHomeDir()
			if herr != nil {
				return "", fmt.Errorf("could not determine models directory: %w", errors.Join(err, herr))
			}
			dir = filepath.Join(home, "Downloads", filepath.FromSlash(fallbackSubpath))
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}
	return abs, nil
}

// userDataDir is XDG_DATA_HOME (or ~/.local/share) on unix-likes and the
// roaming application data directory on Windows and macOS.
func userDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows", "darwin", "ios":
		return os.UserConfigDir()
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}

// =============================================================================
// STORE
// =============================================================================

// Store answers presence questions about model files in one directory.
// It holds no state beyond the directory path; the filesystem is the
// source of truth.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory is not created.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Open resolves the models directory (see ResolveModelsDirectory) and
// returns a Store rooted there.
func Open(override string) (*Store, error) {
	dir, err := ResolveModelsDirectory(override)
	if err != nil {
		return nil, err
	}
	log.Printf("STORE | models_dir=%s", dir)
	return New(dir), nil
}

// Dir returns the models directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path a model file is (or would be) stored at.
func (s *Store) Path(fileName string) string {
	return filepath.Join(s.dir, fileName)
}

func validName(fileName string) bool {
	if fileName == "" || fileName == "." || fileName == ".." {
		return false
	}
	return !strings.ContainsAny(fileName, `/\`)
}

// Exists reports whether fileName is a regular file in the directory with
// non-zero length. Zero-byte files are leftovers of interrupted writes.
func (s *Store) Exists(fileName string) bool {
	size, ok := s.Size(fileName)
	return ok && size > 0
}

// Size returns the on-disk size of a model file.
func (s *Store) Size(fileName string) (int64, bool) {
	if !validName(fileName) {
		return 0, false
	}
	info, err := os.Stat(s.Path(fileName))
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

// ListInstalled filters ds down to the descriptors present on disk,
// preserving order.
func (s *Store) ListInstalled(ds []catalog.Descriptor) []catalog.Descriptor {
	if _, err := os.Stat(s.dir); err != nil {
		return nil
	}
	var out []catalog.Descriptor
	for _, d := range ds {
		if s.Exists(d.FileName) {
			out = append(out, d)
		}
	}
	return out
}

// Delete removes a model file. It reports whether a file was removed; a
// missing file is not an error.
func (s *Store) Delete(fileName string) (bool, error) {
	if !validName(fileName) {
		return false, fmt.Errorf("%w: %q", ErrInvalidFileName, fileName)
	}
	err := os.Remove(s.Path(fileName))
	if err == nil {
		log.Printf("STORE | deleted=%s", fileName)
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to delete %s: %w", fileName, err)
}

// FreeSpace returns the bytes available to the current user in the models
// directory's filesystem.
func (s *Store) FreeSpace() (uint64, error) {
	return FreeSpace(s.dir)
}

// CheckAccess verifies the models directory exists and is writable.
func (s *Store) CheckAccess() error {
	return CheckAccess(s.dir)
}
