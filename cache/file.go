// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const fileExt = ".rcache"

// emptyName stands for "" on disk; escape never produces a lone percent.
const emptyName = "%"

// FileStore keeps one file per key: <dir>/<scope>/<unit>.rcache, with scope
// and unit percent-escaped into single file name components.
// Writes go to a temporary file that is renamed into place, so concurrent
// writers of the same bytes never expose a partial file.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	scope, unit := SplitKey(key)
	return filepath.Join(s.dir, escape(scope), escape(unit)+fileExt)
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", key, err)
	}

	return data, nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, key string, data []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: write %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: close %s: %w", key, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cache: rename %s: %w", key, err)
	}

	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}

	return nil
}

// Clear removes every entry of scope, or of all scopes when scope is "".
func (s *FileStore) Clear(_ context.Context, scope string) error {
	dir := s.dir
	if scope != "" {
		dir = filepath.Join(s.dir, escape(scope))
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cache: clear %s: %w", dir, err)
	}

	return nil
}

// Keys lists stored keys in lexical order.
func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileExt) {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		dirName, fileName, _ := strings.Cut(filepath.ToSlash(rel), "/")
		scope, err := unescape(dirName)
		if err != nil {
			return err
		}
		unit, err := unescape(strings.TrimSuffix(fileName, fileExt))
		if err != nil {
			return err
		}
		keys = append(keys, Key(scope, unit))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	slices.Sort(keys)

	return keys, nil
}

// escape maps a scope or unit name onto a single file name component.
// Distinct names never share a component.
func escape(name string) string {
	if name == "" {
		return emptyName
	}
	name = strings.ReplaceAll(url.PathEscape(name), ":", "%3A")
	if name[0] == '.' {
		name = "%2E" + name[1:]
	}

	return name
}

func unescape(name string) (string, error) {
	if name == emptyName {
		return "", nil
	}

	return url.PathUnescape(name)
}
