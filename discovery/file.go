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

package discovery

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"rivaas.dev/routing"
	"rivaas.dev/routing/route"
)

var _ routing.Source = (*File)(nil)

// File is one annotated source file. It implements routing.Source.
type File struct {
	identity string
	path     string
	content  []byte
}

// NewFile wraps already-read content. identity names the file in the
// route cache and should be stable across machines, e.g. a path relative to
// the module root.
func NewFile(identity string, content []byte) *File {
	return &File{identity: identity, path: identity, content: content}
}

// ReadFile reads path and uses rel as its identity.
func ReadFile(path, rel string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	return &File{identity: filepath.ToSlash(rel), path: path, content: content}, nil
}

// Identity returns the cache identity.
func (f *File) Identity() string {
	return f.identity
}

// Path returns the file system path, or the identity for in-memory files.
func (f *File) Path() string {
	return f.path
}

// Content returns the bytes the file was read from.
func (f *File) Content() ([]byte, error) {
	return f.content, nil
}

// Register parses the file and emits its registrations through b.
func (f *File) Register(b *route.Builder) error {
	u, err := Parse(f.path, f.content)
	if err != nil {
		return err
	}

	return u.Register(b)
}

// ScanDir returns every non-test .go file under dir that contains a
// routing: annotation, ordered by identity. Hidden directories, vendor and
// testdata are skipped.
func ScanDir(dir string) ([]*File, error) {
	var files []*File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		f, err := ReadFile(path, rel)
		if err != nil {
			return err
		}
		if bytes.Contains(f.content, []byte(directivePrefix)) {
			files = append(files, f)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: scan %s: %w", dir, err)
	}

	slices.SortFunc(files, func(a, b *File) int { return strings.Compare(a.identity, b.identity) })

	return files, nil
}

// LoadDir scans dir and loads every annotated file into r.
func LoadDir(r *routing.Router, dir string) ([]*File, error) {
	files, err := ScanDir(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		r.Load(f)
	}

	return files, nil
}
