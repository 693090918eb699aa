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
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	markerPlain byte = 'm'
	markerZstd  byte = 'z'
)

// Codec encodes entries as msgpack, optionally zstd-compressed. The first
// byte records which, so either form decodes regardless of settings.
type Codec struct {
	compress bool
}

// NewCodec returns a codec that compresses when compress is true.
func NewCodec(compress bool) Codec {
	return Codec{compress: compress}
}

// Encode serializes e.
func (c Codec) Encode(e Entry) ([]byte, error) {
	raw, err := msgpack.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("cache: encode: %w", err)
	}

	if !c.compress {
		return append([]byte{markerPlain}, raw...), nil
	}

	zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("cache: zstd writer: %w", err)
	}
	defer zw.Close()

	return zw.EncodeAll(raw, []byte{markerZstd}), nil
}

// Decode parses data produced by Encode.
func (c Codec) Decode(data []byte) (Entry, error) {
	if len(data) == 0 {
		return Entry{}, fmt.Errorf("%w: empty", ErrCorrupt)
	}

	payload := data[1:]
	switch data[0] {
	case markerPlain:
	case markerZstd:
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return Entry{}, fmt.Errorf("cache: zstd reader: %w", err)
		}
		defer zr.Close()
		if payload, err = zr.DecodeAll(payload, nil); err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	default:
		return Entry{}, fmt.Errorf("%w: unknown marker %q", ErrCorrupt, data[0])
	}

	var e Entry
	if err := msgpack.Unmarshal(payload, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return e, nil
}
