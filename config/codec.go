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

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Format names an encoding understood by sources and [Dump].
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatEnv  Format = "env"
)

// Decoder turns encoded bytes into a value.
type Decoder interface {
	Decode(data []byte, v any) error
}

// Encoder turns a value into encoded bytes.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

type tomlCodec struct{}

func (tomlCodec) Encode(v any) ([]byte, error) { return toml.Marshal(v) }

func (tomlCodec) Decode(data []byte, v any) error { return toml.Unmarshal(data, v) }

type yamlCodec struct{}

func (yamlCodec) Encode(v any) ([]byte, error) { return yaml.Marshal(v) }

func (yamlCodec) Decode(data []byte, v any) error { return yaml.Unmarshal(data, v) }

type jsonCodec struct{}

func (jsonCodec) Encode(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

func (jsonCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

// envCodec decodes KEY=value lines into nested maps. Keys are lowercased and
// split on "__".
type envCodec struct{}

func (envCodec) Encode(any) ([]byte, error) {
	return nil, fmt.Errorf("config: encoding to environment variables is not supported")
}

func (envCodec) Decode(data []byte, v any) error {
	ptr, ok := v.(*map[string]any)
	if !ok {
		return fmt.Errorf("config: env decode: expected *map[string]any, got %T", v)
	}

	conf := make(map[string]any)
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		key, value, ok := strings.Cut(string(line), "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))

		var parts []string
		for part := range strings.SplitSeq(key, "__") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = strings.TrimSpace(value)
	}
	*ptr = conf

	return nil
}

var codecs = map[Format]interface {
	Encoder
	Decoder
}{
	FormatTOML: tomlCodec{},
	FormatYAML: yamlCodec{},
	FormatJSON: jsonCodec{},
	FormatEnv:  envCodec{},
}

// DecoderFor returns the decoder of f.
func DecoderFor(f Format) (Decoder, error) {
	c, ok := codecs[f]
	if !ok {
		return nil, fmt.Errorf("config: no decoder for format %q", f)
	}

	return c, nil
}

// EncoderFor returns the encoder of f.
func EncoderFor(f Format) (Encoder, error) {
	c, ok := codecs[f]
	if !ok || f == FormatEnv {
		return nil, fmt.Errorf("config: no encoder for format %q", f)
	}

	return c, nil
}

var extensionFormats = map[string]Format{
	".toml": FormatTOML,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

// DetectFormat returns the format implied by the extension of path.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}

	return "", fmt.Errorf("config: cannot detect format from extension %q", ext)
}
