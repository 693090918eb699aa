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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/consul/api"
)

// Source yields one layer of raw settings.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// FileSource reads a file, or fixed content, through a decoder.
type FileSource struct {
	path    string
	data    []byte
	decoder Decoder
}

// NewFileSource reads path on every Load.
func NewFileSource(path string, decoder Decoder) *FileSource {
	return &FileSource{path: path, decoder: decoder}
}

// NewContentSource decodes data on every Load.
func NewContentSource(data []byte, decoder Decoder) *FileSource {
	return &FileSource{data: data, decoder: decoder}
}

// Load implements Source.
func (f *FileSource) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		if data, err = os.ReadFile(f.path); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.path, err)
		}
	}

	var conf map[string]any
	if err := f.decoder.Decode(data, &conf); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return conf, nil
}

// EnvSource reads environment variables carrying a prefix.
type EnvSource struct {
	prefix  string
	environ func() []string
}

// NewEnvSource reads the process environment.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix, environ: os.Environ}
}

// Load implements Source.
func (e *EnvSource) Load(context.Context) (map[string]any, error) {
	var lines []string
	for _, kv := range e.environ() {
		if rest, ok := strings.CutPrefix(kv, e.prefix); ok {
			lines = append(lines, rest)
		}
	}

	var conf map[string]any
	if err := (envCodec{}).Decode([]byte(strings.Join(lines, "\n")), &conf); err != nil {
		return nil, err
	}

	return conf, nil
}

// ConsulKV is the part of the Consul KV client a ConsulSource needs.
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// ConsulSource reads one key of Consul's key/value store. A missing key
// yields no settings.
type ConsulSource struct {
	kv        ConsulKV
	key       string
	decoder   Decoder
	lastIndex uint64
}

// NewConsulSource connects to the agent at address, or to the one named by
// CONSUL_HTTP_ADDR when address is empty.
func NewConsulSource(address, key string, decoder Decoder) (*ConsulSource, error) {
	cfg := api.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}

	return NewConsulKVSource(client.KV(), key, decoder), nil
}

// NewConsulKVSource reads key through kv.
func NewConsulKVSource(kv ConsulKV, key string, decoder Decoder) *ConsulSource {
	return &ConsulSource{kv: kv, key: key, decoder: decoder}
}

// LastIndex returns the modify index seen by the last Load.
func (c *ConsulSource) LastIndex() uint64 {
	return c.lastIndex
}

// Load implements Source.
func (c *ConsulSource) Load(ctx context.Context) (map[string]any, error) {
	pair, meta, err := c.kv.Get(c.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("consul get %s: %w", c.key, err)
	}
	if meta != nil {
		c.lastIndex = meta.LastIndex
	}
	if pair == nil {
		return map[string]any{}, nil
	}

	var conf map[string]any
	if err := c.decoder.Decode(pair.Value, &conf); err != nil {
		return nil, fmt.Errorf("consul decode %s: %w", c.key, err)
	}

	return conf, nil
}
