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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const directivePrefix = "//routing:"

// Directive kinds.
const (
	KindController = "controller"
	KindRoute      = "route"
)

// ErrInvalidAnnotation is returned for a malformed routing: comment.
var ErrInvalidAnnotation = errors.New("discovery: invalid annotation")

// Directive is one parsed routing: comment.
type Directive struct {
	Kind  string
	Args  []string
	Flags map[string][]string
}

// Flag returns the last value of name, or "".
func (d Directive) Flag(name string) string {
	v := d.Flags[name]
	if len(v) == 0 {
		return ""
	}

	return v[len(v)-1]
}

// List returns the comma-separated values of every occurrence of name.
func (d Directive) List(name string) []string {
	var out []string
	for _, v := range d.Flags[name] {
		for item := range strings.SplitSeq(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}

	return out
}

// Has reports whether name was given.
func (d Directive) Has(name string) bool {
	_, ok := d.Flags[name]
	return ok
}

// ParseDirective parses a single comment. It reports false when text is not
// a routing: comment.
func ParseDirective(text string) (Directive, bool, error) {
	if !strings.HasPrefix(text, directivePrefix) {
		return Directive{}, false, nil
	}

	tokens, err := tokenize(strings.TrimPrefix(text, directivePrefix))
	if err != nil {
		return Directive{}, true, fmt.Errorf("%w: %q: %v", ErrInvalidAnnotation, text, err)
	}
	if len(tokens) == 0 {
		return Directive{}, true, fmt.Errorf("%w: %q: missing kind", ErrInvalidAnnotation, text)
	}

	d := Directive{Kind: tokens[0], Flags: make(map[string][]string)}
	switch d.Kind {
	case KindController, KindRoute:
	default:
		return Directive{}, true, fmt.Errorf("%w: unknown kind %q", ErrInvalidAnnotation, d.Kind)
	}

	for _, tok := range tokens[1:] {
		if !strings.HasPrefix(tok, "-") || tok == "-" {
			d.Args = append(d.Args, tok)
			continue
		}
		name, value, _ := strings.Cut(strings.TrimLeft(tok, "-"), "=")
		d.Flags[name] = append(d.Flags[name], value)
	}

	return d, true, nil
}

// tokenize splits on spaces, honouring double-quoted Go string literals
// both as whole tokens and as flag values (-title="Show user").
func tokenize(s string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			end := closingQuote(s, i)
			if end < 0 {
				return nil, errors.New("unterminated quote")
			}
			v, err := strconv.Unquote(s[i : end+1])
			if err != nil {
				return nil, err
			}
			cur.WriteString(v)
			i = end
		case unicode.IsSpace(rune(c)):
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	return tokens, nil
}

func closingQuote(s string, open int) int {
	for j := open + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}

	return -1
}
