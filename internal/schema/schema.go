// Package schema declares the top-level keys of the catalog document: which
// keys are entity collections, what they default to, and which need admin
// credentials to write.
package schema

import (
	"embed"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Kind classifies a top-level key
type Kind string

const (
	KindCollection Kind = "collection"
	KindObject     Kind = "object"
)

// KeySpec describes one top-level key
type KeySpec struct {
	Name      string `yaml:"name"`
	Kind      Kind   `yaml:"kind"`
	Protected bool   `yaml:"protected"`
}

// Validate implements validation.Validatable
func (k KeySpec) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.Name, validation.Required),
		validation.Field(&k.Kind, validation.Required, validation.In(KindCollection, KindObject)),
	)
}

// Schema is the parsed key declaration. It is read-only after Load.
type Schema struct {
	keys  []KeySpec
	index map[string]KeySpec
}

type file struct {
	Keys []KeySpec `yaml:"keys"`
}

// Load parses the embedded default schema.
func Load() (*Schema, error) {
	data, err := configFiles.ReadFile("config/schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return Parse(data)
}

// MustLoad is Load for call sites where the embedded file cannot be wrong.
func MustLoad() *Schema {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

// Parse builds a Schema from YAML.
func Parse(data []byte) (*Schema, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return New(f.Keys...)
}

// New builds a Schema from key specs, rejecting duplicates and unknown kinds.
func New(keys ...KeySpec) (*Schema, error) {
	s := &Schema{index: make(map[string]KeySpec, len(keys))}
	for i, k := range keys {
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("schema key %d: %w", i, err)
		}
		if _, dup := s.index[k.Name]; dup {
			return nil, fmt.Errorf("schema key %q declared twice", k.Name)
		}
		s.index[k.Name] = k
		s.keys = append(s.keys, k)
	}
	return s, nil
}

// WithProtected returns a copy where exactly the named keys are protected.
// An empty list keeps the declared flags.
func (s *Schema) WithProtected(names []string) *Schema {
	if len(names) == 0 {
		return s
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	out := &Schema{index: make(map[string]KeySpec, len(s.keys))}
	for _, k := range s.keys {
		k.Protected = set[k.Name]
		out.index[k.Name] = k
		out.keys = append(out.keys, k)
	}
	return out
}

// Keys returns the declared key names in declaration order
func (s *Schema) Keys() []string {
	names := make([]string, len(s.keys))
	for i, k := range s.keys {
		names[i] = k.Name
	}
	return names
}

// IsCollection reports whether key is declared as an entity collection.
func (s *Schema) IsCollection(key string) bool {
	k, ok := s.index[key]
	return ok && k.Kind == KindCollection
}

// IsProtected reports whether writing key needs admin credentials.
// Undeclared keys are always protected.
func (s *Schema) IsProtected(key string) bool {
	k, ok := s.index[key]
	if !ok {
		return true
	}
	return k.Protected
}

// ProtectedKeys filters keys down to the protected ones, sorted.
func (s *Schema) ProtectedKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if s.IsProtected(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Default returns a fresh default value for a declared key.
func (s *Schema) Default(key string) (interface{}, bool) {
	k, ok := s.index[key]
	if !ok {
		return nil, false
	}
	switch k.Kind {
	case KindCollection:
		return []interface{}{}, true
	default:
		return map[string]interface{}{}, true
	}
}
