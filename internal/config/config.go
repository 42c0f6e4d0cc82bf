// Package config loads scheme declarations from a YAML file so filterd can
// start with a known field registry.
package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/filterlang/filterlang/internal/store"
	"github.com/filterlang/filterlang/internal/validation"
)

// File is the root of a schemes YAML file:
//
//	schemes:
//	  - name: http
//	    fields:
//	      - name: req.host
//	        type: bytes
//	      - name: ip.src
//	        type: ip
type File struct {
	Schemes []Scheme `yaml:"schemes"`
}

type Scheme struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

type Field struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Load reads and validates a schemes file. Unknown YAML keys are rejected.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading schemes file %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrapf(err, "parsing schemes file %s", path)
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid schemes file %s", path)
	}
	return &f, nil
}

// Validate checks every declared scheme and field.
func (f *File) Validate() error {
	seen := make(map[string]bool)
	for _, s := range f.Schemes {
		if err := validation.ValidateSchemeName(s.Name); err != nil {
			return err
		}
		if seen[s.Name] {
			return errors.Errorf("scheme %q declared twice", s.Name)
		}
		seen[s.Name] = true

		if err := validation.ValidateFieldCount(len(s.Fields)); err != nil {
			return errors.Wrapf(err, "scheme %q", s.Name)
		}
		for _, field := range s.Fields {
			if err := validation.ValidateFieldName(field.Name); err != nil {
				return errors.Wrapf(err, "scheme %q", s.Name)
			}
			if _, err := validation.ParseFieldType(field.Type); err != nil {
				return errors.Wrapf(err, "scheme %q field %q", s.Name, field.Name)
			}
		}
	}
	return nil
}

// StoreFields resolves a scheme's field declarations into store fields.
// Validate must have accepted the file first.
func (s Scheme) StoreFields() []store.Field {
	out := make([]store.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		t, err := validation.ParseFieldType(f.Type)
		if err != nil {
			continue
		}
		out = append(out, store.Field{Name: f.Name, Type: t})
	}
	return out
}
