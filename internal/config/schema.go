package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/field"
)

type entityTypesFile struct {
	EntityTypes map[string]int `yaml:"entity_types"`
}

type fieldsFile struct {
	Fields map[string]struct {
		Type        string   `yaml:"type"`
		EntityTypes []string `yaml:"entity_types"`
	} `yaml:"fields"`
}

// LoadSchema reads the entity type registry and the field type map generated
// with the index. Any problem is an ErrConfiguration: the index and its
// schema files must be regenerated together.
func LoadSchema(entityTypesPath, fieldsPath string) (*entity.Registry, *field.Set, error) {
	var et entityTypesFile
	if err := readYAML(entityTypesPath, &et); err != nil {
		return nil, nil, err
	}
	registry, err := entity.NewRegistry(et.EntityTypes)
	if err != nil {
		return nil, nil, err
	}

	var ff fieldsFile
	if err := readYAML(fieldsPath, &ff); err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(ff.Fields))
	for name := range ff.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]field.Field, 0, len(names))
	for _, name := range names {
		decl := ff.Fields[name]
		for _, t := range decl.EntityTypes {
			if _, ok := registry.ID(t); !ok {
				return nil, nil, domain.Configurationf("field %q: unknown entity type %q", name, t)
			}
		}
		f, err := field.New(name, field.Type(decl.Type), decl.EntityTypes...)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		fields = append(fields, f)
	}
	set, err := field.NewSet(fields)
	if err != nil {
		return nil, nil, err
	}
	return registry, set, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return domain.Configurationf("read %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return domain.Configurationf("parse %s: %v", path, err)
	}
	return nil
}
