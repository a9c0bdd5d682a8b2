// Package catalogfile reads catalog definitions from a categories YAML file
// plus one JSON item file per category.
package catalogfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openheads/headcatalog/internal/domain/catalog"
)

// categoryEntry is one element of the categories file.
type categoryEntry struct {
	Name              string  `yaml:"name"`
	DisplayNameKey    string  `yaml:"display_name_key"`
	DescriptionKey    string  `yaml:"description_key"`
	RequirePermission bool    `yaml:"require_permission"`
	Permission        string  `yaml:"permission"`
	Price             float64 `yaml:"price"`
	File              string  `yaml:"file"`
	Texture           string  `yaml:"texture"`
}

type categoriesFile struct {
	Categories []categoryEntry `yaml:"categories"`
}

type itemEntry struct {
	Name    string  `json:"name"`
	Tags    tagList `json:"tags"`
	Texture string  `json:"texture"`
}

// tagList accepts either ["a","b"] or "a,b".
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = strings.Split(s, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tags must be a string or an array of strings: %w", err)
	}
	*t = list
	return nil
}

// Source loads definitions from disk on every Definitions call.
type Source struct {
	CategoriesFile string
	ItemsDir       string
}

// New creates a Source.
func New(categoriesFile, itemsDir string) *Source {
	return &Source{CategoriesFile: categoriesFile, ItemsDir: itemsDir}
}

// Definitions parses the categories file and every referenced item file.
// Only an unreadable categories file is an error; a broken item file is
// reported through Definition.Err so the category is skipped on load.
func (s *Source) Definitions() ([]catalog.Definition, error) {
	data, err := os.ReadFile(s.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var file categoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse categories file %s: %w", s.CategoriesFile, err)
	}

	defs := make([]catalog.Definition, 0, len(file.Categories))
	for _, c := range file.Categories {
		def := catalog.Definition{
			Name:              c.Name,
			DisplayNameKey:    c.DisplayNameKey,
			DescriptionKey:    c.DescriptionKey,
			RequirePermission: c.RequirePermission,
			Permission:        c.Permission,
			Price:             c.Price,
			Texture:           c.Texture,
		}
		def.Items, def.Err = s.readItems(c.File)
		defs = append(defs, def)
	}
	return defs, nil
}

func (s *Source) readItems(name string) ([]catalog.ItemDefinition, error) {
	if name == "" {
		return nil, errors.New("no items file configured")
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("items file %q escapes the items directory", name)
	}

	data, err := os.ReadFile(filepath.Join(s.ItemsDir, name))
	if err != nil {
		return nil, fmt.Errorf("read items file: %w", err)
	}
	var entries []itemEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse items file %s: %w", name, err)
	}

	items := make([]catalog.ItemDefinition, len(entries))
	for i, e := range entries {
		items[i] = catalog.ItemDefinition{Name: e.Name, Tags: e.Tags, Texture: e.Texture}
	}
	return items, nil
}
