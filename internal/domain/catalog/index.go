package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Index is the immutable, load-ordered set of categories. It is safe for
// concurrent reads without synchronization.
type Index struct {
	categories []*Category
	byName     map[string]*Category
	items      int
}

// Empty returns an index with no categories.
func Empty() *Index {
	return &Index{byName: map[string]*Category{}}
}

// Load builds an Index from parsed definitions. Defects never abort the load:
// a broken category is omitted, a broken item is dropped from its category,
// and every skip is reported as a *LoadError. Duplicate names keep the first
// definition.
func Load(defs []Definition) (*Index, []*LoadError) {
	idx := Empty()
	var defects []*LoadError

	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if def.Err != nil {
			defects = append(defects, &LoadError{Category: name, Reason: "item list unavailable", Err: def.Err})
			continue
		}
		if err := validate.Struct(def); err != nil {
			defects = append(defects, &LoadError{Category: name, Reason: describe(err)})
			continue
		}
		if name == "" {
			defects = append(defects, &LoadError{Reason: "empty category name"})
			continue
		}
		if _, dup := idx.byName[name]; dup {
			defects = append(defects, &LoadError{Category: name, Reason: "duplicate category name, later definition ignored"})
			continue
		}

		cat := &Category{
			Name:              name,
			DisplayNameKey:    def.DisplayNameKey,
			DescriptionKey:    def.DescriptionKey,
			RequirePermission: def.RequirePermission,
			Permission:        def.Permission,
			Price:             def.Price,
			Texture:           def.Texture,
			byName:            make(map[string]int, len(def.Items)),
		}
		for _, it := range def.Items {
			itemName := strings.TrimSpace(it.Name)
			if itemName == "" {
				defects = append(defects, &LoadError{Category: name, Item: "(unnamed)", Reason: "empty item name"})
				continue
			}
			if _, dup := cat.byName[itemName]; dup {
				defects = append(defects, &LoadError{Category: name, Item: itemName, Reason: "duplicate item name, later definition ignored"})
				continue
			}
			cat.byName[itemName] = len(cat.items)
			cat.items = append(cat.items, newItem(itemName, it.Tags, it.Texture))
		}

		idx.byName[name] = cat
		idx.categories = append(idx.categories, cat)
		idx.items += len(cat.items)
	}

	return idx, defects
}

func newItem(name string, rawTags []string, texture string) Item {
	var tags []string
	for _, raw := range rawTags {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	lowerTags := make([]string, len(tags))
	for i, tag := range tags {
		lowerTags[i] = strings.ToLower(tag)
	}
	return Item{
		Name:      name,
		Tags:      tags,
		Texture:   texture,
		lowerName: strings.ToLower(name),
		lowerTags: lowerTags,
	}
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required when %s", fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// Categories returns every category in load order. The slice is a copy; the
// categories themselves are shared and immutable.
func (x *Index) Categories() []*Category {
	return slices.Clone(x.categories)
}

// FindCategory looks up a category by its unique name.
func (x *Index) FindCategory(name string) (*Category, bool) {
	c, ok := x.byName[name]
	return c, ok
}

// FindItem looks up an item by category and item name.
func (x *Index) FindItem(category, item string) (*Category, Item, bool) {
	c, ok := x.byName[category]
	if !ok {
		return nil, Item{}, false
	}
	it, ok := c.Item(item)
	if !ok {
		return nil, Item{}, false
	}
	return c, it, true
}

// Len returns the number of categories.
func (x *Index) Len() int {
	return len(x.categories)
}

// ItemCount returns the number of items across all categories.
func (x *Index) ItemCount() int {
	return x.items
}
