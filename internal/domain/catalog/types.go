// Package catalog holds the read-only index of head categories and their items.
package catalog

import (
	"iter"
	"slices"
	"strings"
)

// Item is a single obtainable head inside a category. Immutable after load.
type Item struct {
	Name    string
	Tags    []string
	Texture string

	lowerName string
	lowerTags []string
}

// MatchesLower reports whether the lower-cased query is a substring of the
// item name or of any of its tags. Callers lower-case the query once per scan.
func (i Item) MatchesLower(lowerQuery string) bool {
	if strings.Contains(i.lowerName, lowerQuery) {
		return true
	}
	for _, tag := range i.lowerTags {
		if strings.Contains(tag, lowerQuery) {
			return true
		}
	}
	return false
}

// IsZero reports whether i is the zero Item.
func (i Item) IsZero() bool {
	return i.Name == ""
}

// Category is a named group of items sharing a price and permission gate.
// A Category is never mutated once the Index holding it is built.
type Category struct {
	Name              string
	DisplayNameKey    string
	DescriptionKey    string
	RequirePermission bool
	Permission        string
	// Price is the unit price. 0 means free.
	Price   float64
	Texture string

	items  []Item
	byName map[string]int
}

// Items returns the category's items in catalog order.
// The returned slice is a copy.
func (c *Category) Items() []Item {
	return slices.Clone(c.items)
}

// ItemCount returns the number of items in the category.
func (c *Category) ItemCount() int {
	return len(c.items)
}

// Item looks up an item by name.
func (c *Category) Item(name string) (Item, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// IsFree reports whether acquiring items of this category costs nothing.
func (c *Category) IsFree() bool {
	return c.Price <= 0
}

// All iterates the items in catalog order without copying the list.
func (c *Category) All() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range c.items {
			if !yield(it) {
				return
			}
		}
	}
}
