package catalog

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition is the base error for every catalog load defect.
var ErrInvalidDefinition = errors.New("invalid catalog definition")

// Definition is an already-parsed category record handed to Load.
type Definition struct {
	Name              string `validate:"required"`
	DisplayNameKey    string
	DescriptionKey    string
	RequirePermission bool    `validate:"-"`
	Permission        string  `validate:"required_if=RequirePermission true"`
	Price             float64 `validate:"gte=0"`
	Texture           string

	Items []ItemDefinition `validate:"-"`

	// Err is set by a definition source that failed to read or parse the
	// category's item list. Load skips such categories.
	Err error `validate:"-"`
}

// ItemDefinition is an already-parsed item record.
type ItemDefinition struct {
	Name    string
	Tags    []string
	Texture string
}

// LoadError describes one skipped category or item.
type LoadError struct {
	Category string
	// Item is empty when the whole category was skipped.
	Item   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("category %q", e.Category)
	if e.Item != "" {
		msg += fmt.Sprintf(" item %q", e.Item)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidDefinition}
	}
	return []error{ErrInvalidDefinition, e.Err}
}

// SkipsCategory reports whether the defect dropped the whole category.
func (e *LoadError) SkipsCategory() bool {
	return e.Item == ""
}
