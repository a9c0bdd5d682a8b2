// Package browse resolves, pages and tracks what a user sees in the head catalog.
package browse

// ModeKind enumerates the browsing modes.
type ModeKind int

const (
	ModeAllCategories ModeKind = iota
	ModeCategory
	ModeSearch
	ModeFavorites
)

func (k ModeKind) String() string {
	switch k {
	case ModeAllCategories:
		return "all_categories"
	case ModeCategory:
		return "category"
	case ModeSearch:
		return "search"
	case ModeFavorites:
		return "favorites"
	default:
		return "unknown"
	}
}

// Mode is the active browsing filter. The zero value is AllCategories.
type Mode struct {
	kind     ModeKind
	category string
	query    string
}

// AllCategories shows category headers.
func AllCategories() Mode { return Mode{kind: ModeAllCategories} }

// InCategory shows every item of one category.
func InCategory(name string) Mode { return Mode{kind: ModeCategory, category: name} }

// Search shows items whose name or tags contain query.
func Search(query string) Mode { return Mode{kind: ModeSearch, query: query} }

// Favorites shows the user's favorite items.
func Favorites() Mode { return Mode{kind: ModeFavorites} }

func (m Mode) Kind() ModeKind { return m.kind }

// Category is the selected category name, empty outside ModeCategory.
func (m Mode) Category() string { return m.category }

// Query is the search text, empty outside ModeSearch.
func (m Mode) Query() string { return m.query }

// ItemGrid reports whether the mode lists items rather than category headers.
func (m Mode) ItemGrid() bool { return m.kind != ModeAllCategories }

func (m Mode) String() string {
	switch m.kind {
	case ModeCategory:
		return m.kind.String() + "(" + m.category + ")"
	case ModeSearch:
		return m.kind.String() + "(" + m.query + ")"
	default:
		return m.kind.String()
	}
}
