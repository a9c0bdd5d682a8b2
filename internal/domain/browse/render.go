package browse

import "github.com/openheads/headcatalog/internal/domain/catalog"

// Localization keys of the grid titles.
const (
	TitleMain      = "GUI.MainTitle"
	TitleCategory  = "GUI.CategoryTitle"
	TitleSearch    = "GUI.SearchTitle"
	TitleFavorites = "GUI.FavoriteTitle"
)

// WarningViewUnavailable is surfaced when the view could not be resolved.
const WarningViewUnavailable = "GUI.ViewUnavailable"

// Title is a localization key plus its placeholder arguments.
type Title struct {
	Key  string
	Args map[string]string
}

// RenderEntry is an entry flagged with the user's favorite state.
type RenderEntry struct {
	Category   *catalog.Category
	Item       catalog.Item
	IsFavorite bool
}

// IsHeader reports whether the entry is a category header.
func (e RenderEntry) IsHeader() bool { return e.Item.IsZero() }

// RenderModel is the immutable snapshot handed to the presentation layer.
type RenderModel struct {
	Open      bool
	Mode      Mode
	Title     Title
	PageIndex int
	PageCount int
	PageSize  int
	Entries   []RenderEntry
	// Warning is a localization key, set when the view degraded to empty.
	Warning string
}

func titleFor(mode Mode, view []Entry) Title {
	switch mode.Kind() {
	case ModeCategory:
		args := map[string]string{"category": mode.Category()}
		if len(view) > 0 && view[0].Category.DisplayNameKey != "" {
			args["category_key"] = view[0].Category.DisplayNameKey
		}
		return Title{Key: TitleCategory, Args: args}
	case ModeSearch:
		return Title{Key: TitleSearch, Args: map[string]string{"search": mode.Query()}}
	case ModeFavorites:
		return Title{Key: TitleFavorites}
	default:
		return Title{Key: TitleMain}
	}
}
