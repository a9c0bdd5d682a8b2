package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/openheads/headcatalog/internal/domain/catalog"
	"github.com/openheads/headcatalog/internal/domain/favorite"
)

// Entry is one cell of a view. Category headers carry a zero Item.
type Entry struct {
	Category *catalog.Category
	Item     catalog.Item
}

// IsHeader reports whether the entry is a category header.
func (e Entry) IsHeader() bool { return e.Item.IsZero() }

// Key returns the favorite key of an item entry.
func (e Entry) Key() favorite.Key {
	return favorite.Key{Category: e.Category.Name, Item: e.Item.Name}
}

// FavoriteLister is the read side of favorite.Store used by the resolver.
type FavoriteLister interface {
	List(ctx context.Context, userID string) ([]favorite.Record, error)
}

// Resolution is a resolved view plus the user's favorite set read while
// resolving it. Favorites is empty for AllCategories, which never reads the store.
type Resolution struct {
	View      []Entry
	Favorites favorite.Set
}

// Resolve computes the ordered view for mode. It holds no state and can be
// called repeatedly.
func Resolve(ctx context.Context, mode Mode, idx *catalog.Index, favorites FavoriteLister, userID string) ([]Entry, error) {
	res, err := ResolveMarked(ctx, mode, idx, favorites, userID)
	if err != nil {
		return nil, err
	}
	return res.View, nil
}

// ResolveMarked is Resolve plus the favorite set needed to flag entries, read
// with a single List call.
func ResolveMarked(ctx context.Context, mode Mode, idx *catalog.Index, favorites FavoriteLister, userID string) (Resolution, error) {
	if mode.Kind() == ModeAllCategories {
		return Resolution{View: categoryHeaders(idx)}, nil
	}

	records, err := favorites.List(ctx, userID)
	if err != nil {
		return Resolution{}, fmt.Errorf("list favorites: %w", err)
	}
	res := Resolution{Favorites: favorite.NewSet(records)}

	switch mode.Kind() {
	case ModeCategory:
		res.View = categoryItems(idx, mode.Category())
	case ModeSearch:
		res.View = searchItems(idx, mode.Query())
	case ModeFavorites:
		res.View = favoriteItems(idx, records)
	default:
		return Resolution{}, fmt.Errorf("unknown mode %d", mode.Kind())
	}
	return res, nil
}

func categoryHeaders(idx *catalog.Index) []Entry {
	cats := idx.Categories()
	view := make([]Entry, len(cats))
	for i, c := range cats {
		view[i] = Entry{Category: c}
	}
	return view
}

func categoryItems(idx *catalog.Index, name string) []Entry {
	cat, ok := idx.FindCategory(name)
	if !ok {
		return []Entry{}
	}
	view := make([]Entry, 0, cat.ItemCount())
	for it := range cat.All() {
		view = append(view, Entry{Category: cat, Item: it})
	}
	return view
}

func searchItems(idx *catalog.Index, query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Entry{}
	}
	view := []Entry{}
	for _, cat := range idx.Categories() {
		for it := range cat.All() {
			if it.MatchesLower(q) {
				view = append(view, Entry{Category: cat, Item: it})
			}
		}
	}
	return view
}

// favoriteItems keeps store order and drops records whose head left the catalog.
func favoriteItems(idx *catalog.Index, records []favorite.Record) []Entry {
	view := make([]Entry, 0, len(records))
	seen := make(map[favorite.Key]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		cat, it, ok := idx.FindItem(r.Category, r.Item)
		if !ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		view = append(view, Entry{Category: cat, Item: it})
	}
	return view
}
