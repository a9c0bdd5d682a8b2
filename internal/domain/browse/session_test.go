package browse

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openheads/headcatalog/internal/domain/catalog"
	"github.com/openheads/headcatalog/internal/domain/favorite"
)

func manyCategories(t *testing.T, n int) *catalog.Index {
	t.Helper()
	defs := make([]catalog.Definition, n)
	for i := range defs {
		defs[i] = catalog.Definition{Name: fmt.Sprintf("cat-%02d", i)}
	}
	idx, _ := catalog.Load(defs)
	return idx
}

func transition(t *testing.T, s *Session, mode Mode, idx *catalog.Index, lister FavoriteLister) {
	t.Helper()
	tr := s.Begin(mode)
	res, err := ResolveMarked(context.Background(), tr.Mode(), idx, lister, s.UserID())
	if !s.Install(tr, res, err) {
		t.Fatal("install rejected")
	}
}

func TestSession_CategoryGridPaging(t *testing.T) {
	t.Parallel()

	s := NewSession("alice", DefaultGrid())
	transition(t, s, AllCategories(), manyCategories(t, 30), &stubLister{})

	m := s.Render()
	if !m.Open || m.PageCount != 2 || len(m.Entries) != 28 || m.PageSize != 28 {
		t.Fatalf("page 1: open=%v count=%d entries=%d size=%d", m.Open, m.PageCount, len(m.Entries), m.PageSize)
	}
	if m.Title.Key != TitleMain {
		t.Errorf("title = %q, want %q", m.Title.Key, TitleMain)
	}

	moved, err := s.NextPage()
	if err != nil || !moved {
		t.Fatalf("NextPage = %v, %v", moved, err)
	}
	m = s.Render()
	if m.PageIndex != 2 || len(m.Entries) != 2 {
		t.Errorf("page 2: index=%d entries=%d", m.PageIndex, len(m.Entries))
	}

	moved, _ = s.NextPage()
	if moved || s.Render().PageIndex != 2 {
		t.Error("NextPage at last page must be a no-op")
	}
	s.PrevPage()
	moved, _ = s.PrevPage()
	if moved || s.Render().PageIndex != 1 {
		t.Error("PrevPage at page 1 must be a no-op")
	}
}

func TestSession_NavigationDoesNotResolve(t *testing.T) {
	t.Parallel()

	lister := &stubLister{}
	s := NewSession("alice", DefaultGrid())
	transition(t, s, Favorites(), testIndex(t), lister)
	calls := lister.calls

	s.NextPage()
	s.PrevPage()
	s.Render()

	if _, pending := s.Pending(); pending {
		t.Error("navigation must not mark the view stale")
	}
	if lister.calls != calls {
		t.Error("navigation re-read favorites")
	}
}

func TestSession_ModeSwitchResetsPageAndSize(t *testing.T) {
	t.Parallel()

	idx := manyCategories(t, 30)
	s := NewSession("alice", DefaultGrid())
	transition(t, s, AllCategories(), idx, &stubLister{})
	s.NextPage()

	transition(t, s, Search("cat"), idx, &stubLister{})
	m := s.Render()
	if m.PageIndex != 1 || m.PageSize != 45 {
		t.Errorf("after search: page=%d size=%d, want 1 and 45", m.PageIndex, m.PageSize)
	}
	if m.Title.Key != TitleSearch || m.Title.Args["search"] != "cat" {
		t.Errorf("title = %+v", m.Title)
	}
}

func TestSession_CloseClearsState(t *testing.T) {
	t.Parallel()

	s := NewSession("alice", DefaultGrid())
	transition(t, s, InCategory("Mobs"), testIndex(t), &stubLister{})

	s.Close()

	if s.State() != StateClosed {
		t.Fatal("session should be closed")
	}
	if s.Mode().Kind() != ModeAllCategories {
		t.Errorf("mode = %v, filter should be cleared", s.Mode())
	}
	m := s.Render()
	if m.Open || len(m.Entries) != 0 {
		t.Errorf("closed render: open=%v entries=%d", m.Open, len(m.Entries))
	}
	if _, err := s.NextPage(); !errors.Is(err, ErrClosed) {
		t.Errorf("NextPage on closed = %v, want ErrClosed", err)
	}
}

func TestSession_StaleInstallDropped(t *testing.T) {
	t.Parallel()

	idx := testIndex(t)
	s := NewSession("alice", DefaultGrid())

	old := s.Begin(InCategory("Mobs"))
	transition(t, s, InCategory("VIP"), idx, &stubLister{})

	res, err := ResolveMarked(context.Background(), old.Mode(), idx, &stubLister{}, "alice")
	if s.Install(old, res, err) {
		t.Fatal("superseded transition must not install")
	}
	m := s.Render()
	if m.Entries[0].Category.Name != "VIP" {
		t.Errorf("view = %s, want VIP items", m.Entries[0].Category.Name)
	}

	closing := s.Begin(Favorites())
	s.Close()
	if s.Install(closing, Resolution{}, nil) {
		t.Error("install after close must be dropped")
	}
}

func TestSession_ResolveErrorDegradesToEmpty(t *testing.T) {
	t.Parallel()

	idx := testIndex(t)
	s := NewSession("alice", DefaultGrid())
	transition(t, s, InCategory("Mobs"), idx, &stubLister{})

	transition(t, s, Favorites(), idx, &stubLister{err: errors.New("down")})

	m := s.Render()
	if !m.Open || len(m.Entries) != 0 || m.Warning != WarningViewUnavailable {
		t.Errorf("open=%v entries=%d warning=%q", m.Open, len(m.Entries), m.Warning)
	}
	if m.Mode.Kind() != ModeFavorites {
		t.Errorf("mode = %v, want favorites", m.Mode)
	}
}

func TestSession_InvalidateKeepsPage(t *testing.T) {
	t.Parallel()

	var records []favorite.Record
	defs := catalog.Definition{Name: "Big"}
	for i := range 50 {
		name := fmt.Sprintf("head-%02d", i)
		defs.Items = append(defs.Items, catalog.ItemDefinition{Name: name})
		records = append(records, favorite.Record{UserID: "alice", Category: "Big", Item: name})
	}
	idx, _ := catalog.Load([]catalog.Definition{defs})
	lister := &stubLister{records: records}

	s := NewSession("alice", DefaultGrid())
	transition(t, s, Favorites(), idx, lister)
	s.NextPage()

	s.ApplyFavorite(favorite.Key{Category: "Big", Item: "head-49"}, favorite.Removed)
	tr, pending := s.Pending()
	if !pending {
		t.Fatal("favorites mode toggle should invalidate")
	}

	lister.records = records[:49]
	res, err := ResolveMarked(context.Background(), tr.Mode(), idx, lister, "alice")
	s.Install(tr, res, err)
	if got := s.Render().PageIndex; got != 2 {
		t.Errorf("page after invalidate = %d, want 2", got)
	}

	lister.records = records[:3]
	s.Invalidate()
	tr, _ = s.Pending()
	res, err = ResolveMarked(context.Background(), tr.Mode(), idx, lister, "alice")
	s.Install(tr, res, err)
	if got := s.Render().PageIndex; got != 1 {
		t.Errorf("page should be re-clamped to 1, got %d", got)
	}
}

func TestSession_ApplyFavoriteFlagsEntry(t *testing.T) {
	t.Parallel()

	s := NewSession("alice", DefaultGrid())
	transition(t, s, InCategory("Mobs"), testIndex(t), &stubLister{})

	s.ApplyFavorite(favorite.Key{Category: "Mobs", Item: "Creeper"}, favorite.Added)

	if _, pending := s.Pending(); pending {
		t.Error("category mode must not be invalidated by a toggle")
	}
	m := s.Render()
	if !m.Entries[0].IsFavorite || m.Entries[1].IsFavorite {
		t.Errorf("flags = %v %v, want true false", m.Entries[0].IsFavorite, m.Entries[1].IsFavorite)
	}
}
