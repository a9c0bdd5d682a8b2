package browse

import (
	"errors"
	"sync"
	"time"

	"github.com/openheads/headcatalog/internal/domain/favorite"
)

// ErrClosed is returned by page navigation on a closed catalog.
var ErrClosed = errors.New("catalog is closed")

// State is the lifecycle state of a Session.
type State int

const (
	StateClosed State = iota
	StateBrowsing
)

func (s State) String() string {
	if s == StateBrowsing {
		return "browsing"
	}
	return "closed"
}

// Grid holds the page sizes of the two grids.
type Grid struct {
	CategoryPageSize int
	ItemPageSize     int
}

// DefaultGrid returns the 28-slot category grid and the 45-slot item grid.
func DefaultGrid() Grid {
	return Grid{CategoryPageSize: 28, ItemPageSize: 45}
}

// SizeFor returns the page size used to display mode.
func (g Grid) SizeFor(mode Mode) int {
	if mode.ItemGrid() {
		return g.ItemPageSize
	}
	return g.CategoryPageSize
}

// Transition identifies one pending resolve. A result is installed only if
// no newer transition, invalidation or close happened in between.
type Transition struct {
	generation uint64
	mode       Mode
}

// Mode is the mode to resolve.
func (t Transition) Mode() Mode { return t.mode }

// Session is the browsing state of one user. Its mutex guards only
// snapshot and apply steps; resolving happens outside of it between Begin
// (or Pending) and Install.
type Session struct {
	userID string
	grid   Grid

	mu         sync.Mutex
	state      State
	mode       Mode
	page       int
	view       []Entry
	favorites  favorite.Set
	warning    string
	generation uint64
	stale      bool
	lastAccess time.Time
}

// NewSession creates a closed session.
func NewSession(userID string, grid Grid) *Session {
	return &Session{
		userID:     userID,
		grid:       grid,
		page:       1,
		lastAccess: time.Now(),
	}
}

func (s *Session) UserID() string { return s.userID }

// Begin switches to mode, opening the session if needed, and resets the page.
// The cached view stays in place until Install replaces it.
func (s *Session) Begin(mode Mode) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateBrowsing
	s.mode = mode
	s.page = 1
	s.generation++
	s.stale = true
	return Transition{generation: s.generation, mode: mode}
}

// Pending returns the transition to run when the view was invalidated.
func (s *Session) Pending() (Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing || !s.stale {
		return Transition{}, false
	}
	return Transition{generation: s.generation, mode: s.mode}, true
}

// Install replaces the cached view with the outcome of t. A resolve error
// installs an empty view with a warning. The page is re-clamped, not reset.
// It returns false and changes nothing if t is stale.
func (s *Session) Install(t Transition, res Resolution, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing || t.generation != s.generation {
		return false
	}
	if err != nil {
		s.view = []Entry{}
		s.favorites = favorite.Set{}
		s.warning = WarningViewUnavailable
	} else {
		s.view = res.View
		s.favorites = res.Favorites
		s.warning = ""
	}
	s.stale = false
	s.page = ClampPage(s.page, PageCount(len(s.view), s.grid.SizeFor(s.mode)))
	return true
}

// Invalidate forces a resolve before the next render, keeping mode and page.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return
	}
	s.generation++
	s.stale = true
}

// NextPage advances one page. It reports whether the page moved; at the
// last page it is a no-op.
func (s *Session) NextPage() (bool, error) {
	return s.step(1)
}

// PrevPage goes back one page. At page 1 it is a no-op.
func (s *Session) PrevPage() (bool, error) {
	return s.step(-1)
}

func (s *Session) step(delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return false, ErrClosed
	}
	count := PageCount(len(s.view), s.grid.SizeFor(s.mode))
	next := s.page + delta
	if next < 1 || next > count {
		return false, nil
	}
	s.page = next
	return true, nil
}

// Close releases the cached view and clears every filter.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateClosed
	s.mode = AllCategories()
	s.page = 1
	s.view = nil
	s.favorites = favorite.Set{}
	s.warning = ""
	s.stale = false
	s.generation++
}

// ApplyFavorite records a successful toggle so the next render flags the
// entry correctly. In favorites mode the view is invalidated.
func (s *Session) ApplyFavorite(k favorite.Key, outcome favorite.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return
	}
	if outcome == favorite.Added {
		s.favorites = s.favorites.With(k)
	} else {
		s.favorites = s.favorites.Without(k)
	}
	if s.mode.Kind() == ModeFavorites {
		s.generation++
		s.stale = true
	}
}

// Render snapshots the current page.
func (s *Session) Render() RenderModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.grid.SizeFor(s.mode)
	if s.state != StateBrowsing {
		return RenderModel{
			Mode:      s.mode,
			Title:     Title{Key: TitleMain},
			PageIndex: 1,
			PageCount: 1,
			PageSize:  size,
			Entries:   []RenderEntry{},
		}
	}

	page := Paginate(s.view, size, s.page)
	entries := make([]RenderEntry, len(page.Items))
	for i, e := range page.Items {
		entries[i] = RenderEntry{
			Category:   e.Category,
			Item:       e.Item,
			IsFavorite: !e.IsHeader() && s.favorites.Has(e.Key()),
		}
	}
	return RenderModel{
		Open:      true,
		Mode:      s.mode,
		Title:     titleFor(s.mode, s.view),
		PageIndex: page.Index,
		PageCount: page.Count,
		PageSize:  page.Size,
		Entries:   entries,
		Warning:   s.warning,
	}
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

// LastAccess returns the time of the last Touch.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}
