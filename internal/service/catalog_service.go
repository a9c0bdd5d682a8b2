package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openheads/headcatalog/internal/ctxkey"
	"github.com/openheads/headcatalog/internal/domain/acquisition"
	"github.com/openheads/headcatalog/internal/domain/browse"
	"github.com/openheads/headcatalog/internal/domain/catalog"
	"github.com/openheads/headcatalog/internal/domain/favorite"
	"github.com/openheads/headcatalog/internal/userlock"
)

const tracerName = "github.com/openheads/headcatalog/internal/service"

var (
	// ErrUnknownCategory is returned for a category absent from the catalog.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownItem is returned for an item absent from its category.
	ErrUnknownItem = errors.New("unknown item")
	// ErrCatalogClosed is returned for navigation while the catalog is closed.
	ErrCatalogClosed = errors.New("catalog is closed")
	// ErrInvalidUser is returned for an empty user ID.
	ErrInvalidUser = errors.New("invalid user id")
	// ErrNoDefinitionSource is returned by Reload when no source is configured.
	ErrNoDefinitionSource = errors.New("no catalog definition source configured")
)

// DefinitionSource supplies parsed category definitions.
type DefinitionSource interface {
	Definitions() ([]catalog.Definition, error)
}

// ReloadReport summarizes a catalog reload.
type ReloadReport struct {
	Categories int      `json:"categories"`
	Items      int      `json:"items"`
	Warnings   []string `json:"warnings"`
}

// CatalogService is the entry point of the presentation layer. Every
// operation of one user runs under that user's lock; different users never
// share a lock.
type CatalogService struct {
	index     atomic.Pointer[catalog.Index]
	sessions  browse.Registry
	favorites favorite.Store
	toggler   *favorite.Toggler
	acquirer  *acquisition.Transaction
	locks     *userlock.Keyed
	source    DefinitionSource
	grid      browse.Grid
	metrics   *Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures a CatalogService.
type Option func(*CatalogService)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *CatalogService) {
		s.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *CatalogService) {
		s.metrics = m
	}
}

// WithTracerProvider sets the tracer provider. The global provider is used
// by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *CatalogService) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithDefinitionSource sets the source used by Reload.
func WithDefinitionSource(src DefinitionSource) Option {
	return func(s *CatalogService) {
		s.source = src
	}
}

// WithGrid sets the grid used to render sessions that do not exist yet.
// It should match the grid of the session registry.
func WithGrid(grid browse.Grid) Option {
	return func(s *CatalogService) {
		s.grid = grid
	}
}

// NewCatalogService creates a CatalogService serving idx. A nil idx serves
// an empty catalog until Reload or SetIndex.
func NewCatalogService(
	idx *catalog.Index,
	sessions browse.Registry,
	favorites favorite.Store,
	acquirer *acquisition.Transaction,
	opts ...Option,
) *CatalogService {
	s := &CatalogService{
		sessions:  sessions,
		favorites: favorites,
		acquirer:  acquirer,
		locks:     userlock.New(),
		grid:      browse.DefaultGrid(),
		tracer:    otel.Tracer(tracerName),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.toggler = favorite.NewToggler(favorites, s.logger)
	if idx == nil {
		idx = catalog.Empty()
	}
	s.SetIndex(idx)
	return s
}

// Index returns the catalog currently served.
func (s *CatalogService) Index() *catalog.Index {
	return s.index.Load()
}

// SetIndex swaps the served catalog. Sessions keep their cached views until
// their next transition.
func (s *CatalogService) SetIndex(idx *catalog.Index) {
	s.index.Store(idx)
	s.metrics.catalog(idx.Len(), idx.ItemCount())
}

// Categories lists the loaded categories in load order.
func (s *CatalogService) Categories() []*catalog.Category {
	return s.index.Load().Categories()
}

// Reload reads the definition source and swaps in the new catalog. Load
// defects are logged and reported; they never fail the reload.
func (s *CatalogService) Reload(ctx context.Context) (ReloadReport, error) {
	if s.source == nil {
		return ReloadReport{}, ErrNoDefinitionSource
	}
	_, span := s.tracer.Start(ctx, "catalog.reload")
	defer span.End()

	defs, err := s.source.Definitions()
	if err != nil {
		s.metrics.reload("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "read definitions")
		return ReloadReport{}, fmt.Errorf("read catalog definitions: %w", err)
	}

	idx, defects := catalog.Load(defs)
	report := ReloadReport{
		Categories: idx.Len(),
		Items:      idx.ItemCount(),
		Warnings:   make([]string, 0, len(defects)),
	}
	for _, d := range defects {
		s.log(ctx).Warn("catalog definition skipped",
			"category", d.Category,
			"item", d.Item,
			"reason", d.Reason,
		)
		report.Warnings = append(report.Warnings, d.Error())
	}
	s.SetIndex(idx)
	s.metrics.reload("ok")
	span.SetAttributes(
		attribute.Int("catalog.categories", report.Categories),
		attribute.Int("catalog.items", report.Items),
		attribute.Int("catalog.warnings", len(defects)),
	)
	s.log(ctx).Info("catalog loaded", "categories", report.Categories, "items", report.Items, "warnings", len(defects))
	return report, nil
}

// OpenCatalog opens the category grid on page 1.
func (s *CatalogService) OpenCatalog(ctx context.Context, userID string) (browse.RenderModel, error) {
	return s.transition(ctx, userID, browse.AllCategories())
}

// SelectCategory shows the items of category. A category that is not loaded
// shows an empty grid.
func (s *CatalogService) SelectCategory(ctx context.Context, userID, category string) (browse.RenderModel, error) {
	return s.transition(ctx, userID, browse.InCategory(category))
}

// Search shows items whose name or tags contain query. A blank query shows
// an empty grid.
func (s *CatalogService) Search(ctx context.Context, userID, query string) (browse.RenderModel, error) {
	return s.transition(ctx, userID, browse.Search(query))
}

// SelectFavorites shows the user's favorites.
func (s *CatalogService) SelectFavorites(ctx context.Context, userID string) (browse.RenderModel, error) {
	return s.transition(ctx, userID, browse.Favorites())
}

// Back returns an open catalog to the category grid.
func (s *CatalogService) Back(ctx context.Context, userID string) (browse.RenderModel, error) {
	if err := validUser(userID); err != nil {
		return browse.RenderModel{}, err
	}
	var model browse.RenderModel
	err := s.locks.Do(ctx, userID, func(ctx context.Context) error {
		sess, ok := s.sessions.Get(userID)
		if !ok || sess.State() != browse.StateBrowsing {
			return ErrCatalogClosed
		}
		if err := s.resolve(ctx, sess, sess.Begin(browse.AllCategories())); err != nil {
			return err
		}
		model = sess.Render()
		return nil
	})
	return model, err
}

// NextPage moves one page forward. At the last page it changes nothing.
func (s *CatalogService) NextPage(ctx context.Context, userID string) (browse.RenderModel, error) {
	return s.navigate(ctx, userID, (*browse.Session).NextPage)
}

// PrevPage moves one page back. At page 1 it changes nothing.
func (s *CatalogService) PrevPage(ctx context.Context, userID string) (browse.RenderModel, error) {
	return s.navigate(ctx, userID, (*browse.Session).PrevPage)
}

// CloseCatalog closes the catalog and clears its filters.
func (s *CatalogService) CloseCatalog(ctx context.Context, userID string) (browse.RenderModel, error) {
	if err := validUser(userID); err != nil {
		return browse.RenderModel{}, err
	}
	var model browse.RenderModel
	err := s.locks.Do(ctx, userID, func(context.Context) error {
		sess, ok := s.sessions.Get(userID)
		if !ok {
			model = s.closedModel(userID)
			return nil
		}
		sess.Close()
		model = sess.Render()
		return nil
	})
	return model, err
}

// Render returns the current render model. A view invalidated by a favorite
// toggle is resolved first; otherwise nothing changes.
func (s *CatalogService) Render(ctx context.Context, userID string) (browse.RenderModel, error) {
	if err := validUser(userID); err != nil {
		return browse.RenderModel{}, err
	}
	var model browse.RenderModel
	err := s.locks.Do(ctx, userID, func(ctx context.Context) error {
		sess, ok := s.sessions.Get(userID)
		if !ok {
			model = s.closedModel(userID)
			return nil
		}
		if err := s.refreshIfStale(ctx, sess); err != nil {
			return err
		}
		model = sess.Render()
		return nil
	})
	return model, err
}

// EndSession drops the user's session.
func (s *CatalogService) EndSession(ctx context.Context, userID string) error {
	if err := validUser(userID); err != nil {
		return err
	}
	return s.locks.Do(ctx, userID, func(context.Context) error {
		s.sessions.Delete(userID)
		s.metrics.sessions(s.sessions.Size())
		return nil
	})
}

// SessionEvicted is called by the session registry after it reclaimed an
// idle session.
func (s *CatalogService) SessionEvicted(userID string) {
	s.logger.Debug("catalog session expired", "user_id", userID)
	s.metrics.sessions(s.sessions.Size())
}

// ToggleFavorite flips the favorite state of an item. When the user is
// browsing favorites the view is refreshed on the next render. An item no
// longer in the catalog can still be removed from the favorites but never
// added.
func (s *CatalogService) ToggleFavorite(ctx context.Context, userID, category, item string) (favorite.Outcome, error) {
	if err := validUser(userID); err != nil {
		return 0, err
	}
	_, _, unknown := s.lookup(category, item)

	ctx, span := s.tracer.Start(ctx, "catalog.toggle_favorite", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("catalog.category", category),
		attribute.String("catalog.item", item),
	))
	defer span.End()

	var outcome favorite.Outcome
	err := s.locks.Do(ctx, userID, func(ctx context.Context) error {
		if unknown != nil {
			removed, err := s.toggler.Forget(ctx, userID, category, item)
			if err != nil {
				return err
			}
			if !removed {
				return unknown
			}
			outcome = favorite.Removed
		} else {
			var err error
			outcome, err = s.toggler.Toggle(ctx, userID, category, item)
			if err != nil {
				return err
			}
		}
		if sess, ok := s.sessions.Get(userID); ok {
			sess.ApplyFavorite(favorite.Key{Category: category, Item: item}, outcome)
		}
		return nil
	})
	if err != nil {
		s.metrics.toggle("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "toggle favorite")
		if errors.Is(err, favorite.ErrStoreUnavailable) {
			s.log(ctx).Error("favorite toggle failed", "user_id", userID, "category", category, "item", item, "error", err)
		}
		return 0, err
	}

	s.metrics.toggle(outcome.String())
	span.SetAttributes(attribute.String("favorite.result", outcome.String()))
	return outcome, nil
}

// Acquire buys an item for the user. InsufficientFunds is reported through
// the result, not as an error.
func (s *CatalogService) Acquire(ctx context.Context, userID, category, item string) (acquisition.Result, error) {
	if err := validUser(userID); err != nil {
		return acquisition.Result{}, err
	}
	cat, it, err := s.lookup(category, item)
	if err != nil {
		return acquisition.Result{}, err
	}

	ctx, span := s.tracer.Start(ctx, "catalog.acquire", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("catalog.category", category),
		attribute.String("catalog.item", item),
		attribute.Float64("catalog.price", cat.Price),
	))
	defer span.End()

	var res acquisition.Result
	err = s.locks.Do(ctx, userID, func(ctx context.Context) error {
		var err error
		res, err = s.acquirer.Acquire(ctx, userID, cat, it)
		return err
	})

	result := acquisitionResult(res, err)
	s.metrics.acquisition(result)
	span.SetAttributes(attribute.String("acquisition.result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		if errors.Is(err, acquisition.ErrStoreUnavailable) {
			s.log(ctx).Error("acquisition failed", "user_id", userID, "category", category, "item", item, "error", err)
		}
		return acquisition.Result{}, err
	}
	span.SetAttributes(attribute.String("acquisition.receipt_id", res.ReceiptID))
	return res, nil
}

func acquisitionResult(res acquisition.Result, err error) string {
	switch {
	case err == nil:
		return res.Outcome.String()
	case errors.Is(err, acquisition.ErrReconciliationRequired):
		return "reconciliation_required"
	case errors.Is(err, acquisition.ErrGrantFailed):
		return "grant_failed"
	case errors.Is(err, acquisition.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

func (s *CatalogService) lookup(category, item string) (*catalog.Category, catalog.Item, error) {
	idx := s.index.Load()
	cat, ok := idx.FindCategory(category)
	if !ok {
		return nil, catalog.Item{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	it, ok := cat.Item(item)
	if !ok {
		return nil, catalog.Item{}, fmt.Errorf("%w: %q in %q", ErrUnknownItem, item, category)
	}
	return cat, it, nil
}

// transition switches the user's session to mode and resolves its view.
func (s *CatalogService) transition(ctx context.Context, userID string, mode browse.Mode) (browse.RenderModel, error) {
	if err := validUser(userID); err != nil {
		return browse.RenderModel{}, err
	}
	var model browse.RenderModel
	err := s.locks.Do(ctx, userID, func(ctx context.Context) error {
		sess := s.sessions.GetOrCreate(userID)
		s.metrics.sessions(s.sessions.Size())
		if err := s.resolve(ctx, sess, sess.Begin(mode)); err != nil {
			return err
		}
		model = sess.Render()
		return nil
	})
	return model, err
}

func (s *CatalogService) navigate(ctx context.Context, userID string, step func(*browse.Session) (bool, error)) (browse.RenderModel, error) {
	if err := validUser(userID); err != nil {
		return browse.RenderModel{}, err
	}
	var model browse.RenderModel
	err := s.locks.Do(ctx, userID, func(ctx context.Context) error {
		sess, ok := s.sessions.Get(userID)
		if !ok {
			return ErrCatalogClosed
		}
		if err := s.refreshIfStale(ctx, sess); err != nil {
			return err
		}
		if _, err := step(sess); err != nil {
			if errors.Is(err, browse.ErrClosed) {
				return ErrCatalogClosed
			}
			return err
		}
		model = sess.Render()
		return nil
	})
	return model, err
}

func (s *CatalogService) refreshIfStale(ctx context.Context, sess *browse.Session) error {
	t, ok := sess.Pending()
	if !ok {
		return nil
	}
	return s.resolve(ctx, sess, t)
}

// resolve runs the resolver outside the session mutex and installs the
// result. A cancelled ctx leaves the view pending instead of degrading it.
func (s *CatalogService) resolve(ctx context.Context, sess *browse.Session, t browse.Transition) error {
	mode := t.Mode()
	ctx, span := s.tracer.Start(ctx, "catalog.resolve", trace.WithAttributes(
		attribute.String("user.id", sess.UserID()),
		attribute.String("browse.mode", mode.Kind().String()),
	))
	defer span.End()

	res, err := browse.ResolveMarked(ctx, mode, s.index.Load(), s.favorites, sess.UserID())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve view")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.metrics.resolveError()
		s.log(ctx).Warn("view unavailable", "user_id", sess.UserID(), "mode", mode.String(), "error", err)
	}
	if sess.Install(t, res, err) {
		s.metrics.transition(mode.Kind().String())
		span.SetAttributes(attribute.Int("browse.view_len", len(res.View)))
	}
	return nil
}

// log returns the request logger carried by ctx, if any.
func (s *CatalogService) log(ctx context.Context) *slog.Logger {
	return ctxkey.Logger(ctx, s.logger)
}

func (s *CatalogService) closedModel(userID string) browse.RenderModel {
	return browse.NewSession(userID, s.grid).Render()
}

func validUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	return nil
}
