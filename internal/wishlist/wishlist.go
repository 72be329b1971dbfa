package wishlist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wishlist-go/internal/exchange"
	"wishlist-go/internal/live"
	"wishlist-go/internal/model"
)

// ErrClosed is returned by operations on a closed Wishlist.
var ErrClosed = errors.New("wishlist is closed")

// Wishlist is the facade consumers use. It keeps live views of the three
// collections, mirrors settings into local state and forwards writes to the
// store. The store must deliver its change notifications to the hub given to
// Open.
type Wishlist struct {
	store  Store
	hub    *live.Hub
	logger Logger
	clock  Clock

	mu         sync.RWMutex
	categories []*model.Category
	items      []*model.Item
	settings   model.Settings

	// refreshed is guarded by mu. It marks views a live refresh has written
	// so Open does not overwrite them with its own older first read.
	refreshed map[model.Collection]bool

	subs    []*live.Subscription
	changed chan struct{}

	// Setter persistence runs on one worker so writes land in call order.
	jobsMu  sync.RWMutex
	jobs    chan settingsJob
	closed  bool
	workers sync.WaitGroup
}

type settingsJob struct {
	ctx   context.Context
	patch model.SettingsPatch
	done  chan error
}

// Option configures a Wishlist.
type Option func(*Wishlist)

// WithLogger sets the logger. The default discards output.
func WithLogger(l Logger) Option {
	return func(w *Wishlist) { w.logger = l }
}

// WithClock sets the clock used to stamp exports and imports.
func WithClock(c Clock) Option {
	return func(w *Wishlist) { w.clock = c }
}

// Open initializes the store and starts the live views.
func Open(ctx context.Context, store Store, hub *live.Hub, opts ...Option) (*Wishlist, error) {
	w := &Wishlist{
		store:     store,
		hub:       hub,
		logger:    NopLogger{},
		clock:     RealClock{},
		changed:   make(chan struct{}, 1),
		jobs:      make(chan settingsJob, 16),
		refreshed: make(map[model.Collection]bool, 3),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	if err := w.watch(ctx); err != nil {
		w.cancelSubs()
		return nil, err
	}

	w.workers.Add(1)
	go w.persistSettings()

	w.logger.Debug("wishlist opened",
		"categories", len(w.categories), "items", len(w.items))
	return w, nil
}

func (w *Wishlist) watch(ctx context.Context) error {
	cats, sub, err := live.Watch(ctx, w.hub, live.Query[[]*model.Category]{
		Name:        "categories",
		Collections: []model.Collection{model.Categories},
		Run:         w.store.ListCategories,
	}, func(v []*model.Category) {
		w.refresh(model.Categories, func() { w.categories = v })
	})
	if err != nil {
		return err
	}
	w.subs = append(w.subs, sub)
	w.initial(model.Categories, func() { w.categories = cats })

	items, sub, err := live.Watch(ctx, w.hub, live.Query[[]*model.Item]{
		Name:        "items",
		Collections: []model.Collection{model.WishlistItems},
		Run:         w.store.ListItems,
	}, func(v []*model.Item) {
		w.refresh(model.WishlistItems, func() { w.items = v })
	})
	if err != nil {
		return err
	}
	w.subs = append(w.subs, sub)
	w.initial(model.WishlistItems, func() { w.items = items })

	settings, sub, err := live.Watch(ctx, w.hub, live.Query[*model.Settings]{
		Name:        "settings",
		Collections: []model.Collection{model.AppSettings},
		Run:         w.store.GetSettings,
	}, w.loadSettings)
	if err != nil {
		return err
	}
	w.subs = append(w.subs, sub)
	w.initial(model.AppSettings, func() { w.settings = *settings })
	return nil
}

// refresh applies a live result and wakes Changed.
func (w *Wishlist) refresh(c model.Collection, apply func()) {
	w.mu.Lock()
	w.refreshed[c] = true
	apply()
	w.mu.Unlock()
	w.signal()
}

// initial applies the first read of c unless a refresh has already landed.
func (w *Wishlist) initial(c model.Collection, apply func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.refreshed[c] {
		apply()
	}
}

// loadSettings replaces the local mirror with the persisted record.
func (w *Wishlist) loadSettings(s *model.Settings) {
	w.refresh(model.AppSettings, func() { w.settings = *s })
}

func (w *Wishlist) signal() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// Changed receives a value after any view changes. Bursts of changes are
// coalesced into one signal.
func (w *Wishlist) Changed() <-chan struct{} {
	return w.changed
}

// Views. Returned slices are copies; the elements must be treated as read-only.

func (w *Wishlist) Categories() []*model.Category {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*model.Category(nil), w.categories...)
}

func (w *Wishlist) AllItems() []*model.Item {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*model.Item(nil), w.items...)
}

// VisibleItems returns the items of the selected category, or every item
// when no category is selected.
func (w *Wishlist) VisibleItems() []*model.Item {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.visibleLocked()
}

func (w *Wishlist) visibleLocked() []*model.Item {
	if w.settings.SelectedCategoryID == nil {
		return append([]*model.Item(nil), w.items...)
	}
	selected := *w.settings.SelectedCategoryID
	var out []*model.Item
	for _, it := range w.items {
		if it.CategoryID == selected {
			out = append(out, it)
		}
	}
	return out
}

// Settings returns the local settings mirror.
func (w *Wishlist) Settings() model.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.settings
	if s.SelectedCategoryID != nil {
		id := *s.SelectedCategoryID
		s.SelectedCategoryID = &id
	}
	return s
}

// SelectedCategory returns the selected category, or nil when none is
// selected or it no longer exists.
func (w *Wishlist) SelectedCategory() *model.Category {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.settings.SelectedCategoryID == nil {
		return nil
	}
	for _, c := range w.categories {
		if c.ID == *w.settings.SelectedCategoryID {
			return c
		}
	}
	return nil
}

func (w *Wishlist) GridView() model.GridView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings.GridView
}

func (w *Wishlist) Currency() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings.Currency
}

func (w *Wishlist) Theme() model.Theme {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings.Theme
}

// CategoryStats summarizes the items of one category.
type CategoryStats struct {
	Items int
	Total float64
}

// Stats summarizes the visible items and every category's items.
type Stats struct {
	Visible    CategoryStats
	ByCategory map[string]CategoryStats
}

func (w *Wishlist) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	st := Stats{ByCategory: make(map[string]CategoryStats, len(w.categories))}
	for _, c := range w.categories {
		st.ByCategory[c.ID] = CategoryStats{}
	}
	for _, it := range w.items {
		cs := st.ByCategory[it.CategoryID]
		cs.Items++
		if it.Price != nil {
			cs.Total += *it.Price
		}
		st.ByCategory[it.CategoryID] = cs
	}
	for _, it := range w.visibleLocked() {
		st.Visible.Items++
		if it.Price != nil {
			st.Visible.Total += *it.Price
		}
	}
	return st
}

// Store operations. Errors are returned unchanged.

func (w *Wishlist) AddCategory(ctx context.Context, name, emoji string) (*model.Category, error) {
	return w.store.AddCategory(ctx, name, emoji, false)
}

func (w *Wishlist) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) error {
	return w.store.UpdateCategory(ctx, id, patch)
}

func (w *Wishlist) DeleteCategory(ctx context.Context, id string) error {
	return w.store.DeleteCategory(ctx, id)
}

func (w *Wishlist) AddItem(ctx context.Context, item model.NewItem) (*model.Item, error) {
	return w.store.AddItem(ctx, item)
}

func (w *Wishlist) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	return w.store.UpdateItem(ctx, id, patch)
}

func (w *Wishlist) DeleteItem(ctx context.Context, id string) error {
	return w.store.DeleteItem(ctx, id)
}

func (w *Wishlist) ReorderItems(ctx context.Context, ids []string) error {
	return w.store.Reorder(ctx, ids)
}

func (w *Wishlist) UpdateSettings(ctx context.Context, patch model.SettingsPatch) error {
	return w.store.UpdateSettings(ctx, patch)
}

// Export renders the whole store as an export document.
func (w *Wishlist) Export(ctx context.Context) ([]byte, error) {
	snap, err := w.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	data, err := exchange.Encode(snap, w.clock.Now())
	if err != nil {
		return nil, err
	}
	w.logger.Info("exported wishlist", append(snapshotAttrs(snap), "bytes", len(data))...)
	return data, nil
}

// Import replaces the store's contents with the document. The document is
// fully decoded before the store is touched, so a malformed document leaves
// the store unchanged.
func (w *Wishlist) Import(ctx context.Context, data []byte) error {
	snap, err := exchange.Decode(data, w.clock.Now())
	if err != nil {
		w.logger.Warn("rejected import document", "error", err)
		return err
	}
	if err := w.store.ReplaceAll(ctx, snap); err != nil {
		return err
	}
	w.logger.Info("imported wishlist", snapshotAttrs(snap)...)
	return nil
}

// ClearAll empties the store and reseeds the defaults.
func (w *Wishlist) ClearAll(ctx context.Context) error {
	if err := w.store.Reset(ctx); err != nil {
		return err
	}
	w.logger.Info("cleared wishlist")
	return nil
}

// Optimistic setters. Local state changes before the call returns; the
// returned channel receives the persistence result exactly once. A failed
// write leaves local state ahead of the store until settings are next loaded.

func (w *Wishlist) SetSelectedCategory(ctx context.Context, id string) <-chan error {
	return w.setSettings(ctx, model.SettingsPatch{SelectedCategoryID: &id})
}

func (w *Wishlist) SetGridView(ctx context.Context, v model.GridView) <-chan error {
	return w.setSettings(ctx, model.SettingsPatch{GridView: &v})
}

func (w *Wishlist) SetCurrency(ctx context.Context, code string) <-chan error {
	return w.setSettings(ctx, model.SettingsPatch{Currency: &code})
}

func (w *Wishlist) SetTheme(ctx context.Context, t model.Theme) <-chan error {
	return w.setSettings(ctx, model.SettingsPatch{Theme: &t})
}

func (w *Wishlist) setSettings(ctx context.Context, patch model.SettingsPatch) <-chan error {
	done := make(chan error, 1)

	w.jobsMu.RLock()
	defer w.jobsMu.RUnlock()
	if w.closed {
		done <- ErrClosed
		return done
	}

	w.mu.Lock()
	next := w.settings
	if err := patch.Apply(&next); err != nil {
		w.mu.Unlock()
		done <- err
		return done
	}
	w.settings = next
	w.mu.Unlock()
	w.signal()

	w.jobs <- settingsJob{ctx: context.WithoutCancel(ctx), patch: patch, done: done}
	return done
}

func (w *Wishlist) persistSettings() {
	defer w.workers.Done()
	for job := range w.jobs {
		err := w.store.UpdateSettings(job.ctx, job.patch)
		if err != nil {
			w.logger.Error("persisting settings failed", append(settingsAttrs(job.patch), "error", err)...)
		}
		job.done <- err
	}
}

// Close stops the live views and waits for pending setter writes. It does
// not close the store.
func (w *Wishlist) Close() error {
	w.jobsMu.Lock()
	if w.closed {
		w.jobsMu.Unlock()
		return nil
	}
	w.closed = true
	close(w.jobs)
	w.jobsMu.Unlock()

	w.workers.Wait()
	w.cancelSubs()
	return nil
}

func (w *Wishlist) cancelSubs() {
	for _, sub := range w.subs {
		sub.Cancel()
	}
	w.subs = nil
}
