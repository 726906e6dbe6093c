package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/domain"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/event"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/repository"
	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

// ItemChangeFunc receives the aggregate state after every item mutation.
type ItemChangeFunc func(domain.Snapshot)

// FilterChangeFunc receives the filter state after every filter mutation.
type FilterChangeFunc func(domain.FilterState)

// PreferenceService keeps favorites, cart and filter state in a key-value
// store and notifies subscribers of every change.
//
// Mutations run one at a time under a writer lock. Each queues its
// notifications before releasing the lock, and a single goroutine at a time
// delivers the queue, so subscribers see changes in write order. Delivery
// happens outside the lock: a subscriber may call a mutating method, whose
// notification is delivered once the current one returns.
type PreferenceService struct {
	store   repository.Store
	items   *event.Registry[domain.Snapshot]
	filters *event.Registry[domain.FilterState]
	logger  *slog.Logger

	writeMu sync.Mutex

	outboxMu sync.Mutex
	outbox   []func()
	draining bool
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(
	store repository.Store,
	items *event.Registry[domain.Snapshot],
	filters *event.Registry[domain.FilterState],
	logger *slog.Logger,
) *PreferenceService {
	return &PreferenceService{
		store:   store,
		items:   items,
		filters: filters,
		logger:  logger,
	}
}

// NewRegistries builds the two subscriber registries a PreferenceService
// publishes to. Every subscriber gets its own copy of the published state.
func NewRegistries(logger *slog.Logger) (*event.Registry[domain.Snapshot], *event.Registry[domain.FilterState]) {
	items := event.NewRegistry[domain.Snapshot](event.ChannelItems, logger, event.WithCopy(domain.Snapshot.Clone))
	filters := event.NewRegistry[domain.FilterState](event.ChannelFilters, logger, event.WithCopy(domain.FilterState.Clone))
	return items, filters
}

// SetItemState sets whether the item is a favorite and whether it is in the
// cart, records its category, and broadcasts the new aggregate state. Nothing
// is broadcast when the write fails.
func (s *PreferenceService) SetItemState(ctx context.Context, item domain.Item, isFavorite, isInCart bool) error {
	if err := item.Validate(); err != nil {
		return err
	}

	return s.mutate(func() error {
		snap, err := s.loadForWrite(ctx, "set item state")
		if err != nil {
			return s.readFailed(ctx, "set item state", err, slog.String("item_id", item.ID))
		}

		snap.Apply(item, isFavorite, isInCart)

		docs, err := domain.EncodeSnapshot(snap)
		if err != nil {
			return s.writeFailed(ctx, "set item state", err, slog.String("item_id", item.ID))
		}
		if err := s.store.MultiSet(ctx, docs); err != nil {
			return s.writeFailed(ctx, "set item state", err, slog.String("item_id", item.ID))
		}

		s.logger.InfoContext(ctx, "item state updated",
			slog.String("item_id", item.ID),
			slog.String("category", item.Category),
			slog.Bool("is_favorite", isFavorite),
			slog.Bool("is_in_cart", isInCart),
		)

		s.notifyItems(snap)
		return nil
	})
}

// GetItemState reports the item's membership. On a storage error the
// all-false default is returned along with the error.
func (s *PreferenceService) GetItemState(ctx context.Context, item domain.Item) (domain.ItemState, error) {
	if err := item.ValidateID(); err != nil {
		return domain.ItemState{}, err
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return domain.ItemState{}, s.readFailed(ctx, "get item state", err, slog.String("item_id", item.ID))
	}

	return snap.State(item.ID), nil
}

// GetAllItemStates returns the five item structures as stored. On a storage
// error an empty snapshot is returned along with the error.
func (s *PreferenceService) GetAllItemStates(ctx context.Context) (domain.Snapshot, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return domain.EmptySnapshot(), s.readFailed(ctx, "get all item states", err)
	}
	return snap, nil
}

// SaveFilterState persists the filter selection and notifies filter
// subscribers.
func (s *PreferenceService) SaveFilterState(ctx context.Context, filters domain.FilterState) error {
	if err := filters.Validate(); err != nil {
		return err
	}
	filters = filters.Clone()
	filters.Normalize()

	data, err := domain.EncodeFilterState(filters)
	if err != nil {
		return s.writeFailed(ctx, "save filter state", err)
	}

	return s.mutate(func() error {
		if err := s.store.Set(ctx, domain.KeyFilters, data); err != nil {
			return s.writeFailed(ctx, "save filter state", err)
		}

		s.logger.InfoContext(ctx, "filter state saved",
			slog.String("sort", filters.Sort),
			slog.String("filters", strings.Join(filters.Filters.Keys(), ",")),
		)

		s.notifyFilters(filters)
		return nil
	})
}

// GetFilterState returns the saved filter selection, or the default when
// nothing has been saved. On a storage error the default is returned along
// with the error.
func (s *PreferenceService) GetFilterState(ctx context.Context) (domain.FilterState, error) {
	data, err := s.store.Get(ctx, domain.KeyFilters)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.DefaultFilterState(), nil
		}
		return domain.DefaultFilterState(), s.readFailed(ctx, "get filter state", err)
	}

	filters, err := domain.DecodeFilterState(data)
	if err != nil {
		return domain.DefaultFilterState(), s.readFailed(ctx, "get filter state", err)
	}
	return filters, nil
}

// ClearCart empties the cart and broadcasts the resulting state. Favorites
// and the category log are untouched. The cart is removed even when another
// structure cannot be read; the broadcast is skipped only if the remaining
// state cannot be loaded at all.
func (s *PreferenceService) ClearCart(ctx context.Context) error {
	return s.mutate(func() error {
		if err := s.store.MultiRemove(ctx, domain.CartKeys...); err != nil {
			return s.writeFailed(ctx, "clear cart", err)
		}

		snap, err := s.loadForWrite(ctx, "clear cart")
		if err != nil {
			s.logger.WarnContext(ctx, "cart cleared but remaining state could not be loaded, not broadcasting",
				slog.String("error", err.Error()),
			)
			return nil
		}

		s.logger.InfoContext(ctx, "cart cleared")

		snap.ClearCart()
		s.notifyItems(snap)
		return nil
	})
}

// ClearAllData removes every key the cache owns and broadcasts empty item and
// filter state.
func (s *PreferenceService) ClearAllData(ctx context.Context) error {
	return s.mutate(func() error {
		if err := s.store.MultiRemove(ctx, domain.AllKeys...); err != nil {
			return s.writeFailed(ctx, "clear all data", err)
		}

		s.logger.InfoContext(ctx, "all preference data cleared")

		s.notifyItems(domain.EmptySnapshot())
		s.notifyFilters(domain.DefaultFilterState())
		return nil
	})
}

// SubscribeToChanges registers fn for item changes and returns its
// unsubscribe function.
func (s *PreferenceService) SubscribeToChanges(fn ItemChangeFunc) (unsubscribe func()) {
	return s.items.Subscribe(fn)
}

// SubscribeToFilterChanges registers fn for filter changes and returns its
// unsubscribe function.
func (s *PreferenceService) SubscribeToFilterChanges(fn FilterChangeFunc) (unsubscribe func()) {
	return s.filters.Subscribe(fn)
}

// Subscribers returns the number of registered item and filter subscribers.
func (s *PreferenceService) Subscribers() int {
	return s.items.Len() + s.filters.Len()
}

// Ping checks the backing store.
func (s *PreferenceService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *PreferenceService) loadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	docs, err := s.store.MultiGet(ctx, domain.ItemKeys...)
	if err != nil {
		return domain.EmptySnapshot(), err
	}
	return domain.DecodeSnapshot(docs)
}

// loadForWrite is loadSnapshot for a mutation. A document that no longer
// decodes is logged and treated as empty, so the write that follows
// replaces it instead of failing on it forever.
func (s *PreferenceService) loadForWrite(ctx context.Context, op string) (domain.Snapshot, error) {
	snap, err := s.loadSnapshot(ctx)
	if err == nil {
		return snap, nil
	}

	var decErr *domain.DecodeError
	if !errors.As(err, &decErr) {
		return domain.EmptySnapshot(), err
	}

	s.logger.WarnContext(ctx, "discarding undecodable preference document",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return snap, nil
}

// mutate runs fn under the writer lock, then delivers whatever fn queued.
func (s *PreferenceService) mutate(fn func() error) error {
	err := func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return fn()
	}()
	s.deliver()
	return err
}

// notifyItems and notifyFilters must be called with writeMu held, which
// keeps the outbox in write order.
func (s *PreferenceService) notifyItems(snap domain.Snapshot) {
	s.enqueue(func() { s.items.Publish(snap) })
}

func (s *PreferenceService) notifyFilters(filters domain.FilterState) {
	s.enqueue(func() { s.filters.Publish(filters) })
}

func (s *PreferenceService) enqueue(fn func()) {
	s.outboxMu.Lock()
	s.outbox = append(s.outbox, fn)
	s.outboxMu.Unlock()
}

// deliver drains the outbox unless another call is already draining it, in
// which case that call delivers what was just queued.
func (s *PreferenceService) deliver() {
	s.outboxMu.Lock()
	if s.draining {
		s.outboxMu.Unlock()
		return
	}
	s.draining = true

	for len(s.outbox) > 0 {
		batch := s.outbox
		s.outbox = nil
		s.outboxMu.Unlock()

		for _, publish := range batch {
			publish()
		}

		s.outboxMu.Lock()
	}

	s.draining = false
	s.outboxMu.Unlock()
}

func (s *PreferenceService) readFailed(ctx context.Context, op string, err error, attrs ...any) error {
	attrs = append(attrs, slog.String("operation", op), slog.String("error", err.Error()))
	s.logger.ErrorContext(ctx, "failed to read preference state", attrs...)
	return apperrors.StorageRead(op, err)
}

func (s *PreferenceService) writeFailed(ctx context.Context, op string, err error, attrs ...any) error {
	attrs = append(attrs, slog.String("operation", op), slog.String("error", err.Error()))
	s.logger.ErrorContext(ctx, "failed to write preference state", attrs...)
	return apperrors.StorageWrite(op, err)
}
