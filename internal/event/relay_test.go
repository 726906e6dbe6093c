package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/domain"
	pkgkafka "github.com/DhruvK0/fynspo-mobile-sub000/pkg/kafka"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func newTestRelay(pub Publisher, queue int) *Relay {
	return NewRelay(pub, RelayConfig{DeviceID: "device-1", QueueSize: queue, PublishTimeout: time.Second}, logger.Discard())
}

// runRelay starts the relay and returns a function that stops it and waits
// for the flush to finish.
func runRelay(r *Relay) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

func TestRelay_ItemsChanged(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicItemsChanged, mock.AnythingOfType("*kafka.Event")).Return(nil).Once()

	r := newTestRelay(pub, 4)
	s := domain.EmptySnapshot()
	s.Apply(domain.NewItem("p1", "shirt"), true, true)
	s.Apply(domain.NewItem("p2", "pants"), false, true)
	r.ItemsChanged(s)

	stop := runRelay(r)
	stop()

	pub.AssertExpectations(t)
	event := pub.Calls[0].Arguments.Get(2).(*pkgkafka.Event)
	assert.Equal(t, TopicItemsChanged, event.Type)
	assert.Equal(t, "device-1", event.Key)
	assert.Equal(t, SourcePrefsService, event.Source)
	assert.Equal(t, uint64(1), event.Sequence)

	var data ItemsChangedData
	require.NoError(t, event.DecodePayload(&data))
	assert.Equal(t, []string{"p1"}, data.Favorites)
	assert.Equal(t, []string{"p1", "p2"}, data.Cart)
	assert.Equal(t, 1, data.FavoriteCount)
	assert.Equal(t, 2, data.CartCount)
}

func TestRelay_FiltersChanged(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicFiltersChanged, mock.Anything).Return(nil).Once()

	r := newTestRelay(pub, 4)
	r.FiltersChanged(domain.FilterState{
		Sort: "price_asc",
		Filters: domain.Filters{
			Price:   &domain.PriceRange{Min: 10, Max: 80},
			Options: map[string][]string{"shirt": {"M"}},
		},
	})

	stop := runRelay(r)
	stop()

	pub.AssertExpectations(t)
	var data FiltersChangedData
	require.NoError(t, pub.Calls[0].Arguments.Get(2).(*pkgkafka.Event).DecodePayload(&data))
	assert.Equal(t, "price_asc", data.Sort)
	assert.Equal(t, []string{"Price", "shirt"}, data.Filters)
	require.NotNil(t, data.PriceMin)
	assert.Equal(t, 10.0, *data.PriceMin)
	assert.Equal(t, 80.0, *data.PriceMax)
}

func TestRelay_FiltersChanged_NoPrice(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicFiltersChanged, mock.Anything).Return(nil).Once()

	r := newTestRelay(pub, 4)
	r.FiltersChanged(domain.DefaultFilterState())
	runRelay(r)()

	var data FiltersChangedData
	require.NoError(t, pub.Calls[0].Arguments.Get(2).(*pkgkafka.Event).DecodePayload(&data))
	assert.Nil(t, data.PriceMin)
	assert.Empty(t, data.Filters)
}

// ---------------------------------------------------------------------------
// Queueing
// ---------------------------------------------------------------------------

func TestRelay_DropsWhenQueueFull(t *testing.T) {
	pub := new(mockPublisher)
	r := newTestRelay(pub, 1)

	r.ItemsChanged(domain.EmptySnapshot())
	r.ItemsChanged(domain.EmptySnapshot())

	assert.Equal(t, 1, r.Pending())
}

func TestRelay_SequenceSkipsDroppedEvents(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	r := newTestRelay(pub, 1)
	r.ItemsChanged(domain.EmptySnapshot())
	r.FiltersChanged(domain.DefaultFilterState())
	runRelay(r)()

	r.ItemsChanged(domain.EmptySnapshot())
	runRelay(r)()

	require.Len(t, pub.Calls, 2)
	assert.Equal(t, uint64(1), pub.Calls[0].Arguments.Get(2).(*pkgkafka.Event).Sequence)
	assert.Equal(t, uint64(3), pub.Calls[1].Arguments.Get(2).(*pkgkafka.Event).Sequence)
}

func TestRelay_PublishErrorIsSwallowed(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicItemsChanged, mock.Anything).Return(errors.New("broker down")).Twice()

	r := newTestRelay(pub, 4)
	r.ItemsChanged(domain.EmptySnapshot())
	r.ItemsChanged(domain.EmptySnapshot())

	runRelay(r)()

	pub.AssertExpectations(t)
	assert.Equal(t, 0, r.Pending())
}

func TestRelay_AsRegistrySubscriber(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicItemsChanged, mock.Anything).Return(nil).Once()

	r := newTestRelay(pub, 4)
	items := NewRegistry[domain.Snapshot](ChannelItems, logger.Discard())
	unsubscribe := items.Subscribe(r.ItemsChanged)

	items.Publish(domain.EmptySnapshot())
	unsubscribe()
	items.Publish(domain.EmptySnapshot())

	runRelay(r)()
	pub.AssertExpectations(t)
}
