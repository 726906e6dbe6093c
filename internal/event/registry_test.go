package event

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/domain"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/logger"
)

// ---------------------------------------------------------------------------
// Delivery
// ---------------------------------------------------------------------------

func TestRegistry_DeliversInRegistrationOrder(t *testing.T) {
	r := NewRegistry[int]("order", logger.Discard())

	var got []string
	r.Subscribe(func(v int) { got = append(got, "first") })
	r.Subscribe(func(v int) { got = append(got, "second") })
	r.Subscribe(func(v int) { got = append(got, "third") })

	n := r.Publish(1)

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestRegistry_EveryPublishReachesEverySubscriber(t *testing.T) {
	r := NewRegistry[int]("every", logger.Discard())

	var a, b []int
	r.Subscribe(func(v int) { a = append(a, v) })
	r.Subscribe(func(v int) { b = append(b, v) })

	r.Publish(1)
	r.Publish(2)

	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1, 2}, b)
}

func TestRegistry_NoReplayForLateSubscribers(t *testing.T) {
	r := NewRegistry[int]("late", logger.Discard())
	r.Publish(1)

	var got []int
	r.Subscribe(func(v int) { got = append(got, v) })
	r.Publish(2)

	assert.Equal(t, []int{2}, got)
}

func TestRegistry_PublishWithNoSubscribers(t *testing.T) {
	r := NewRegistry[int]("empty", logger.Discard())
	assert.Equal(t, 0, r.Publish(1))
}

// ---------------------------------------------------------------------------
// Unsubscribe
// ---------------------------------------------------------------------------

func TestRegistry_UnsubscribeStopsDelivery(t *testing.T) {
	r := NewRegistry[int]("unsub", logger.Discard())

	calls := 0
	unsubscribe := r.Subscribe(func(int) { calls++ })
	r.Publish(1)
	unsubscribe()
	r.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry[int]("idempotent", logger.Discard())

	unsubscribe := r.Subscribe(func(int) {})
	r.Subscribe(func(int) {})

	unsubscribe()
	unsubscribe()

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(subscribersActive.WithLabelValues("idempotent")))
}

func TestRegistry_UnsubscribeRemovesOnlyThatRegistration(t *testing.T) {
	r := NewRegistry[int]("same-fn", logger.Discard())

	calls := 0
	fn := func(int) { calls++ }
	first := r.Subscribe(fn)
	r.Subscribe(fn)

	first()
	r.Publish(1)

	assert.Equal(t, 1, calls)
}

func TestRegistry_UnsubscribeDuringPublish(t *testing.T) {
	r := NewRegistry[int]("reentrant", logger.Discard())

	var unsubscribe func()
	calls := 0
	unsubscribe = r.Subscribe(func(int) {
		calls++
		unsubscribe()
	})

	r.Publish(1)
	r.Publish(2)

	assert.Equal(t, 1, calls)
}

// ---------------------------------------------------------------------------
// Isolation
// ---------------------------------------------------------------------------

func TestRegistry_PanickingSubscriberDoesNotStopOthers(t *testing.T) {
	r := NewRegistry[int]("panics", logger.Discard())

	reached := false
	r.Subscribe(func(int) { panic("boom") })
	r.Subscribe(func(int) { reached = true })

	assert.NotPanics(t, func() { r.Publish(1) })
	assert.True(t, reached)
	assert.Equal(t, float64(1), testutil.ToFloat64(subscriberPanicsTotal.WithLabelValues("panics")))
}

func TestRegistry_WithCopy(t *testing.T) {
	r := NewRegistry[domain.Snapshot]("copy", logger.Discard(), WithCopy(domain.Snapshot.Clone))

	r.Subscribe(func(s domain.Snapshot) { s.Favorites[0] = "mutated" })
	var seen string
	r.Subscribe(func(s domain.Snapshot) { seen = s.Favorites[0] })

	s := domain.EmptySnapshot()
	s.Apply(domain.NewItem("p1", "shirt"), true, false)
	r.Publish(s)

	assert.Equal(t, "p1", seen)
	assert.Equal(t, "p1", s.Favorites[0])
}

func TestRegistry_ConcurrentSubscribeAndPublish(t *testing.T) {
	r := NewRegistry[int]("concurrent", logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsubscribe := r.Subscribe(func(int) {})
			unsubscribe()
		}()
		go func() {
			defer wg.Done()
			r.Publish(1)
		}()
	}
	wg.Wait()

	require.Equal(t, 0, r.Len())
}
