package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/audit-service/pkg/metrics"
)

func TestHub_BroadcastReachesEveryStreamOfRecipient(t *testing.T) {
	hub := NewHub(nil, metrics.New(metrics.DefaultConfig("audit-test")))

	tab1, cancel1 := hub.Subscribe("amy")
	defer cancel1()
	tab2, cancel2 := hub.Subscribe("amy")
	defer cancel2()
	other, cancel3 := hub.Subscribe("zed")
	defer cancel3()

	hub.Broadcast("amy", "new-discrepancy", map[string]string{"id": "e1"})

	for _, ch := range []<-chan Event{tab1, tab2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "new-discrepancy", ev.Name)
			assert.Equal(t, map[string]string{"id": "e1"}, ev.Payload)
		default:
			t.Fatal("expected an event")
		}
	}
	assert.Empty(t, other)
	assert.Equal(t, 2, hub.Subscribers("amy"))
}

func TestHub_UnsubscribeClosesStream(t *testing.T) {
	hub := NewHub(nil, nil)

	events, cancel := hub.Subscribe("amy")
	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers("amy"))

	hub.Broadcast("amy", "new-discrepancy", nil)
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(nil, nil)
	events, cancel := hub.Subscribe("amy")
	defer cancel()

	for i := 0; i < DefaultBuffer+5; i++ {
		hub.Broadcast("amy", "new-discrepancy", i)
	}

	assert.Len(t, events, DefaultBuffer)
	first := <-events
	assert.Equal(t, 0, first.Payload)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil, nil)
	events, cancel := hub.Subscribe("amy")

	hub.Close()
	_, open := <-events
	assert.False(t, open)
	cancel()

	late, _ := hub.Subscribe("amy")
	_, open = <-late
	assert.False(t, open)
}

func TestHub_ConcurrentSubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancel := hub.Subscribe("amy")
			cancel()
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast("amy", "new-discrepancy", nil)
		}()
	}
	wg.Wait()

	require.Zero(t, hub.Subscribers("amy"))
}
