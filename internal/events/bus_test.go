package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusDelivers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var (
		mu  sync.Mutex
		got []PreferenceIncrement
	)
	require.NoError(t, bus.Handle(TopicPreferenceIncrement, func(_ context.Context, payload []byte) error {
		var ev PreferenceIncrement
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	}))

	require.NoError(t, bus.Publish(TopicPreferenceIncrement, PreferenceIncrement{UserID: "u1", Topic: "nasa"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, PreferenceIncrement{UserID: "u1", Topic: "nasa"}, got[0])
}

func TestBusHandlerFailureDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var (
		mu    sync.Mutex
		calls int
	)
	require.NoError(t, bus.Handle(TopicViewTracked, func(context.Context, []byte) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return errors.New("store unavailable")
		}
		if n == 2 {
			panic("boom")
		}
		return nil
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(TopicViewTracked, ViewTracked{UserID: "u1", CardID: "nasa-a"}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 3
	}, time.Second, 10*time.Millisecond)
}

func TestBusFansOut(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	for _, name := range []string{"logger", "ui"} {
		name := name
		require.NoError(t, bus.Handle(TopicAuthState, func(context.Context, []byte) error {
			mu.Lock()
			seen[name]++
			mu.Unlock()
			return nil
		}))
	}

	require.NoError(t, bus.Publish(TopicAuthState, AuthStateChanged{Event: "signed_in", UserID: "u1"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["logger"] == 1 && seen["ui"] == 1
	}, time.Second, 10*time.Millisecond)
}
