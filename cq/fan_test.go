package cq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFanPublishFanOutToAllSubscribers(t *testing.T) {
	f := NewFan()
	sub1, wake1, ok := f.Add()
	require.True(t, ok)
	sub2, wake2, ok := f.Add()
	require.True(t, ok)

	f.Publish([]byte("hello"))

	require.Len(t, <-drained(wake1, sub1), 1)
	require.Len(t, <-drained(wake2, sub2), 1)
	require.Equal(t, 2, f.NumSubscribers())
}

func drained(wake <-chan struct{}, sub *subscriber) chan [][]byte {
	out := make(chan [][]byte, 1)
	go func() {
		<-wake
		out <- sub.drain()
	}()
	return out
}

func TestFanLateSubscriberMissesEarlierPublish(t *testing.T) {
	f := NewFan()
	sub1, _, ok := f.Add()
	require.True(t, ok)
	f.Publish([]byte("before"))

	sub2, _, ok := f.Add()
	require.True(t, ok)

	require.Equal(t, [][]byte{[]byte("before")}, sub1.drain())
	require.Nil(t, sub2.drain(), "a subscriber added after Publish must not see the earlier payload")
}

func TestFanRemoveStopsFurtherDelivery(t *testing.T) {
	f := NewFan()
	sub, _, ok := f.Add()
	require.True(t, ok)
	f.Remove(sub)
	require.Equal(t, 0, f.NumSubscribers())

	f.Publish([]byte("after removal"))
	require.Nil(t, sub.drain())
}

func TestFanShutdownRejectsNewSubscribersAndWakesExisting(t *testing.T) {
	f := NewFan()
	_, wake, ok := f.Add()
	require.True(t, ok)
	require.False(t, f.IsShutdown())

	f.Shutdown()
	require.True(t, f.IsShutdown())

	select {
	case <-wake:
	default:
		t.Fatal("Shutdown must wake every registered subscriber")
	}

	_, _, ok = f.Add()
	require.False(t, ok, "Add after Shutdown must report ok=false")

	// Shutdown is idempotent.
	f.Shutdown()
}
