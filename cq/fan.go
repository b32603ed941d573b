package cq

import "sync"

// subscriber is one generic-call-data's mailbox, as seen by Fan. Matches
// the "vector<string> queue_" member the original unstructured/server.cc
// Fan entries used to batch deliveries to one slow subscriber.
type subscriber struct {
	mu      sync.Mutex
	pending [][]byte
}

func (s *subscriber) add(data []byte) {
	s.mu.Lock()
	s.pending = append(s.pending, data)
	s.mu.Unlock()
}

func (s *subscriber) drain() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = nil
	return out
}

// Fan is the fan-out mailbox described in §4.3: Add registers a
// subscriber, Publish appends one payload to every currently-registered
// subscriber's queue and wakes it, Shutdown stops accepting new
// subscribers and wakes every existing one a final time so it can drain
// and exit. Grounded on the Fan class in the original unstructured greeter
// server (original_source/unstructured/server.cc).
type Fan struct {
	mu          sync.Mutex
	subscribers map[*subscriber]chan struct{}
	shutdown    bool
}

// NewFan returns an empty, open Fan.
func NewFan() *Fan {
	return &Fan{subscribers: make(map[*subscriber]chan struct{})}
}

// Add registers a new subscriber and returns its mailbox and wake channel.
// ok is false if the Fan is already shut down, in which case the caller
// should finish its stream immediately rather than subscribing.
func (f *Fan) Add() (sub *subscriber, wake <-chan struct{}, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shutdown {
		return nil, nil, false
	}
	sub = &subscriber{}
	ch := make(chan struct{}, 1)
	f.subscribers[sub] = ch
	return sub, ch, true
}

// Remove unregisters a subscriber, e.g. when its stream is abandoned by
// the client.
func (f *Fan) Remove(sub *subscriber) {
	f.mu.Lock()
	delete(f.subscribers, sub)
	f.mu.Unlock()
}

// NumSubscribers reports how many subscribers are currently registered,
// standing in for the original Fan's num_calls() diagnostic.
func (f *Fan) NumSubscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// Publish appends data to every currently-registered subscriber's mailbox
// and wakes it. Subscribers that register after Publish returns do not see
// this payload, matching the original Fan's snapshot-at-publish-time
// semantics.
func (f *Fan) Publish(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub, wake := range f.subscribers {
		sub.add(data)
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

// IsShutdown reports whether Shutdown has been called.
func (f *Fan) IsShutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown
}

// Shutdown marks the Fan closed and wakes every registered subscriber one
// last time so each can observe IsShutdown, emit its final sentinel frame,
// and exit. Matches the original main()'s `fan.Shutdown(); Publish('-', i,
// &fan);` pattern: the sentinel publish is the caller's responsibility,
// not Fan's.
func (f *Fan) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shutdown {
		return
	}
	f.shutdown = true
	for _, wake := range f.subscribers {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}
