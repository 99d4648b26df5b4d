package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/massmux/zapperd/internal/errors"
)

type fakeConn struct {
	status nostr.Status
}

func (f *fakeConn) Publish(ctx context.Context, ev nostr.Event) nostr.Status { return f.status }
func (f *fakeConn) Close() {}

// fakeNetwork scripts per-relay behavior and counts connection attempts.
type fakeNetwork struct {
	mu       sync.Mutex
	statuses map[string]nostr.Status // missing url = connection refused
	attempts map[string]int
	// recover maps url to the attempt number from which connecting succeeds
	recover map[string]int
}

func newFakeNetwork(statuses map[string]nostr.Status) *fakeNetwork {
	return &fakeNetwork{statuses: statuses, attempts: map[string]int{}, recover: map[string]int{}}
}

func (n *fakeNetwork) connect(ctx context.Context, url string) (connection, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts[url]++
	if at, ok := n.recover[url]; ok && n.attempts[url] >= at {
		return &fakeConn{status: nostr.PublishStatusSucceeded}, nil
	}
	status, ok := n.statuses[url]
	if !ok {
		return nil, fmt.Errorf("connection refused")
	}
	return &fakeConn{status: status}, nil
}

func testPublisher(net *fakeNetwork, strict bool, maxRetries uint64) *Publisher {
	p := NewPublisher(Options{
		Timeout:        time.Second,
		Strict:         strict,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
	})
	p.connect = net.connect
	return p
}

func TestPublishBestEffortOneOfThree(t *testing.T) {
	net := newFakeNetwork(map[string]nostr.Status{
		"wss://up.example": nostr.PublishStatusSucceeded,
	})
	p := testPublisher(net, false, 0)

	results, err := p.PublishReceipt(context.Background(), nostr.Event{},
		[]string{"wss://down1.example", "wss://up.example", "wss://down2.example"})
	require.NoError(t, err)

	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
			assert.Equal(t, "wss://up.example", r.Relay)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestPublishStrictFailsWhenAnyRelayDown(t *testing.T) {
	net := newFakeNetwork(map[string]nostr.Status{
		"wss://up.example": nostr.PublishStatusSucceeded,
	})
	p := testPublisher(net, true, 1)

	_, err := p.PublishReceipt(context.Background(), nostr.Event{},
		[]string{"wss://up.example", "wss://down.example"})
	require.Error(t, err)
	assert.Equal(t, errors.PublishTransientError, errors.CodeOf(err))
}

func TestPublishRetriesTransientFailure(t *testing.T) {
	net := newFakeNetwork(map[string]nostr.Status{})
	net.recover["wss://flaky.example"] = 3
	p := testPublisher(net, false, 5)

	_, err := p.PublishReceipt(context.Background(), nostr.Event{}, []string{"wss://flaky.example"})
	require.NoError(t, err)
	assert.Equal(t, 3, net.attempts["wss://flaky.example"])
}

func TestPublishDoesNotRetryRejection(t *testing.T) {
	net := newFakeNetwork(map[string]nostr.Status{
		"wss://picky.example": nostr.PublishStatusFailed,
	})
	p := testPublisher(net, false, 5)

	_, err := p.PublishReceipt(context.Background(), nostr.Event{}, []string{"wss://picky.example"})
	require.Error(t, err)
	assert.Equal(t, errors.PublishRejectedError, errors.CodeOf(err))
	assert.Equal(t, 1, net.attempts["wss://picky.example"])
}

func TestPublishSucceededRelayNotRecontacted(t *testing.T) {
	net := newFakeNetwork(map[string]nostr.Status{
		"wss://up.example": nostr.PublishStatusSucceeded,
	})
	net.recover["wss://flaky.example"] = 2
	p := testPublisher(net, true, 5)

	_, err := p.PublishReceipt(context.Background(), nostr.Event{},
		[]string{"wss://up.example", "wss://flaky.example"})
	require.NoError(t, err)
	assert.Equal(t, 1, net.attempts["wss://up.example"])
	assert.Equal(t, 2, net.attempts["wss://flaky.example"])
}

func TestPublishRetryExhaustion(t *testing.T) {
	net := newFakeNetwork(map[string]nostr.Status{})
	p := testPublisher(net, false, 2)

	_, err := p.PublishReceipt(context.Background(), nostr.Event{}, []string{"wss://down.example"})
	require.Error(t, err)
	assert.Equal(t, errors.PublishTransientError, errors.CodeOf(err))
	assert.Equal(t, 3, net.attempts["wss://down.example"]) // initial + 2 retries
}

func TestPublishSentWithoutAckIsTransient(t *testing.T) {
	r := Result{Relay: "wss://slow.example", Status: nostr.PublishStatusSent}
	assert.True(t, r.Transient())
	assert.False(t, r.Succeeded())
}

func TestUnion(t *testing.T) {
	got := Union(
		[]string{"wss://a.example", "wss://b.example/"},
		[]string{"wss://b.example", "wss://c.example/", "wss://a.example"},
	)
	assert.Equal(t, []string{"wss://a.example", "wss://b.example", "wss://c.example"}, got)
}
