package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"

	"github.com/massmux/zapperd/internal/errors"
)

// Result is the outcome of one delivery attempt to one relay.
type Result struct {
	Relay  string
	Status nostr.Status
	Err    error
}

func (r Result) Succeeded() bool {
	return r.Status == nostr.PublishStatusSucceeded
}

// Transient reports whether retrying this relay can help: the connection
// failed, or the event was sent but the relay never acknowledged it within
// the timeout. A relay that answered with a rejection is not transient.
func (r Result) Transient() bool {
	if r.Err != nil {
		return true
	}
	return r.Status == nostr.PublishStatusSent
}

type Options struct {
	// Timeout bounds each individual relay attempt.
	Timeout time.Duration
	// Strict requires every relay to acknowledge; otherwise one suffices.
	Strict bool
	// MaxRetries bounds additional rounds against transiently failed relays.
	MaxRetries     uint64
	InitialBackoff time.Duration
}

type connection interface {
	Publish(ctx context.Context, ev nostr.Event) nostr.Status
	Close()
}

type relayConn struct {
	relay *nostr.Relay
}

func (c relayConn) Publish(ctx context.Context, ev nostr.Event) nostr.Status {
	return c.relay.Publish(ctx, ev)
}

func (c relayConn) Close() {
	c.relay.Close()
}

type Publisher struct {
	opts Options
	// connect is swapped out in tests
	connect func(ctx context.Context, url string) (connection, error)
}

func NewPublisher(opts Options) *Publisher {
	return &Publisher{
		opts: opts,
		connect: func(ctx context.Context, url string) (connection, error) {
			relay, err := nostr.RelayConnect(ctx, url)
			if err != nil {
				return nil, err
			}
			return relayConn{relay: relay}, nil
		},
	}
}

// Publish delivers ev to every relay concurrently and independently, joined
// before returning. One result per relay, in input order.
func (p *Publisher) Publish(ctx context.Context, ev nostr.Event, relays []string) []Result {
	results := make([]Result, len(relays))
	var wg sync.WaitGroup
	for i, url := range relays {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			results[i] = p.publishOne(ctx, ev, url)
		}(i, url)
	}
	wg.Wait()
	return results
}

func (p *Publisher) publishOne(ctx context.Context, ev nostr.Event, url string) Result {
	attemptCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	conn, err := p.connect(attemptCtx, url)
	if err != nil {
		log.Warnf("[relay] error connecting to %s: %v", url, err)
		return Result{Relay: url, Status: nostr.PublishStatusFailed, Err: errors.New(errors.PublishTransientError, err)}
	}
	defer conn.Close()

	status := conn.Publish(attemptCtx, ev)
	log.Debugf("[relay] published %s to %s: %s", ev.ID, url, status)
	return Result{Relay: url, Status: status}
}

// PublishReceipt runs Publish under the configured retry policy. It returns
// the final per-relay results and nil when the acknowledgement policy was
// met: all relays in strict mode, at least one otherwise. Relays that
// rejected the event are not retried; transiently failed ones are, with
// exponential backoff, until MaxRetries is exhausted.
func (p *Publisher) PublishReceipt(ctx context.Context, ev nostr.Event, relays []string) ([]Result, error) {
	final := make(map[string]Result, len(relays))
	remaining := append([]string(nil), relays...)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(p.opts.InitialBackoff), p.opts.MaxRetries), ctx)

	errNotAccepted := fmt.Errorf("event %s not accepted", ev.ID)
	attempt := func() error {
		for _, r := range p.Publish(ctx, ev, remaining) {
			final[r.Relay] = r
		}

		succeeded := 0
		var retry []string
		for _, r := range final {
			if r.Succeeded() {
				succeeded++
			} else if r.Transient() {
				retry = append(retry, r.Relay)
			}
		}
		remaining = retry

		if p.opts.Strict {
			if succeeded == len(relays) {
				return nil
			}
			if succeeded+len(remaining) < len(relays) {
				// a relay rejected outright; strict mode can never be met
				return backoff.Permanent(errNotAccepted)
			}
		} else if succeeded > 0 {
			return nil
		}
		if len(remaining) == 0 {
			// every outstanding relay rejected; another round cannot help
			return backoff.Permanent(errNotAccepted)
		}
		return errNotAccepted
	}

	err := backoff.Retry(attempt, policy)
	results := make([]Result, 0, len(relays))
	for _, url := range relays {
		results = append(results, final[url])
	}
	if err == nil {
		return results, nil
	}

	code := errors.PublishRejectedError
	for _, r := range results {
		if r.Transient() {
			code = errors.PublishTransientError
			break
		}
	}
	return results, errors.New(code, errNotAccepted)
}

func newExponentialBackOff(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxElapsedTime = 0
	return b
}
