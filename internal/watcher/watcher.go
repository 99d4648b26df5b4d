// Package watcher drives the invoice-to-receipt pipeline: one sequential
// loop over the node's payment stream, cursor persisted only after each
// payment's outcome is known.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"

	"github.com/massmux/zapperd/internal/cln"
	"github.com/massmux/zapperd/internal/errors"
	"github.com/massmux/zapperd/internal/nip57"
	"github.com/massmux/zapperd/internal/relay"
)

type InvoiceSource interface {
	WaitAnyInvoice(ctx context.Context, lastPayIndex uint64) (*cln.Invoice, error)
}

type Publisher interface {
	PublishReceipt(ctx context.Context, ev nostr.Event, relays []string) ([]relay.Result, error)
}

type CursorStore interface {
	Load() (uint64, error)
	Save(idx uint64) error
}

type ReceiptSigner interface {
	Sign(ev *nostr.Event) error
}

type Config struct {
	// Relays is the operator's relay set; the request's hints are unioned in.
	Relays []string
	// Comment becomes the receipt content, normally empty.
	Comment string
	// RetryDelay is the pause before reattempting a payment that could not
	// be handled (signing failure, no relay accepting).
	RetryDelay time.Duration
	// StuckThreshold is the number of consecutive failed attempts on the
	// same pay index after which the watcher flags itself as stuck.
	StuckThreshold uint64
}

// Stats is a snapshot of the watcher's progress for logs and the status API.
type Stats struct {
	LastPayIndex        uint64    `json:"last_pay_index"`
	Processed           uint64    `json:"processed"`
	Published           uint64    `json:"published"`
	NotZap              uint64    `json:"skipped_not_zap"`
	InvalidRequest      uint64    `json:"skipped_invalid_request"`
	AmountMismatch      uint64    `json:"skipped_amount_mismatch"`
	ConsecutiveFailures uint64    `json:"consecutive_failures"`
	Stuck               bool      `json:"stuck"`
	LastReceiptID       string    `json:"last_receipt_id,omitempty"`
	LastPublishedAt     time.Time `json:"last_published_at,omitempty"`
}

type Watcher struct {
	node      InvoiceSource
	publisher Publisher
	cursor    CursorStore
	signer    ReceiptSigner
	cfg       Config

	mu        sync.RWMutex
	stats     Stats
	onReceipt func(ev nostr.Event)
}

func New(node InvoiceSource, publisher Publisher, cursor CursorStore, signer ReceiptSigner, cfg Config) *Watcher {
	return &Watcher{
		node:      node,
		publisher: publisher,
		cursor:    cursor,
		signer:    signer,
		cfg:       cfg,
	}
}

// OnReceipt registers a hook invoked after each published receipt. Must be
// called before Run.
func (w *Watcher) OnReceipt(f func(ev nostr.Event)) {
	w.onReceipt = f
}

func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Run processes payments until ctx is cancelled. The cursor is persisted
// after a payment is fully handled (published, or deliberately skipped),
// never merely fetched. A persistence failure stops the run: continuing
// without durable progress risks duplicate receipts after a crash.
func (w *Watcher) Run(ctx context.Context) error {
	last, err := w.cursor.Load()
	if err != nil {
		return err
	}
	w.setIndex(last)
	log.Infof("[watcher] starting at pay index %d", last)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		invoice, err := w.node.WaitAnyInvoice(ctx, last)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// don't hammer the node on failure
			log.Warnf("[watcher] error fetching invoice after index %d: %v", last, err)
			if !sleepCtx(ctx, w.cfg.RetryDelay) {
				return ctx.Err()
			}
			continue
		}

		if err := w.handle(ctx, invoice); err != nil {
			log.Errorf("[watcher] pay index %d not handled: %v", invoice.PayIndex, err)
			w.noteFailure(invoice.PayIndex)
			if !sleepCtx(ctx, w.cfg.RetryDelay) {
				return ctx.Err()
			}
			continue
		}

		if err := w.cursor.Save(invoice.PayIndex); err != nil {
			log.Errorf("[watcher] could not persist cursor %d: %v", invoice.PayIndex, err)
			return err
		}
		last = invoice.PayIndex
		w.noteHandled(last)
	}
}

// handle runs one payment through extract, validate, build, sign, publish.
// A nil return means the payment is fully handled and the cursor may
// advance past it. A skipped payment counts as handled: retrying cannot
// change a cryptographic or amount fact.
func (w *Watcher) handle(ctx context.Context, invoice *cln.Invoice) error {
	req, err := nip57.ParseZapRequest(invoice.Description)
	if err != nil {
		w.noteSkip(invoice, err)
		return nil
	}

	if err := nip57.ValidateZapRequest(req, invoice); err != nil {
		w.noteSkip(invoice, err)
		return nil
	}

	receipt := nip57.BuildReceipt(req, invoice, w.cfg.Comment, time.Now())
	if err := w.signer.Sign(&receipt); err != nil {
		return err
	}

	relays := relay.Union(w.cfg.Relays, req.Relays)
	results, err := w.publisher.PublishReceipt(ctx, receipt, relays)
	if err != nil {
		return err
	}

	accepted := 0
	for _, r := range results {
		if r.Succeeded() {
			accepted++
		}
	}
	log.Infof("[watcher] broadcast zap receipt %s for pay index %d (%d/%d relays)",
		receipt.ID, invoice.PayIndex, accepted, len(results))

	w.notePublished(receipt)
	if w.onReceipt != nil {
		w.onReceipt(receipt)
	}
	return nil
}

func (w *Watcher) noteSkip(invoice *cln.Invoice, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch errors.CodeOf(err) {
	case errors.NotAZapError:
		w.stats.NotZap++
		log.Debugf("[watcher] pay index %d is not a zap: %v", invoice.PayIndex, err)
	case errors.AmountMismatchError:
		w.stats.AmountMismatch++
		log.Infof("[watcher] pay index %d skipped: %v", invoice.PayIndex, err)
	default:
		w.stats.InvalidRequest++
		log.Infof("[watcher] pay index %d skipped: %v", invoice.PayIndex, err)
	}
}

func (w *Watcher) notePublished(receipt nostr.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Published++
	w.stats.LastReceiptID = receipt.ID
	w.stats.LastPublishedAt = time.Now()
}

func (w *Watcher) noteHandled(idx uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Processed++
	w.stats.LastPayIndex = idx
	w.stats.ConsecutiveFailures = 0
	w.stats.Stuck = false
}

func (w *Watcher) noteFailure(idx uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.ConsecutiveFailures++
	if w.cfg.StuckThreshold > 0 && w.stats.ConsecutiveFailures >= w.cfg.StuckThreshold && !w.stats.Stuck {
		w.stats.Stuck = true
		log.Warnf("[watcher] stuck at pay index %d after %d attempts, operator attention needed",
			idx, w.stats.ConsecutiveFailures)
	}
}

func (w *Watcher) setIndex(idx uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastPayIndex = idx
}

// sleepCtx waits d or until ctx is done, reporting whether the full delay
// elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
