package nip57

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/massmux/zapperd/internal/errors"
)

// ParseZapRequest decodes an invoice description into a zap request.
//
// An ordinary description (plain text, unrelated JSON, an event of another
// kind) yields NotAZapError: a normal outcome, the payment just isn't a zap.
// A description that is a zap request event but structurally broken yields
// InvalidRequestError. Both are skip-and-advance for the watcher.
func ParseZapRequest(description string) (*ZapRequest, error) {
	trimmed := strings.TrimSpace(description)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, errors.New(errors.NotAZapError, fmt.Errorf("description is not a serialized event"))
	}

	var ev nostr.Event
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return nil, errors.New(errors.NotAZapError, fmt.Errorf("description does not decode as an event: %v", err))
	}
	if ev.PubKey == "" || ev.Sig == "" {
		return nil, errors.New(errors.NotAZapError, fmt.Errorf("description decodes but is not a signed event"))
	}
	if ev.Kind != KindZapRequest {
		return nil, errors.New(errors.NotAZapError, fmt.Errorf("event kind %d is not a zap request", ev.Kind))
	}

	var pTags, eTags []nostr.Tag
	for _, tag := range ev.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "p":
			pTags = append(pTags, tag)
		case "e":
			eTags = append(eTags, tag)
		}
	}

	if len(pTags) != 1 {
		return nil, errors.New(errors.InvalidRequestError, fmt.Errorf("zap request needs exactly one p tag, got %d", len(pTags)))
	}
	if len(eTags) > 1 {
		return nil, errors.New(errors.InvalidRequestError, fmt.Errorf("zap request has %d e tags, at most one allowed", len(eTags)))
	}
	var eTag *nostr.Tag
	if len(eTags) == 1 {
		eTag = &eTags[0]
	}

	var relays []string
	if t := ev.Tags.GetFirst([]string{"relays"}); t != nil && len(*t) > 1 {
		relays = append(relays, (*t)[1:]...)
	}

	var amount *uint64
	if t := ev.Tags.GetFirst([]string{"amount"}); t != nil {
		msat, err := strconv.ParseUint(t.Value(), 10, 64)
		if err != nil {
			return nil, errors.New(errors.InvalidRequestError, fmt.Errorf("amount tag %q is not msat", t.Value()))
		}
		amount = &msat
	}

	return &ZapRequest{
		Event:  ev,
		P:      pTags[0],
		E:      eTag,
		Relays: relays,
		Amount: amount,
	}, nil
}
