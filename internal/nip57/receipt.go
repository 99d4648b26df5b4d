package nip57

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/massmux/zapperd/internal/cln"
	"github.com/massmux/zapperd/internal/errors"
)

// Signer holds the operator key for the process lifetime. It is read-only
// shared state; nothing mutates it after NewSigner.
type Signer struct {
	sk  string
	pub string
}

// NewSigner accepts the operator secret key as hex or bech32 nsec.
func NewSigner(key string) (*Signer, error) {
	sk := key
	if strings.HasPrefix(key, "nsec") {
		prefix, value, err := nip19.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("could not decode nsec: %v", err)
		}
		if prefix != "nsec" {
			return nil, fmt.Errorf("key decodes with prefix %q, expected nsec", prefix)
		}
		sk = value.(string)
	}
	if b, err := hex.DecodeString(sk); err != nil || len(b) != 32 {
		return nil, fmt.Errorf("secret key is not 32 hex bytes")
	}
	pub, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("could not derive public key: %v", err)
	}
	return &Signer{sk: sk, pub: pub}, nil
}

func (s *Signer) PublicKey() string {
	return s.pub
}

// Sign sets the event author to the operator key and signs it. Calling Sign
// sets the event ID and Sig fields.
func (s *Signer) Sign(ev *nostr.Event) error {
	ev.PubKey = s.pub
	if err := ev.Sign(s.sk); err != nil {
		return errors.New(errors.SigningError, fmt.Errorf("could not sign receipt: %v", err))
	}
	return nil
}

// BuildReceipt constructs the unsigned zap receipt for a validated request
// and its paid invoice. Pure function of its arguments; no side effects.
//
// The receipt copies the request's addressing tags verbatim, carries the
// bolt11 and the raw invoice description (the serialized request itself),
// and the payment preimage when the node revealed one.
func BuildReceipt(req *ZapRequest, invoice *cln.Invoice, comment string, now time.Time) nostr.Event {
	tags := nostr.Tags{req.P}
	if req.E != nil {
		tags = tags.AppendUnique(*req.E)
	}
	tags = append(tags, nostr.Tag{"bolt11", invoice.Bolt11})
	tags = append(tags, nostr.Tag{"description", invoice.Description})
	if invoice.PaymentPreimage != "" {
		tags = append(tags, nostr.Tag{"preimage", invoice.PaymentPreimage})
	}

	return nostr.Event{
		CreatedAt: now,
		Kind:      KindZapReceipt,
		Tags:      tags,
		Content:   comment,
	}
}
