// Package nip57 turns paid invoices that embed a zap request into signed
// zap receipts.
package nip57

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/nbd-wtf/go-nostr"
)

const (
	KindZapRequest = 9734
	KindZapReceipt = 9735
)

// ZapRequest is the decoded view of the event a zap sender embedded in the
// invoice description.
type ZapRequest struct {
	Event nostr.Event
	// P is the recipient pubkey tag, exactly one per request.
	P nostr.Tag
	// E is the zapped event tag, present only when a specific note is zapped.
	E *nostr.Tag
	// Relays the sender asked the receipt to be published to.
	Relays []string
	// Amount is the declared msat amount, nil when the tag is absent.
	Amount *uint64
}

// DescriptionHash is the SHA256 hash of the serialized zap request. The
// invoice issuer commits to it in the bolt11 description-hash field.
func DescriptionHash(zapEventSerialized string) string {
	hash := sha256.Sum256([]byte(zapEventSerialized))
	return hex.EncodeToString(hash[:])
}

func isHex32(s string) bool {
	b, err := hex.DecodeString(s)
	return err == nil && len(b) == 32
}
