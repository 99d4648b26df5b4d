package nip57

import (
	"fmt"

	decodepay "github.com/fiatjaf/ln-decodepay"

	"github.com/massmux/zapperd/internal/cln"
	"github.com/massmux/zapperd/internal/errors"
)

// ValidateZapRequest checks a decoded request against protocol rules and the
// payment facts. Checks run in order and short-circuit; every failure is a
// typed error so the watcher's advance-or-hold decision is a function of the
// code alone. Retrying cannot change any of these facts.
func ValidateZapRequest(req *ZapRequest, invoice *cln.Invoice) error {
	// 1. the request must verify against its own stated author key
	valid, err := req.Event.CheckSignature()
	if err != nil || !valid {
		return errors.New(errors.InvalidRequestError, fmt.Errorf("zap request %s signature invalid: %v", req.Event.ID, err))
	}

	// 2. a declared amount must equal the paid amount exactly
	if req.Amount != nil && *req.Amount != invoice.PaidMsat() {
		return errors.New(errors.AmountMismatchError,
			fmt.Errorf("zap request %s declares %d msat but invoice paid %d msat", req.Event.ID, *req.Amount, invoice.PaidMsat()))
	}

	// 3. addressing must be well-formed
	if !isHex32(req.P.Value()) {
		return errors.New(errors.InvalidRequestError, fmt.Errorf("zap request %s p tag %q is not a pubkey", req.Event.ID, req.P.Value()))
	}
	if req.E != nil && !isHex32(req.E.Value()) {
		return errors.New(errors.InvalidRequestError, fmt.Errorf("zap request %s e tag %q is not an event id", req.Event.ID, req.E.Value()))
	}

	// 4. the invoice must commit to this request: its description-hash has
	// to match the hash of the description the node handed us
	if invoice.Bolt11 != "" {
		bolt11, err := decodepay.Decodepay(invoice.Bolt11)
		if err != nil {
			return errors.New(errors.InvalidRequestError, fmt.Errorf("invoice bolt11 undecodable: %v", err))
		}
		if bolt11.DescriptionHash != "" && bolt11.DescriptionHash != DescriptionHash(invoice.Description) {
			return errors.New(errors.InvalidRequestError,
				fmt.Errorf("invoice description-hash %s does not commit to the embedded zap request", bolt11.DescriptionHash))
		}
	}

	return nil
}
