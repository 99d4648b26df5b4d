package cln

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Invoice is the subset of a lightningd waitanyinvoice response the zap
// pipeline needs. Amount fields are millisatoshis.
type Invoice struct {
	Label              string
	Description        string
	Bolt11             string
	PaymentHash        string
	Status             string
	PayIndex           uint64
	AmountMsat         uint64
	AmountReceivedMsat uint64
	PaymentPreimage    string
	PaidAt             int64
	ExpiresAt          int64
}

// PaidMsat is the amount the payer actually settled. lightningd reports it
// as amount_received_msat; overpayment of the invoice amount is possible.
func (i *Invoice) PaidMsat() uint64 {
	if i.AmountReceivedMsat > 0 {
		return i.AmountReceivedMsat
	}
	return i.AmountMsat
}

func invoiceFromResult(r gjson.Result) *Invoice {
	return &Invoice{
		Label:              r.Get("label").String(),
		Description:        r.Get("description").String(),
		Bolt11:             r.Get("bolt11").String(),
		PaymentHash:        r.Get("payment_hash").String(),
		Status:             r.Get("status").String(),
		PayIndex:           r.Get("pay_index").Uint(),
		AmountMsat:         parseMsat(r.Get("amount_msat")),
		AmountReceivedMsat: parseMsat(r.Get("amount_received_msat")),
		PaymentPreimage:    r.Get("payment_preimage").String(),
		PaidAt:             r.Get("paid_at").Int(),
		ExpiresAt:          r.Get("expires_at").Int(),
	}
}

// parseMsat handles both lightningd encodings of msat amounts: plain
// integers on recent releases, "123msat" strings on older ones.
func parseMsat(r gjson.Result) uint64 {
	switch r.Type {
	case gjson.Number:
		return r.Uint()
	case gjson.String:
		v, err := strconv.ParseUint(strings.TrimSuffix(r.String(), "msat"), 10, 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}
