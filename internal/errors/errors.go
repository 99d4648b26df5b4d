package errors

import (
	"encoding/json"
	stderrors "errors"
)

type ZapperErrorType int

// Validation-class outcomes. These never halt the pipeline: the watcher
// advances the cursor past the payment without publishing anything.
const (
	UnknownError ZapperErrorType = iota
	NotAZapError
	InvalidRequestError
	AmountMismatchError
)

// Transport-class outcomes. These hold the cursor so the payment is retried.
const (
	SigningError ZapperErrorType = 2000 + iota
	PublishTransientError
	PublishRejectedError
)

// Corruption-class outcomes. Fatal at startup.
const (
	CursorCorruptError ZapperErrorType = 3000 + iota
	RpcError
)

func New(code ZapperErrorType, err error) ZapperError {
	return ZapperError{Err: err, Message: err.Error(), Code: code}
}

type ZapperError struct {
	Message string `json:"message"`
	Err     error
	Code    ZapperErrorType `json:"code"`
}

func (e ZapperError) Error() string {
	j, err := json.Marshal(&e)
	if err != nil {
		return e.Message
	}
	return string(j)
}

func (e ZapperError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ZapperErrorType carried by err, or UnknownError if err
// is not a ZapperError.
func CodeOf(err error) ZapperErrorType {
	var ze ZapperError
	if stderrors.As(err, &ze) {
		return ze.Code
	}
	return UnknownError
}
