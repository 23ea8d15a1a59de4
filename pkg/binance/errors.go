package binance

import (
	"errors"
	"fmt"
)

// APIError is an error payload returned by the venue REST API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("venue error %d: %s", e.Code, e.Message)
}

// Venue error codes that matter to callers.
const (
	codeUnknownOrder      = -2011 // cancel/query raced a fill or an earlier cancel
	codeOrderDoesNotExist = -2013
	codeInsufficientfunds = -2019
)

// IsOrderGone reports whether an error means the order is already filled,
// already canceled, or otherwise no longer live on the venue. Callers treat
// this as a benign no-op on cancel.
func IsOrderGone(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == codeUnknownOrder || apiErr.Code == codeOrderDoesNotExist
	}
	return false
}

// IsInsufficientFunds reports whether the venue rejected an order for margin.
func IsInsufficientFunds(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == codeInsufficientfunds
	}
	return false
}
