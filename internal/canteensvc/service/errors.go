package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the scan, session and deposit flows. Handlers
// map these to the stable numeric API codes the mobile clients already
// depend on, so wrap rather than replace them.
var (
	ErrOperatorOnly      = errors.New("only operators can perform this action")
	ErrAdminOnly         = errors.New("only admins can perform this action")
	ErrForbidden         = errors.New("unauthorized access")
	ErrSessionConflict   = errors.New("operator already has an active session")
	ErrSessionNotFound   = errors.New("active session not found")
	ErrCardNotFound      = errors.New("invalid or inactive rfid card")
	ErrItemNotFound      = errors.New("invalid canteen item")
	ErrDuplicatePurchase = errors.New("item already purchased in this session")
	ErrCardBlocked       = errors.New("card blocked after repeated insufficient balance")
	ErrDuplicateDeposit  = errors.New("bank reference already processed")
	ErrInvalidInput      = errors.New("invalid request")
)

// BlockedCardError carries the state the operator terminal shows when
// a meal is denied.
type BlockedCardError struct {
	CardNumber string
	Balance    decimal.Decimal
	Count      int
}

func (e *BlockedCardError) Error() string {
	return fmt.Sprintf("card %s blocked: %d insufficient meals, balance %s",
		e.CardNumber, e.Count, e.Balance.StringFixed(2))
}

func (e *BlockedCardError) Unwrap() error { return ErrCardBlocked }

// APICode returns the legacy numeric code for err. Codes are part of
// the client contract and must not be renumbered.
func APICode(err error) int {
	switch {
	case errors.Is(err, ErrOperatorOnly), errors.Is(err, ErrAdminOnly), errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrSessionConflict):
		return 113
	case errors.Is(err, ErrSessionNotFound):
		return 114
	case errors.Is(err, ErrCardNotFound):
		return 115
	case errors.Is(err, ErrItemNotFound):
		return 116
	case errors.Is(err, ErrDuplicateDeposit):
		return 117
	case errors.Is(err, ErrCardBlocked):
		return 118
	case errors.Is(err, ErrDuplicatePurchase):
		return 119
	case errors.Is(err, ErrInvalidInput):
		return 120
	default:
		return 500
	}
}

// HTTPStatus maps err to the response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrOperatorOnly), errors.Is(err, ErrAdminOnly),
		errors.Is(err, ErrForbidden), errors.Is(err, ErrCardBlocked):
		return http.StatusForbidden
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrCardNotFound),
		errors.Is(err, ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionConflict), errors.Is(err, ErrDuplicatePurchase),
		errors.Is(err, ErrDuplicateDeposit), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
