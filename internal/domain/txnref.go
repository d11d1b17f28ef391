package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Transaction token wire format, version 1:
//
//	TransactionTokenPrefix + decimal cart id + date as yyyymmdd
//
// The gateway echoes the token back on its callbacks and the cart id is
// recovered from it, so neither the prefix nor the date layout may change
// without versioning the format.
const (
	TransactionTokenPrefix = "transectionId"
	transactionDateLayout  = "20060102"
)

var ErrMalformedToken = errors.New("malformed transaction token")

// NewTransactionToken is deterministic for a (cart, day) pair.
func NewTransactionToken(cartID int64, day time.Time) string {
	return TransactionTokenPrefix + strconv.FormatInt(cartID, 10) + day.Format(transactionDateLayout)
}

// ParseTransactionToken returns the cart id and date encoded in token.
func ParseTransactionToken(token string) (int64, time.Time, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(token), TransactionTokenPrefix)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: missing prefix", ErrMalformedToken)
	}
	if len(rest) <= len(transactionDateLayout) {
		return 0, time.Time{}, fmt.Errorf("%w: too short", ErrMalformedToken)
	}

	idPart, datePart := rest[:len(rest)-len(transactionDateLayout)], rest[len(rest)-len(transactionDateLayout):]
	day, err := time.Parse(transactionDateLayout, datePart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: bad date %q", ErrMalformedToken, datePart)
	}
	for _, r := range idPart {
		if r < '0' || r > '9' {
			return 0, time.Time{}, fmt.Errorf("%w: bad cart id %q", ErrMalformedToken, idPart)
		}
	}
	cartID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: bad cart id %q", ErrMalformedToken, idPart)
	}
	return cartID, day, nil
}
