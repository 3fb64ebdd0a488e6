package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrCurrencyNotAllowed = errors.New("permanent unlocks can only be paid with permanent currency")

type Currency string

const (
	CurrencyPermanent Currency = "PERMANENT"
	CurrencyExpiring  Currency = "EXPIRING"
)

func (c Currency) Valid() bool {
	return c == CurrencyPermanent || c == CurrencyExpiring
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown currency %q", s)
	}
	return c, nil
}

type UnlockType string

const (
	UnlockTypeRental    UnlockType = "RENTAL"
	UnlockTypePermanent UnlockType = "PERMANENT"
)

func (t UnlockType) Valid() bool {
	return t == UnlockTypeRental || t == UnlockTypePermanent
}

func ParseUnlockType(s string) (UnlockType, error) {
	t := UnlockType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown unlock method %q", s)
	}
	return t, nil
}

// Purchase is a validated (method, currency) pair. The zero value is invalid;
// build one with NewPurchase.
type Purchase struct {
	method   UnlockType
	currency Currency
}

func NewPurchase(method UnlockType, currency Currency) (Purchase, error) {
	if !method.Valid() {
		return Purchase{}, fmt.Errorf("unknown unlock method %q", method)
	}
	if !currency.Valid() {
		return Purchase{}, fmt.Errorf("unknown currency %q", currency)
	}
	if method == UnlockTypePermanent && currency != CurrencyPermanent {
		return Purchase{}, ErrCurrencyNotAllowed
	}
	return Purchase{method: method, currency: currency}, nil
}

func (p Purchase) Method() UnlockType { return p.method }
func (p Purchase) Currency() Currency { return p.currency }
func (p Purchase) Valid() bool        { return p.method.Valid() && p.currency.Valid() }
