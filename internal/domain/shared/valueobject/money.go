package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code from the supported set
type Currency string

const (
	USD Currency = "USD"
	COP Currency = "COP"
	EUR Currency = "EUR"
	MXN Currency = "MXN"
)

// DefaultCurrency is used when a payload omits its currency
const DefaultCurrency = USD

var supportedCurrencies = map[Currency]struct{}{USD: {}, COP: {}, EUR: {}, MXN: {}}

// ParseCurrency normalizes and validates a currency code. An empty code
// resolves to DefaultCurrency.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	c := Currency(code)
	if _, ok := supportedCurrencies[c]; !ok {
		return "", fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

// Money is an amount tagged with its currency. Amounts never mix currencies.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// ErrCurrencyMismatch is returned when two amounts in different currencies meet
var ErrCurrencyMismatch = errors.New("currency mismatch")

func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("money needs a currency")
	}
	return Money{amount: amount, currency: currency}, nil
}

// Zero is the additive identity for currency
func Zero(currency Currency) Money {
	return Money{currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() Currency { return m.currency }

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}

// wireMoney carries the amount as a decimal string
type wireMoney struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMoney{Amount: m.amount, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var w wireMoney
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	parsed, err := NewMoney(w.Amount, w.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
