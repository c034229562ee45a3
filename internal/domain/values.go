package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

const maxReferenceIDLength = 64

// RequestID identifies a consultation request or litigation case.
type RequestID string

// NewRequestID generates a fresh identifier.
func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

// ParseRequestID validates a UUID-formatted identifier.
func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperrors.NewValidationError("request id must be a uuid", map[string]any{"id": raw})
	}
	return RequestID(parsed.String()), nil
}

func (id RequestID) String() string { return string(id) }

// SubscriberID references an external subscriber identity.
type SubscriberID string

// ProviderID references an external provider identity.
type ProviderID string

// ActorID references whoever caused a transition.
type ActorID string

func NewSubscriberID(raw string) (SubscriberID, error) {
	v, err := referenceID("subscriber_id", raw)
	return SubscriberID(v), err
}

func NewProviderID(raw string) (ProviderID, error) {
	v, err := referenceID("provider_id", raw)
	return ProviderID(v), err
}

func NewActorID(raw string) (ActorID, error) {
	v, err := referenceID("actor_id", raw)
	return ActorID(v), err
}

func (id SubscriberID) String() string { return string(id) }
func (id ProviderID) String() string   { return string(id) }
func (id ActorID) String() string      { return string(id) }

func referenceID(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	if utf8.RuneCountInString(v) > maxReferenceIDLength {
		return "", apperrors.NewValidationError(field+" is too long", map[string]any{"field": field, "max": maxReferenceIDLength})
	}
	return v, nil
}

var humanNumberPattern = regexp.MustCompile(`^[A-Z]{2,5}-\d{8}-\d{4,}$`)

// HumanNumber is the human readable sequence code, e.g. CON-20260101-0007.
type HumanNumber string

func NewHumanNumber(raw string) (HumanNumber, error) {
	v := strings.TrimSpace(raw)
	if !humanNumberPattern.MatchString(v) {
		return "", apperrors.NewValidationError("number must match PREFIX-YYYYMMDD-NNNN", map[string]any{"number": raw})
	}
	return HumanNumber(v), nil
}

func (n HumanNumber) String() string { return string(n) }

// Title is the subject line of a request.
type Title string

// Description is the free-text body of a request.
type Description string

// Category classifies a request for routing, e.g. "family-law".
type Category string

// Reason is advisory text attached to cancellations and disputes.
type Reason string

func NewTitle(raw string) (Title, error) {
	v, err := boundedText("title", raw, 3, 200)
	return Title(v), err
}

func NewDescription(raw string) (Description, error) {
	v, err := boundedText("description", raw, 10, 5000)
	return Description(v), err
}

func NewCategory(raw string) (Category, error) {
	v, err := boundedText("category", strings.ToLower(raw), 2, 64)
	if err != nil {
		return "", err
	}
	return Category(strings.ReplaceAll(v, " ", "-")), nil
}

func NewReason(raw string) (Reason, error) {
	v, err := boundedText("reason", raw, 1, 1000)
	return Reason(v), err
}

// OptionalReason returns nil for blank input.
func OptionalReason(raw string) (*Reason, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	r, err := NewReason(raw)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (t Title) String() string       { return string(t) }
func (d Description) String() string { return string(d) }
func (c Category) String() string    { return string(c) }
func (r Reason) String() string      { return string(r) }

func boundedText(field, raw string, minLen, maxLen int) (string, error) {
	v := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(v)
	if n < minLen || n > maxLen {
		return "", apperrors.NewValidationError(field+" length out of range", map[string]any{
			"field": field,
			"min":   minLen,
			"max":   maxLen,
		})
	}
	return v, nil
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Money is a positive amount in a single ISO-4217 currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(cur) {
		return Money{}, apperrors.NewValidationError("currency must be a 3-letter ISO code", map[string]any{"currency": currency})
	}
	if !amount.IsPositive() {
		return Money{}, apperrors.NewValidationError("amount must be positive", map[string]any{"amount": amount.String()})
	}
	return Money{amount: amount, currency: cur}, nil
}

// ParseMoney builds Money from a decimal string such as "1000.00".
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, apperrors.NewValidationError("amount is not a number", map[string]any{"amount": amount})
	}
	return NewMoney(d, currency)
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.currency == "" }

// Equal compares amount and currency exactly.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}

// Rating is a 1-5 satisfaction score.
type Rating int

func NewRating(v int) (Rating, error) {
	if v < 1 || v > 5 {
		return 0, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": v})
	}
	return Rating(v), nil
}

func (r Rating) Int() int { return int(r) }

// PaymentReference is the gateway reference for a capture or refund.
type PaymentReference string

func NewPaymentReference(raw string) (PaymentReference, error) {
	v, err := boundedText("payment_reference", raw, 1, 128)
	return PaymentReference(v), err
}

func (p PaymentReference) String() string { return string(p) }
