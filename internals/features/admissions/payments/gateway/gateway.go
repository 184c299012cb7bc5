// Package gateway talks to the external payment providers. Providers only
// initialize and verify transactions; settlement state lives in the
// payments table.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"admissions_backend/internals/configs"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomePending means the payer has not finished checkout yet.
	OutcomePending Outcome = "pending"
	OutcomeFailed  Outcome = "failed"
)

type Customer struct {
	FirstName string
	LastName  string
	Phone     string
}

type InitRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	CallbackURL string
	Description string
	Customer    Customer
	Metadata    map[string]any
}

type InitResult struct {
	AuthorizationURL string
	AccessCode       string
	GatewayReference string
}

type VerifyResult struct {
	Outcome Outcome
	Status  string // raw provider status
	Message string

	// Amount is what the provider charged, rounded to AmountScale decimals.
	Amount      decimal.Decimal
	AmountScale int32
	HasAmount   bool

	GatewayReference string
	PaidAt           *time.Time
}

// AmountMatches compares the charged amount with the expected one at the
// provider's precision. It is true when the provider reported no amount.
func (r *VerifyResult) AmountMatches(expected decimal.Decimal) bool {
	if !r.HasAmount {
		return true
	}
	return r.Amount.Equal(expected.Round(r.AmountScale))
}

// Gateway is implemented by every provider. Errors returned from Initialize
// and Verify mean the provider could not be reached or refused the call;
// a declined payment is a VerifyResult with OutcomeFailed.
type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req InitRequest) (*InitResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	// ParseWebhook authenticates a callback and returns the merchant
	// reference it is about.
	ParseWebhook(header func(key string) string, body []byte) (string, error)
}

var ErrInvalidSignature = errors.New("gateway: invalid webhook signature")

// ToMinorUnits converts a major-unit amount to the smallest currency unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// New builds the provider selected by PAYMENT_GATEWAY.
func New(cfg configs.Config) (Gateway, error) {
	switch cfg.PaymentGateway {
	case "paystack":
		return NewPaystack(cfg.PaystackSecretKey, cfg.PaystackBaseURL, cfg.GatewayTimeout), nil
	case "midtrans":
		return NewMidtrans(cfg.MidtransServerKey, cfg.MidtransUseProd), nil
	case "memory":
		return NewMemory(cfg.JWTSecret), nil
	}
	return nil, fmt.Errorf("unknown payment gateway %q", cfg.PaymentGateway)
}

// timeoutFor returns the smaller of def and the time left on ctx.
func timeoutFor(ctx context.Context, def time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d := def
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if d <= 0 || left < d {
			d = left
		}
	}
	return d, nil
}
