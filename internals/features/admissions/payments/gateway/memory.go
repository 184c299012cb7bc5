package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const memorySignatureHeader = "x-memory-signature"

// Memory is an in-process gateway for development and tests. References
// verify as successful unless another outcome was set.
type Memory struct {
	secret string

	mu        sync.Mutex
	amounts   map[string]decimal.Decimal
	outcomes  map[string]Outcome
	initErr   error
	verifyErr error

	initCalls   int
	verifyCalls int
}

func NewMemory(secret string) *Memory {
	return &Memory{
		secret:   secret,
		amounts:  map[string]decimal.Decimal{},
		outcomes: map[string]Outcome{},
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	if m.initErr != nil {
		return nil, m.initErr
	}
	m.amounts[req.Reference] = req.Amount
	return &InitResult{
		AuthorizationURL: "https://checkout.invalid/pay/" + req.Reference,
		AccessCode:       strings.ToLower(req.Reference),
		GatewayReference: req.Reference,
	}, nil
}

func (m *Memory) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyCalls++
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	amount, known := m.amounts[reference]
	if !known {
		return &VerifyResult{Outcome: OutcomePending, Status: "not_found"}, nil
	}
	outcome, ok := m.outcomes[reference]
	if !ok {
		outcome = OutcomeSuccess
	}
	return &VerifyResult{
		Outcome:          outcome,
		Status:           string(outcome),
		Amount:           amount,
		AmountScale:      2,
		HasAmount:        true,
		GatewayReference: reference,
	}, nil
}

func (m *Memory) ParseWebhook(header func(string) string, body []byte) (string, error) {
	sig := strings.TrimSpace(header(memorySignatureHeader))
	if sig == "" || !validHMAC512(m.secret, body, sig) {
		return "", ErrInvalidSignature
	}
	var ev struct {
		Reference string `json:"reference"`
	}
	if err := sonic.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("memory webhook payload: %w", err)
	}
	if ev.Reference == "" {
		return "", errors.New("memory webhook without reference")
	}
	return ev.Reference, nil
}

// SetOutcome fixes what Verify reports for reference.
func (m *Memory) SetOutcome(reference string, o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[reference] = o
}

// SetAmount overrides the amount Verify reports for reference.
func (m *Memory) SetAmount(reference string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.amounts[reference] = amount
}

// FailInitialize makes every Initialize return err until cleared with nil.
func (m *Memory) FailInitialize(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// FailVerify makes every Verify return err until cleared with nil.
func (m *Memory) FailVerify(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyErr = err
}

func (m *Memory) Calls() (initialize, verify int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls, m.verifyCalls
}

// Sign returns the signature header value ParseWebhook expects for body.
func (m *Memory) Sign(body []byte) string {
	return signHMAC512(m.secret, body)
}
