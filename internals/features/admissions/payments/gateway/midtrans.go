package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

// Midtrans creates Snap transactions and checks them through Core API.
// Midtrans charges IDR in whole units, so amounts are rounded.
type Midtrans struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{serverKey: serverKey}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func (m *Midtrans) Name() string { return "midtrans" }

type midtransNotif struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

func (m *Midtrans) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	gross := req.Amount.Round(0).IntPart()
	if gross <= 0 {
		return nil, errors.New("midtrans: amount must be positive")
	}
	name := req.Description
	if name == "" {
		name = "Admission payment"
	}
	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.FirstName,
			LName: req.Customer.LastName,
			Email: req.Email,
			Phone: req.Customer.Phone,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:       req.Reference,
			Price:    gross,
			Qty:      1,
			Name:     truncate(name, 50),
			Category: "ADMISSION",
		}},
	}
	if req.CallbackURL != "" {
		sreq.Callbacks = &snap.Callbacks{Finish: req.CallbackURL}
	}

	type result struct {
		resp *snap.Response
		err  *midtrans.Error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := m.snap.CreateTransaction(sreq)
		ch <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("midtrans snap: %w", r.err)
		}
		if r.resp == nil || r.resp.RedirectURL == "" {
			return nil, errors.New("midtrans snap: empty response")
		}
		return &InitResult{
			AuthorizationURL: r.resp.RedirectURL,
			AccessCode:       r.resp.Token,
			GatewayReference: req.Reference,
		}, nil
	}
}

func (m *Midtrans) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	type result struct {
		resp *coreapi.TransactionStatusResponse
		err  *midtrans.Error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := m.core.CheckTransaction(reference)
		ch <- result{resp, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		if r.err.GetStatusCode() == http.StatusNotFound {
			return &VerifyResult{Outcome: OutcomePending, Status: "not_found", Message: r.err.GetMessage()}, nil
		}
		return nil, fmt.Errorf("midtrans status: %w", r.err)
	}
	if r.resp == nil {
		return nil, errors.New("midtrans status: empty response")
	}
	if r.resp.StatusCode == "404" {
		return &VerifyResult{Outcome: OutcomePending, Status: "not_found", Message: r.resp.StatusMessage}, nil
	}

	res := &VerifyResult{
		Outcome:          midtransOutcome(r.resp.TransactionStatus, r.resp.FraudStatus),
		Status:           r.resp.TransactionStatus,
		Message:          r.resp.StatusMessage,
		GatewayReference: r.resp.TransactionID,
	}
	if amt, err := decimal.NewFromString(r.resp.GrossAmount); err == nil {
		res.Amount = amt
		res.AmountScale = 0
		res.HasAmount = true
	}
	return res, nil
}

func midtransOutcome(status, fraud string) Outcome {
	switch strings.ToLower(status) {
	case "settlement":
		return OutcomeSuccess
	case "capture":
		switch strings.ToLower(fraud) {
		case "accept", "":
			return OutcomeSuccess
		case "challenge":
			return OutcomePending
		}
		return OutcomeFailed
	case "pending", "authorize":
		return OutcomePending
	}
	return OutcomeFailed
}

// ParseWebhook checks signature_key = SHA512(order_id + status_code +
// gross_amount + server key).
func (m *Midtrans) ParseWebhook(_ func(string) string, body []byte) (string, error) {
	var n midtransNotif
	if err := sonic.Unmarshal(body, &n); err != nil {
		return "", fmt.Errorf("midtrans webhook payload: %w", err)
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + m.serverKey))
	want := hex.EncodeToString(sum[:])
	got := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	if got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return "", ErrInvalidSignature
	}
	if n.OrderID == "" {
		return "", errors.New("midtrans webhook without order_id")
	}
	return n.OrderID, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
