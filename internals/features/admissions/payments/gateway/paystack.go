package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

const paystackSignatureHeader = "x-paystack-signature"

// Paystack implements Gateway over the Paystack REST API. Amounts are sent
// in kobo.
type Paystack struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

func NewPaystack(secretKey, baseURL string, timeout time.Duration) *Paystack {
	return &Paystack{
		SecretKey: secretKey,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Timeout:   timeout,
	}
}

func (p *Paystack) Name() string { return "paystack" }

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID              int64      `json:"id"`
		Status          string     `json:"status"`
		Reference       string     `json:"reference"`
		Amount          int64      `json:"amount"`
		Currency        string     `json:"currency"`
		PaidAt          *time.Time `json:"paid_at"`
		GatewayResponse string     `json:"gateway_response"`
	} `json:"data"`
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

func (p *Paystack) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	body := fiber.Map{
		"reference": req.Reference,
		"amount":    ToMinorUnits(req.Amount),
		"email":     req.Email,
		"currency":  req.Currency,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var out paystackInitResponse
	code, err := p.send(ctx, fiber.Post(p.BaseURL+"/transaction/initialize"), body, &out)
	if err != nil {
		return nil, err
	}
	if !out.Status || code >= fiber.StatusBadRequest {
		return nil, fmt.Errorf("paystack initialize: status %d: %s", code, out.Message)
	}
	ref := out.Data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &InitResult{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		GatewayReference: ref,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	var out paystackVerifyResponse
	code, err := p.send(ctx, fiber.Get(p.BaseURL+"/transaction/verify/"+url.PathEscape(reference)), nil, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case code == fiber.StatusUnauthorized || code == fiber.StatusForbidden:
		return nil, fmt.Errorf("paystack verify: status %d: %s", code, out.Message)
	case !out.Status:
		// unknown reference: checkout was never opened
		return &VerifyResult{Outcome: OutcomePending, Status: "not_found", Message: out.Message}, nil
	}

	res := &VerifyResult{
		Outcome:          paystackOutcome(out.Data.Status),
		Status:           out.Data.Status,
		Message:          out.Data.GatewayResponse,
		Amount:           FromMinorUnits(out.Data.Amount),
		AmountScale:      2,
		HasAmount:        true,
		GatewayReference: out.Data.Reference,
		PaidAt:           out.Data.PaidAt,
	}
	return res, nil
}

func paystackOutcome(status string) Outcome {
	switch strings.ToLower(status) {
	case "success":
		return OutcomeSuccess
	case "abandoned", "ongoing", "pending", "processing", "queued":
		return OutcomePending
	}
	return OutcomeFailed
}

// ParseWebhook checks the HMAC-SHA512 of the raw body against
// x-paystack-signature.
func (p *Paystack) ParseWebhook(header func(string) string, body []byte) (string, error) {
	sig := strings.TrimSpace(header(paystackSignatureHeader))
	if sig == "" || !validHMAC512(p.SecretKey, body, sig) {
		return "", ErrInvalidSignature
	}
	var ev paystackEvent
	if err := sonic.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("paystack webhook payload: %w", err)
	}
	if ev.Data.Reference == "" {
		return "", errors.New("paystack webhook without reference")
	}
	return ev.Data.Reference, nil
}

// send runs a request with the bearer key and decodes the JSON body into
// out. Transport failures and 5xx answers come back as errors.
func (p *Paystack) send(ctx context.Context, a *fiber.Agent, body any, out any) (int, error) {
	timeout, err := timeoutFor(ctx, p.Timeout)
	if err != nil {
		fiber.ReleaseAgent(a)
		return 0, err
	}
	a.JSONEncoder(sonic.Marshal).
		Set(fiber.HeaderAuthorization, "Bearer "+p.SecretKey).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(timeout)
	if body != nil {
		a.JSON(body)
	}
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, fmt.Errorf("paystack request: %w", err)
	}

	code, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return code, fmt.Errorf("paystack request: %w", errors.Join(errs...))
	}
	if code >= fiber.StatusInternalServerError {
		return code, fmt.Errorf("paystack: upstream status %d", code)
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return code, fmt.Errorf("paystack response: %w", err)
	}
	return code, nil
}

func validHMAC512(secret string, body []byte, sigHex string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(body)
	want := mac.Sum(nil)
	got, err := hex.DecodeString(strings.ToLower(sigHex))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

func signHMAC512(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
