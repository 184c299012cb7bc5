package helper

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"admissions_backend/internals/helpers/apperr"
)

func TestBuildPagination(t *testing.T) {
	p := BuildPagination(45, Paging{Page: 2, PerPage: 20}, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	empty := BuildPagination(0, Paging{}, 0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Equal(t, 20, empty.PerPage)
	assert.False(t, empty.HasNext)
}

func TestResolvePaging(t *testing.T) {
	var got Paging
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = ResolvePaging(c, 20, 100)
		return nil
	})

	cases := map[string]Paging{
		"/":                      {Page: 1, PerPage: 20, Offset: 0, Limit: 20},
		"/?page=3&per_page=10":   {Page: 3, PerPage: 10, Offset: 20, Limit: 10},
		"/?limit=5":              {Page: 1, PerPage: 5, Offset: 0, Limit: 5},
		"/?page=-1&per_page=500": {Page: 1, PerPage: 100, Offset: 0, Limit: 100},
	}
	for url, want := range cases {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
		require.NoError(t, err)
		assert.Equal(t, want, got, url)
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zaptest.NewLogger(t))})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return apperr.Field("application_email", "email")
	})
	app.Get("/gateway", func(c *fiber.Ctx) error {
		return apperr.New(apperr.ErrGatewayUnavailable, "paystack timed out")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: connection refused")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.ErrMethodNotAllowed
	})

	read := func(path string) (int, ErrorResponse) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		var body ErrorResponse
		require.NoError(t, sonic.Unmarshal(raw, &body))
		return resp.StatusCode, body
	}

	status, body := read("/validation")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION_ERROR", body.ErrorCode)
	assert.Equal(t, []string{"email"}, body.Errors["application_email"])

	status, body = read("/gateway")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.True(t, body.Retryable)

	status, body = read("/boom")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", body.ErrorCode)
	assert.NotContains(t, body.Message, "pq")

	status, body = read("/fiber")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "ERROR", body.ErrorCode)
}
