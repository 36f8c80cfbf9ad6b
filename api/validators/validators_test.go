package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

type paymentBody struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Note   *string         `json:"note" validate:"omitempty,max=5"`
}

func bodyRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	var dest paymentBody
	require.NoError(t, DecodeJSONBody(bodyRequest(`{"amount":"12.50","note":"cash"}`), &dest))
	assert.True(t, dest.Amount.Equal(decimal.RequireFromString("12.5")))
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"empty":          {"", "request body is empty"},
		"unknown field":  {`{"amount":"1","extra":1}`, "invalid request body"},
		"trailing value": {`{"amount":"1"}{"amount":"2"}`, "request body must contain a single JSON value"},
		"zero decimal":   {`{"amount":"0"}`, "validation failed"},
		"long note":      {`{"amount":"1","note":"too long"}`, "validation failed"},
		"too large":      {`{"note":"` + strings.Repeat("x", MaxBodyBytes) + `"}`, "request body too large"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var dest paymentBody
			err := DecodeJSONBody(bodyRequest(tc.body), &dest)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			assert.Equal(t, tc.message, pkgerrors.As(err).Message())
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	var dest paymentBody
	err := DecodeJSONBody(bodyRequest(`{"amount":"-1","note":"abcdefg"}`), &dest)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be greater than 0", details["amount"])
	assert.Equal(t, "must be at most 5", details["note"])
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"  rice  ", 0, "rice"},
		{"basmati \t\n rice", 0, "basmati rice"},
		{"a\x00b", 0, "ab"},
		{"héllo wörld", 5, "héllo"},
		{"ab cd", 3, "ab"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeString(tc.in, tc.maxLen), tc.in)
	}
}

func TestAccessToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, AccessToken(req))

	req.Header.Set(TokenHeader, " fallback ")
	assert.Equal(t, "fallback", AccessToken(req))

	req.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", AccessToken(req))

	req.Header.Set("Authorization", "raw-token")
	assert.Equal(t, "raw-token", AccessToken(req))
}

func TestParseQueryDateEndOfDay(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=2026-03-01", nil)
	from, err := ParseQueryDate(req, "from", false)
	require.NoError(t, err)
	to, err := ParseQueryDate(req, "to", true)
	require.NoError(t, err)
	assert.Equal(t, 0, from.Hour())
	assert.Equal(t, 23, to.Hour())
	assert.True(t, to.After(*from))

	bad := httptest.NewRequest(http.MethodGet, "/?from=03/01/2026", nil)
	_, err = ParseQueryDate(bad, "from", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
