package ctx_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/mithai/pkg/apperr"
	appctx "github.com/shashiranjanraj/mithai/pkg/ctx"
)

func serve(h appctx.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
	}
	appctx.Wrap(h)(rec, req)
	return rec
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		c.Success(map[string]any{"id": 1})
	}, http.MethodGet, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"data":{"id":1}}`, rec.Body.String())
}

func TestEmptySliceIsKept(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		c.Success([]string{})
	}, http.MethodGet, "")

	assert.JSONEq(t, `{"status":200,"data":[]}`, rec.Body.String())
}

type quantityInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

func TestBindJSON(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{"valid", `{"quantity":2}`, http.StatusOK},
		{"invalid value", `{"quantity":-1}`, http.StatusUnprocessableEntity},
		{"empty body", ``, http.StatusUnprocessableEntity},
		{"fractional number", `{"quantity":2.5}`, http.StatusUnprocessableEntity},
		{"string for integer", `{"quantity":"two"}`, http.StatusUnprocessableEntity},
		{"malformed", `{"quantity":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(func(c *appctx.Context) {
				var in quantityInput
				if !c.BindJSON(&in) {
					return
				}
				c.Success(in)
			}, http.MethodPost, tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{apperr.NotFound("Sweet not found"), http.StatusNotFound, "Sweet not found"},
		{fmt.Errorf("wrap: %w", apperr.Conflict("Insufficient stock available")), http.StatusBadRequest, "Insufficient stock available"},
		{apperr.Unauthorized("Token expired"), http.StatusUnauthorized, "Token expired"},
		{apperr.Forbidden("Admin access required"), http.StatusForbidden, "Admin access required"},
		{apperr.Database(errors.New("boom")), http.StatusInternalServerError, "Internal Server Error"},
		{errors.New("unclassified"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		rec := serve(func(c *appctx.Context) { c.Fail(tc.err) }, http.MethodGet, "")
		assert.Equal(t, tc.code, rec.Code)
		assert.Contains(t, rec.Body.String(), tc.msg)
		assert.NotContains(t, rec.Body.String(), "boom")
	}
}

func TestFailValidationCarriesFields(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		c.Fail(apperr.Field("rating", "The rating must be between 1 and 5."))
	}, http.MethodPost, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"status":422,"message":"The rating must be between 1 and 5.","errors":{"rating":"The rating must be between 1 and 5."}}`, rec.Body.String())
}

func TestParamUint(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sweets/{id}", appctx.Wrap(func(c *appctx.Context) {
		id, err := c.ParamUint("id")
		if err != nil {
			c.Fail(err)
			return
		}
		c.Success(id)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sweets/42", nil))
	assert.JSONEq(t, `{"status":200,"data":42}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sweets/abc", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestClientIP(t *testing.T) {
	t.Cleanup(func() { _ = appctx.TrustProxies(nil) })

	newReq := func(remote, fwd, real string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if fwd != "" {
			req.Header.Set("X-Forwarded-For", fwd)
		}
		if real != "" {
			req.Header.Set("X-Real-Ip", real)
		}
		return req
	}

	require.NoError(t, appctx.TrustProxies(nil))
	assert.Equal(t, "10.0.0.9", appctx.ClientIP(newReq("10.0.0.9:5123", "", "")))
	assert.Equal(t, "198.51.100.4", appctx.ClientIP(newReq("198.51.100.4:5123", "203.0.113.7", "203.0.113.8")),
		"forwarding headers from an untrusted peer are ignored")

	require.NoError(t, appctx.TrustProxies([]string{"10.0.0.0/8", " 127.0.0.1 "}))
	cases := []struct {
		name, remote, fwd, real, want string
	}{
		{"untrusted peer", "198.51.100.4:5123", "203.0.113.7", "", "198.51.100.4"},
		{"single hop", "10.0.0.9:5123", "203.0.113.7", "", "203.0.113.7"},
		{"spoofed first hop", "10.0.0.9:5123", "1.2.3.4, 203.0.113.7", "", "203.0.113.7"},
		{"chain of proxies", "127.0.0.1:5123", "203.0.113.7, 10.0.0.2, 10.0.0.1", "", "203.0.113.7"},
		{"all hops trusted", "10.0.0.9:5123", "10.0.0.3, 10.0.0.2", "", "10.0.0.3"},
		{"malformed hop", "10.0.0.9:5123", "203.0.113.7, nonsense", "", "10.0.0.9"},
		{"real ip header", "10.0.0.9:5123", "", "203.0.113.8", "203.0.113.8"},
		{"no headers", "10.0.0.9:5123", "", "", "10.0.0.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, appctx.ClientIP(newReq(tc.remote, tc.fwd, tc.real)))
		})
	}

	assert.Error(t, appctx.TrustProxies([]string{"10.0.0.0/33"}))
	assert.Equal(t, "10.0.0.9", appctx.ClientIP(newReq("10.0.0.9:5123", "203.0.113.7", "")),
		"an invalid list trusts nobody")
}
