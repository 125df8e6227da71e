// Package ctx provides the request context handlers are written against.
//
// Instead of (http.ResponseWriter, *http.Request), a handler receives a
// single *Context:
//
//	func (c *SweetController) Show(cx *ctx.Context) {
//	    id, err := cx.ParamUint("id")
//	    ...
//	    cx.Success(resources.NewSweetDetail(sweet))
//	}
//
//	api.Get("/sweets/{id}", "sweets.show", ctx.Wrap(sweets.Show))
package ctx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/bind"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/response"
)

type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ParamUint parses a positive integer path parameter such as {id}.
func (c *Context) ParamUint(key string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Field(key, "The "+key+" must be a positive integer.")
	}
	return uint(n), nil
}

func (c *Context) Query(key string) string {
	return strings.TrimSpace(c.R.URL.Query().Get(key))
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// ClientIP returns the client address. See the package-level ClientIP.
func (c *Context) ClientIP() string {
	return ClientIP(c.R)
}

func (c *Context) Context() context.Context { return c.R.Context() }

// BindJSON decodes and validates the body into dest. When it returns false
// the error response has already been written.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	switch {
	case errors.Is(err, bind.ErrEmptyBody):
		c.ValidationError(map[string]string{"body": "The request body is required."})
		return false
	case err != nil:
		c.Error(http.StatusBadRequest, err.Error())
		return false
	case len(errs) > 0:
		c.ValidationError(errs)
		return false
	}
	return true
}

func (c *Context) JSON(code int, body response.Envelope) {
	c.status = code
	response.Write(c.W, code, body)
}

func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, response.Envelope{Status: http.StatusOK, Data: data})
}

func (c *Context) Created(data any) {
	c.JSON(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Data: data})
}

// Message sends a 200 carrying only a message.
func (c *Context) Message(message string) {
	c.JSON(http.StatusOK, response.Envelope{Status: http.StatusOK, Message: message})
}

func (c *Context) Error(code int, message string) {
	c.JSON(code, response.Envelope{Status: code, Message: message})
}

func (c *Context) ValidationError(errs map[string]string) {
	c.status = http.StatusUnprocessableEntity
	response.ValidationError(c.W, "", errs)
}

// Fail renders err according to its apperr kind. Store failures and errors
// outside the taxonomy are logged and answered with a generic 500.
func (c *Context) Fail(err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindDatabase {
		logger.WithCtx(c.Context()).Error("request failed",
			"method", c.R.Method,
			"path", c.R.URL.Path,
			"error", err.Error(),
		)
		c.Error(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if e.Kind == apperr.KindValidation {
		c.status = http.StatusUnprocessableEntity
		response.ValidationError(c.W, e.Message, e.Fields)
		return
	}
	c.Error(e.Kind.Status(), e.Message)
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
