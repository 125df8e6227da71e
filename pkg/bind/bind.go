// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/shashiranjanraj/mithai/config"
	"github.com/shashiranjanraj/mithai/pkg/validate"
)

// ErrEmptyBody is returned for requests without a JSON body.
var ErrEmptyBody = errors.New("request body is empty")

// JSON decodes r.Body into dest and runs validation. The body is capped at
// MAX_BODY_BYTES.
//
// Returns (errs, nil) on validation failures, including well-formed JSON of
// the wrong type for a field, and (nil, err) when the body is missing,
// malformed or too large.
func JSON(r *http.Request, dest any) (map[string]string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, ErrEmptyBody
	}
	r.Body = http.MaxBytesReader(nil, r.Body, config.MaxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var (
			maxErr  *http.MaxBytesError
			typeErr *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return map[string]string{typeErr.Field: typeMessage(typeErr)}, nil
		case errors.As(err, &typeErr):
			return nil, errors.New("invalid JSON: body must be a JSON object")
		case errors.As(err, &maxErr):
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return nil, ErrEmptyBody
		default:
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

// typeMessage names the expected JSON type without exposing Go types.
func typeMessage(e *json.UnmarshalTypeError) string {
	want := "a valid value"
	switch e.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		want = "an integer"
	case reflect.Float32, reflect.Float64:
		want = "a number"
	case reflect.String:
		want = "a string"
	case reflect.Bool:
		want = "true or false"
	case reflect.Slice, reflect.Array:
		want = "a list"
	case reflect.Map, reflect.Struct:
		want = "an object"
	}
	return fmt.Sprintf("The %s must be %s.", e.Field, want)
}
