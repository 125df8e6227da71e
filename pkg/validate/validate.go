// Package validate runs struct-tag validation on request payloads.
//
// Rules are comma-separated in the `validate` tag:
//
//	required            field must not be zero/empty
//	nullable            if empty, skip the remaining rules
//	email               valid email address
//	url                 http or https URL
//	alpha_dash          letters, digits, hyphens, underscores
//	min=N / max=N       string length, or numeric value
//	gt=N gte=N lt=N lte=N
//	between=a,b         numeric value or string length, inclusive
//	in=a,b,c            value must be one of the listed items
//
// Pointer fields are dereferenced; a nil pointer counts as empty.
//
//	type PurchaseInput struct {
//	    SweetID  uint `json:"sweet_id" validate:"required,gt=0"`
//	    Quantity int  `json:"quantity" validate:"required,gt=0"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Struct validates every exported field of v carrying a `validate` tag and
// returns field name (json) to message. Only the first failing rule per field
// is reported.
func Struct(v any) map[string]string {
	errs := make(map[string]string)

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" || !field.IsExported() {
			continue
		}

		name := jsonFieldName(field)
		value := rv.Field(i)
		rules := splitRules(tag)

		if isEmpty(value) && hasRule(rules, "nullable") {
			continue
		}
		for value.Kind() == reflect.Ptr && !value.IsNil() {
			value = value.Elem()
		}

		for _, rule := range rules {
			if rule == "nullable" {
				continue
			}
			if msg := apply(rule, name, value); msg != "" {
				errs[name] = msg
				break
			}
		}
	}

	return errs
}

func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func apply(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	raw := ""
	if v.IsValid() && v.Kind() != reflect.Ptr {
		raw = fmt.Sprintf("%v", v.Interface())
	}

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "alpha_dash":
		for _, c := range raw {
			if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' {
				return fmt.Sprintf("The %s may only contain letters, numbers, dashes and underscores.", field)
			}
		}
	case "min":
		n := parseFloat(param)
		if isNumeric(v) && toFloat(v) < n {
			return fmt.Sprintf("The %s must be at least %s.", field, param)
		}
		if !isNumeric(v) && float64(len([]rune(raw))) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
	case "max":
		n := parseFloat(param)
		if isNumeric(v) && toFloat(v) > n {
			return fmt.Sprintf("The %s must not be greater than %s.", field, param)
		}
		if !isNumeric(v) && float64(len([]rune(raw))) > n {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
	case "gt":
		if toFloat(v) <= parseFloat(param) {
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		}
	case "gte":
		if toFloat(v) < parseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "lt":
		if toFloat(v) >= parseFloat(param) {
			return fmt.Sprintf("The %s must be less than %s.", field, param)
		}
	case "lte":
		if toFloat(v) > parseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "between":
		lo, hi, ok := strings.Cut(param, ",")
		if !ok {
			return ""
		}
		n := float64(len([]rune(raw)))
		if isNumeric(v) {
			n = toFloat(v)
		}
		if n < parseFloat(lo) || n > parseFloat(hi) {
			return fmt.Sprintf("The %s must be between %s and %s.", field, lo, hi)
		}
	case "in":
		for _, allowed := range strings.Split(param, ",") {
			if raw == strings.TrimSpace(allowed) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}

	return ""
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Invalid:
		return true
	}
	return false
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return 0
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

var knownRules = []string{
	"required", "nullable", "email", "url", "alpha_dash",
	"min=", "max=", "gt=", "gte=", "lt=", "lte=", "between=", "in=",
}

// splitRules splits on commas but keeps list parameters together:
// "required,in=admin,customer,max=10" gives
// ["required", "in=admin,customer", "max=10"].
func splitRules(tag string) []string {
	var rules []string
	for _, tok := range strings.Split(tag, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if len(rules) > 0 && !isRuleStart(tok) && strings.Contains(rules[len(rules)-1], "=") {
			rules[len(rules)-1] += "," + tok
			continue
		}
		rules = append(rules, tok)
	}
	return rules
}

func isRuleStart(tok string) bool {
	for _, k := range knownRules {
		if tok == k || (strings.HasSuffix(k, "=") && strings.HasPrefix(tok, k)) {
			return true
		}
	}
	return false
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if r == target {
			return true
		}
	}
	return false
}
