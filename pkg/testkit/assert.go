package testkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func AssertStatusCode(t *testing.T, s *Scenario, res *Response) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, res.Code,
		"[%s] HTTP status code mismatch\nbody: %s", s.Name, res.Body)
}

// AssertExpectations compares each gjson path of s.Expect with the decoded
// JSON value at that path. JSON null matches a missing path.
func AssertExpectations(t *testing.T, s *Scenario, res *Response) {
	t.Helper()

	for path, raw := range s.Expect {
		var want any
		if err := json.Unmarshal(raw, &want); err != nil {
			t.Errorf("[%s] expect[%q] is not valid JSON: %v", s.Name, path, err)
			continue
		}

		got := res.JSON(path)
		if want == nil {
			assert.False(t, got.Exists() && got.Value() != nil,
				"[%s] %s: want null, got %s", s.Name, path, got.Raw)
			continue
		}
		assert.Equal(t, want, got.Value(), "[%s] %s\nbody: %s", s.Name, path, res.Body)
	}
}
