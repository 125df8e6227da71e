package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario is one HTTP exchange of a JSON scenario file. A file holds an
// array of scenarios that run in order against the same App, so later
// steps see the state earlier ones left behind:
//
//	[
//	  {
//	    "name": "customer buys two",
//	    "requestMethod": "POST",
//	    "requestUrl": "/api/purchases",
//	    "as": "customer",
//	    "requestBody": {"sweet_id": 1, "quantity": 2},
//	    "expectedCode": 201,
//	    "expect": {"data.total_price": "360.00"}
//	  }
//	]
//
// "as" names an actor registered with Runner.Actor; empty sends no token.
// "expect" maps gjson paths to the JSON value found there.
type Scenario struct {
	Name          string                     `json:"name"`
	RequestMethod string                     `json:"requestMethod"`
	RequestURL    string                     `json:"requestUrl"`
	As            string                     `json:"as"`
	RequestBody   json.RawMessage            `json:"requestBody"`
	Headers       map[string]string          `json:"headers"`
	ExpectedCode  int                        `json:"expectedCode"`
	Expect        map[string]json.RawMessage `json:"expect"`
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	return nil
}

// LoadScenarios reads and validates a scenario array.
func LoadScenarios(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var scenarios []*Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	for i, s := range scenarios {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %s[%d]: %w", filepath.Base(abs), i, err)
		}
	}
	return scenarios, nil
}
