package testkit

import (
	"path/filepath"
	"strings"
	"testing"
)

// Runner replays scenario files against an App.
type Runner struct {
	app    *App
	tokens map[string]string
}

func NewRunner(app *App) *Runner {
	return &Runner{app: app, tokens: make(map[string]string)}
}

// Actor registers the token sent for scenarios with "as": name.
func (r *Runner) Actor(name, token string) *Runner {
	r.tokens[name] = token
	return r
}

// Run executes every scenario of one file as ordered subtests.
func (r *Runner) Run(t *testing.T, path string) {
	t.Helper()

	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) { r.runScenario(t, s) })
	}
}

// RunDir runs every *.json file in dir, each as its own subtest.
func (r *Runner) RunDir(t *testing.T, dir string) {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		t.Run(name, func(t *testing.T) { r.Run(t, path) })
	}
}

func (r *Runner) runScenario(t *testing.T, s *Scenario) {
	t.Helper()

	token := ""
	if s.As != "" {
		var ok bool
		if token, ok = r.tokens[s.As]; !ok {
			t.Fatalf("[%s] unknown actor %q", s.Name, s.As)
		}
	}

	var body any
	if len(s.RequestBody) > 0 {
		body = []byte(s.RequestBody)
	}
	res := r.app.Do(t, strings.ToUpper(s.RequestMethod), s.RequestURL, body, token)

	AssertStatusCode(t, s, res)
	AssertExpectations(t, s, res)
}
