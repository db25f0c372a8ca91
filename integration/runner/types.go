package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name   string     `json:"name"`
	Player string     `json:"player,omitempty"` // owner of ending progress; a fresh one per run when empty
	Steps  []TestStep `json:"steps,omitempty"`  // Used for regular tests
	Cases  []string   `json:"cases,omitempty"`  // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one player action and its expected outcome. Exactly one of
// Choose and Goto is set; a step with neither only checks expectations.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Choose       *int         `json:"choose,omitempty"`
	Goto         string       `json:"goto,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status       int     `json:"status,omitempty"` // HTTP status; 200 when zero
	Scene        *string `json:"scene,omitempty"`
	PrevScene    *string `json:"prev_scene,omitempty"`
	Title        *string `json:"title,omitempty"`
	RuntimeError *bool   `json:"runtime_error,omitempty"`

	PassageContains    []string `json:"passage_contains,omitempty"`
	PassageNotContains []string `json:"passage_not_contains,omitempty"`
	PassageRegex       string   `json:"passage_regex,omitempty"`

	// Options lists the labels of choosable options, in order.
	Options         []string `json:"options,omitempty"`
	AchievedEndings []string `json:"achieved_endings,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName    string
	StepName    string
	Success     bool
	Error       error
	Duration    time.Duration
	PassageText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	GameID   uuid.UUID
	Duration time.Duration
	Error    error
}
