package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/scene-engine/internal/handlers"
	"github.com/jwebster45206/scene-engine/pkg/ftm"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running scene-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite creates a game and plays every step of suite against it.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	player := suite.Player
	if player == "" {
		// Ending progress is per player; keep runs independent.
		player = "it-" + uuid.NewString()
	}

	game, status, err := r.do(ctx, http.MethodPost, "/v1/games", handlers.CreateGameRequest{Player: player})
	if err == nil && status != http.StatusCreated {
		err = fmt.Errorf("create game returned %d", status)
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = game.ID
	defer func() {
		_, _, _ = r.do(context.Background(), http.MethodDelete, "/v1/games/"+game.ID.String(), nil)
	}()

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, game.ID, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	path := "/v1/games/" + gameID.String()
	var (
		game   *handlers.GameResponse
		status int
		err    error
	)
	switch {
	case step.Choose != nil && step.Goto != "":
		err = fmt.Errorf("step sets both choose and goto")
	case step.Choose != nil:
		game, status, err = r.do(ctx, http.MethodPost, path+"/choose", handlers.ChooseRequest{Index: step.Choose})
	case step.Goto != "":
		game, status, err = r.do(ctx, http.MethodPost, path+"/goto", handlers.GotoRequest{To: step.Goto})
	default:
		game, status, err = r.do(ctx, http.MethodGet, path, nil)
	}
	if err == nil {
		err = checkExpectations(step.Expectations, status, game)
	}
	if game != nil {
		result.PassageText = ftm.Plain(game.View.Passage)
	}

	result.Error = err
	result.Success = err == nil
	result.Duration = time.Since(start)
	return result
}

// do sends body as JSON. A non-2xx status is returned without error and a
// nil game.
func (r *Runner) do(ctx context.Context, method, path string, body any) (*handlers.GameResponse, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 || resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, nil
	}

	var game handlers.GameResponse
	if err := json.NewDecoder(resp.Body).Decode(&game); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode game response: %w", err)
	}
	return &game, resp.StatusCode, nil
}

// checkExpectations validates the step outcome. Only the status is checked
// when a non-200 status is expected.
func checkExpectations(exp Expectations, status int, game *handlers.GameResponse) error {
	wantStatus := exp.Status
	if wantStatus == 0 {
		wantStatus = http.StatusOK
	}
	if status != wantStatus {
		return fmt.Errorf("expected status %d, got %d", wantStatus, status)
	}
	if game == nil {
		return nil
	}
	view := game.View

	if exp.Scene != nil && view.SceneID != *exp.Scene {
		return fmt.Errorf("expected scene %s, got %s", *exp.Scene, view.SceneID)
	}
	if exp.PrevScene != nil && view.PrevScene != *exp.PrevScene {
		return fmt.Errorf("expected prev_scene %s, got %s", *exp.PrevScene, view.PrevScene)
	}
	if exp.Title != nil && view.Title != *exp.Title {
		return fmt.Errorf("expected title %q, got %q", *exp.Title, view.Title)
	}
	if exp.RuntimeError != nil && (game.RuntimeError != nil) != *exp.RuntimeError {
		return fmt.Errorf("expected runtime_error %t, got %+v", *exp.RuntimeError, game.RuntimeError)
	}

	passage := ftm.Plain(view.Passage)
	if view.Ending != nil {
		passage = ftm.PlainRuns(view.Ending.Title) + "\n\n" + ftm.Plain(view.Ending.Description) + "\n\n" + passage
	}
	lowerPassage := strings.ToLower(passage)
	for _, want := range exp.PassageContains {
		if !strings.Contains(lowerPassage, strings.ToLower(want)) {
			return fmt.Errorf("expected passage to contain '%s', got %q", want, passage)
		}
	}
	for _, unwanted := range exp.PassageNotContains {
		if strings.Contains(lowerPassage, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected passage to NOT contain '%s', but it did", unwanted)
		}
	}
	if exp.PassageRegex != "" {
		matched, err := regexp.MatchString(exp.PassageRegex, passage)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("passage didn't match regex pattern: %s", exp.PassageRegex)
		}
	}

	if exp.Options != nil {
		var labels []string
		for _, o := range view.Options {
			if !o.Separator && !o.Disabled {
				labels = append(labels, ftm.PlainRuns(o.Label))
			}
		}
		if !slices.Equal(labels, exp.Options) {
			return fmt.Errorf("expected options %v, got %v", exp.Options, labels)
		}
	}

	if exp.AchievedEndings != nil && !slices.Equal(view.AchievedEndings, exp.AchievedEndings) {
		return fmt.Errorf("expected achieved endings %v, got %v", exp.AchievedEndings, view.AchievedEndings)
	}

	return nil
}
