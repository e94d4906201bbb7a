// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/browser/static"
	"github.com/xkilldash9x/signup-cli/internal/config"
	"github.com/xkilldash9x/signup-cli/internal/discovery"
)

// -- Mock Implementations for Testing --

// mockSession is a testify mock for schemas.Session.
type mockSession struct {
	mock.Mock
}

func (m *mockSession) Backend() string { return "mock" }

func (m *mockSession) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockSession) PageText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockSession) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	args := m.Called(ctx, loc)
	elements, _ := args.Get(0).([]schemas.Element)
	return elements, args.Error(1)
}

func (m *mockSession) ExecuteScript(ctx context.Context, script string) error {
	return m.Called(ctx, script).Error(0)
}

func (m *mockSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Test Helpers --

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.SubmitWait = 0
	cfg.FindTimeout = 0.05
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) *Orchestrator {
	t.Helper()
	logger := zaptest.NewLogger(t)
	prober := discovery.New(logger, discovery.WithTimings(discovery.Timings{PollInterval: 10 * time.Millisecond}))
	o, err := New(cfg, logger, prober, WithTimings(Timings{}))
	require.NoError(t, err)
	return o
}

// signupSite serves a landing page at "/" and confirmation pages for the form actions.
func signupSite(t *testing.T, landing string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, landing)
	})
	mux.HandleFunc("/thanks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><h2>Thank you, %s!</h2></body></html>", r.FormValue("email"))
	})
	mux.HandleFunc("/silent", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>Request received.</p></body></html>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func attemptOn(t *testing.T, landing string) schemas.AttemptResult {
	t.Helper()
	server := signupSite(t, landing)
	sess := static.New(config.NewDefaultConfig(), zaptest.NewLogger(t))
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return newTestOrchestrator(t, testConfig()).Attempt(context.Background(), sess, server.URL+"/", "reader@example.com")
}

// -- Test Cases --

func TestNewRejectsNilDependencies(t *testing.T) {
	_, err := New(nil, zaptest.NewLogger(t), discovery.New(nil))
	assert.Error(t, err)
}

func TestAttemptStrategies(t *testing.T) {
	testCases := []struct {
		name    string
		landing string
		success bool
		reason  string
	}{
		{
			name: "configured selectors with submit button",
			landing: `<html><body><form action="/thanks" method="post">
				<input type="email" name="email"><button type="submit">Sign up</button>
			</form></body></html>`,
			success: true,
			reason:  schemas.ReasonConfigSelectors,
		},
		{
			name: "configured selectors with native submit",
			landing: `<html><body><form action="/thanks">
				<input type="email" name="email">
			</form></body></html>`,
			success: true,
			reason:  schemas.ReasonInputSubmit,
		},
		{
			name: "heuristic candidate with in-form button",
			landing: `<html><body><form action="/thanks" method="post">
				<input type="text" name="newsletter" placeholder="Your address"><button>Join</button>
			</form></body></html>`,
			success: true,
			reason:  schemas.ReasonConfirmed,
		},
		{
			name:    "no email input",
			landing: `<html><body><p>Nothing to see</p><input type="search" name="q"></body></html>`,
			success: false,
			reason:  schemas.ReasonNoEmailInput,
		},
		{
			name: "submitted without confirmation",
			landing: `<html><body><form action="/silent" method="post">
				<input type="text" id="signup-field"><button>Go</button>
			</form></body></html>`,
			success: false,
			reason:  schemas.ReasonNoConfirmation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := attemptOn(t, tc.landing)
			assert.Equal(t, tc.success, res.Success)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestAttemptWithAlwaysFailingSession(t *testing.T) {
	probeErr := schemas.NewProbeError("probe", schemas.ErrNotInteractable, errors.New("driver gone"))

	t.Run("navigation fails", func(t *testing.T) {
		sess := new(mockSession)
		sess.On("Navigate", mock.Anything, "https://example.com").Return(schemas.NewProbeError("navigate", schemas.ErrNavigation, errors.New("net::ERR_NAME_NOT_RESOLVED")))

		res := newTestOrchestrator(t, testConfig()).Attempt(context.Background(), sess, "https://example.com", "a@b.co")
		assert.False(t, res.Success)
		assert.True(t, strings.HasPrefix(res.Reason, schemas.ReasonNavPrefix), res.Reason)
		assert.Contains(t, res.Reason, "ERR_NAME_NOT_RESOLVED")
		sess.AssertNotCalled(t, "FindElements", mock.Anything, mock.Anything)
	})

	t.Run("every probe fails", func(t *testing.T) {
		sess := new(mockSession)
		sess.On("Navigate", mock.Anything, mock.Anything).Return(nil)
		sess.On("ExecuteScript", mock.Anything, mock.Anything).Return(probeErr)
		sess.On("FindElements", mock.Anything, mock.Anything).Return(nil, probeErr)
		sess.On("PageText", mock.Anything).Return("", probeErr)

		res := newTestOrchestrator(t, testConfig()).Attempt(context.Background(), sess, "https://example.com", "a@b.co")
		assert.False(t, res.Success)
		assert.Equal(t, schemas.ReasonNoEmailInput, res.Reason)
	})
}

func TestAttemptRecoversFromPanics(t *testing.T) {
	sess := new(mockSession)
	sess.On("Navigate", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("driver crashed")
	}).Return(nil)

	res := newTestOrchestrator(t, testConfig()).Attempt(context.Background(), sess, "https://example.com", "a@b.co")
	assert.False(t, res.Success)
	assert.Equal(t, schemas.ReasonExceptionPrefix+"driver crashed", res.Reason)
}

// crashingSession panics on every call, including Backend.
type crashingSession struct {
	mockSession
}

func (*crashingSession) Backend() string { panic("driver crashed") }

func TestAttemptRecoversFromBackendPanic(t *testing.T) {
	sess := new(crashingSession)

	var res schemas.AttemptResult
	require.NotPanics(t, func() {
		res = newTestOrchestrator(t, testConfig()).Attempt(context.Background(), sess, "https://example.com", "a@b.co")
	})
	assert.False(t, res.Success)
	assert.Equal(t, schemas.ReasonExceptionPrefix+"driver crashed", res.Reason)
	sess.AssertNotCalled(t, "Navigate", mock.Anything, mock.Anything)
}

func TestAttemptStopsWhenCanceled(t *testing.T) {
	sess := new(mockSession)
	sess.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	sess.On("ExecuteScript", mock.Anything, mock.Anything).Return(nil)
	sess.On("FindElements", mock.Anything, mock.Anything).Return(nil, nil)
	sess.On("PageText", mock.Anything).Return("", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestOrchestrator(t, testConfig()).Attempt(ctx, sess, "https://example.com", "a@b.co")
	assert.False(t, res.Success)
	assert.Equal(t, schemas.ReasonExceptionPrefix+context.Canceled.Error(), res.Reason)
}
