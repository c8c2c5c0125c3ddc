package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/faceratio/internal/analysis"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/database/mock"
	"github.com/kozaktomas/faceratio/internal/matcher"
	"github.com/kozaktomas/faceratio/internal/scoring"
)

// goldenRatios is the ideal face: every ratio scores 100.
var goldenRatios = RatiosRequest{
	FaceStructure:  1.618,
	RuleOfFifths:   1,
	NasalOral:      1.618,
	VerticalThirds: 1,
	Symmetry:       1,
}

// testNeighbors is the canned reference index answer.
var testNeighbors = []database.Neighbor{
	{ID: "art_david_michelangelo", Score: 1.0, Metadata: database.ReferenceMetadata{Name: "David of Michelangelo", Description: "Perfect golden ratio", Category: "art"}},
	{ID: "celeb_grace_kelly", Score: 0.9996, Metadata: database.ReferenceMetadata{Name: "Grace Kelly", Category: "female"}},
	{ID: "celeb_natalie_portman", Score: 0.9991, Metadata: database.ReferenceMetadata{Name: "Natalie Portman", Category: "female"}},
	{ID: "celeb_alain_delon", Score: 0.9989, Metadata: database.ReferenceMetadata{Name: "Alain Delon", Category: "male"}},
}

// testDeps bundles the in-memory collaborators handlers are built from.
type testDeps struct {
	scans    *mock.MockScanStore
	stats    *mock.MockStatsRecorder
	index    *mock.MockReferenceIndex
	matcher  *matcher.Matcher
	analyzer *analysis.Analyzer
	sessions *analysis.SessionManager
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create scoring engine: %v", err)
	}
	d := &testDeps{
		scans: mock.NewMockScanStore(),
		stats: mock.NewMockStatsRecorder(scoring.ShapeNames(), scoring.ScoreBuckets(), scoring.ScoreBucket),
		index: mock.NewMockReferenceIndex(testNeighbors...),
	}
	d.matcher = matcher.New(d.index, 0)
	d.analyzer = analysis.NewAnalyzer(engine, d.matcher, d.scans, d.stats)
	d.sessions = analysis.NewSessionManager(0, 0, 0, 0)
	return d
}

// jsonRequest builds a request with body marshalled as JSON.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
