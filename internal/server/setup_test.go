package server_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"moneta/internal/app"
	"moneta/internal/config"
	"moneta/internal/logger"
	"moneta/internal/server"
	"moneta/internal/testutil"
	"moneta/internal/validator"
)

const pipelineKey = "test-pipeline-key"

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// testApp holds the full application stack for flow tests.
type testApp struct {
	*app.App
	Router *gin.Engine
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{RecurringConcurrency: 2, RecurringAutoPauseAtEnd: true}
	a := app.NewWithDB(cfg, db)

	router := server.New(a.Services, server.Options{PipelineAPIKey: pipelineKey})
	return &testApp{App: a, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (a *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

// requestWithKey calls an internal endpoint with the pipeline API key.
func (a *testApp) requestWithKey(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", pipelineKey)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

// mustStatus fails the test unless rec has the wanted status, then returns the parsed body.
func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) map[string]interface{} {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(body map[string]interface{}) string {
	errObj, _ := body["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

// registerUser registers a new user and returns the access token.
func (a *testApp) registerUser(t *testing.T, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","first_name":"Test","last_name":"User"}`, email)
	result := mustStatus(t, a.request("POST", "/api/v1/auth/register", body, ""), http.StatusCreated)
	return result["token"].(string)
}

// createResource POSTs body to path and returns the id of the object under key.
func (a *testApp) createResource(t *testing.T, token, path, key, body string) string {
	t.Helper()
	result := mustStatus(t, a.request("POST", path, body, token), http.StatusCreated)
	return result[key].(map[string]interface{})["id"].(string)
}

// setupWorkspace registers an owner and creates a workspace, returning the
// owner's token and the workspace base path.
func (a *testApp) setupWorkspace(t *testing.T, email string) (token, base string) {
	t.Helper()
	token = a.registerUser(t, email)
	wsID := a.createResource(t, token, "/api/v1/workspaces", "workspace", `{"name":"Household"}`)
	return token, "/api/v1/workspaces/" + wsID
}
