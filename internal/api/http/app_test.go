package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/config"
	"github.com/spec-kit/sales-crm/internal/observability"
	"github.com/spec-kit/sales-crm/internal/persistence"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
)

func newTestApp(t *testing.T, loginRate string) *fiber.App {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	collections := repository.NewCollections(persistence.NewMemoryStore(), "salescrm_", 0, zap.NewNop())
	if err := collections.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	metrics := observability.NewMetrics()
	manager := realtime.NewManager(collections, zap.NewNop(), metrics, realtime.Options{})
	t.Cleanup(manager.Stop)

	cfg := &config.Config{
		App:        config.AppConfig{Name: "sales-crm-test", Version: "test"},
		Store:      config.StoreConfig{Backend: "memory", Namespace: "salescrm_"},
		Auth:       config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5},
		Attendance: config.AttendanceConfig{LateAfter: "09:30"},
		RateLimit:  config.RateLimitConfig{Login: loginRate},
	}
	app, err := NewApp(ctx, Dependencies{
		Config:      cfg,
		Collections: collections,
		Sync:        manager,
		Logger:      zap.NewNop(),
		Metrics:     metrics,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func login(t *testing.T, app *fiber.App, employeeID, password string) string {
	t.Helper()
	resp, body := do(t, app, nethttp.MethodPost, "/auth/login", "", `{"employeeId":"`+employeeID+`","password":"`+password+`"}`)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("login %s: status %d body %v", employeeID, resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	if _, leaked := user["password"]; leaked {
		t.Fatal("login response leaked the password")
	}
	return data["auth"].(map[string]any)["token"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, "100-M")
	if resp, _ := do(t, app, nethttp.MethodGet, "/health/live", "", ""); resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("live: %d", resp.StatusCode)
	}
	if resp, body := do(t, app, nethttp.MethodGet, "/health/ready", "", ""); resp.StatusCode != nethttp.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready: %d %v", resp.StatusCode, body)
	}
	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	if err != nil || resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("metrics: %v %v", resp, err)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, "100-M")
	resp, body := do(t, app, nethttp.MethodGet, "/employees", "", "")
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestLoginFailureIsOpaque(t *testing.T) {
	app := newTestApp(t, "100-M")
	resp, body := do(t, app, nethttp.MethodPost, "/auth/login", "", `{"employeeId":"EMP001","password":"nope"}`)
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %v", resp.StatusCode, body)
	}
}

func TestRoleScopedEndpoints(t *testing.T) {
	app := newTestApp(t, "100-M")
	empToken := login(t, app, "EMP001", "emp123")
	mgrToken := login(t, app, "MGR001", "manager123")
	adminToken := login(t, app, "ADMIN001", "admin123")

	_, body := do(t, app, nethttp.MethodGet, "/employees", empToken, "")
	if n := len(body["data"].([]any)); n != 1 {
		t.Fatalf("employee should see only self, got %d", n)
	}
	_, body = do(t, app, nethttp.MethodGet, "/employees", mgrToken, "")
	if n := len(body["data"].([]any)); n != 3 {
		t.Fatalf("manager should see self and two reports, got %d", n)
	}

	resp, body := do(t, app, nethttp.MethodPost, "/sales", empToken, `{"productName":"CRM","customer":"Acme","quantity":2,"unitPrice":100,"discount":1,"totalAmount":5}`)
	if resp.StatusCode != nethttp.StatusCreated {
		t.Fatalf("create sale: %d %v", resp.StatusCode, body)
	}
	if total := body["data"].(map[string]any)["totalAmount"].(float64); total != 199 {
		t.Fatalf("total must be derived, got %v", total)
	}

	_, body = do(t, app, nethttp.MethodGet, "/sales", mgrToken, "")
	if n := len(body["data"].([]any)); n != 1 {
		t.Fatalf("manager should see the report's sale, got %d", n)
	}

	if resp, _ := do(t, app, nethttp.MethodGet, "/integrity/validate", empToken, ""); resp.StatusCode != nethttp.StatusForbidden {
		t.Fatalf("employee integrity access: %d", resp.StatusCode)
	}
	resp, body = do(t, app, nethttp.MethodGet, "/integrity/validate", adminToken, "")
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("admin integrity: %d %v", resp.StatusCode, body)
	}

	if resp, _ := do(t, app, nethttp.MethodDelete, "/employees/EMP002", mgrToken, ""); resp.StatusCode != nethttp.StatusForbidden {
		t.Fatalf("manager delete: %d", resp.StatusCode)
	}

	_, body = do(t, app, nethttp.MethodGet, "/sync/stats", adminToken, "")
	stats := body["data"].(map[string]any)
	if stats["totalUpdates"].(float64) < 1 {
		t.Fatalf("expected logged updates, got %v", stats)
	}
}

func TestCSVExportEndpoint(t *testing.T) {
	app := newTestApp(t, "100-M")
	token := login(t, app, "EMP003", "emp123")

	resp, body := do(t, app, nethttp.MethodGet, "/exports/sales", token, "")
	if resp.StatusCode != nethttp.StatusUnprocessableEntity {
		t.Fatalf("empty export: %d %v", resp.StatusCode, body)
	}

	req := httptest.NewRequest(nethttp.MethodGet, "/exports/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if resp.StatusCode != nethttp.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected export response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "users_export_") {
		t.Fatalf("missing attachment filename: %s", resp.Header.Get("Content-Disposition"))
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	app := newTestApp(t, "2-M")
	for i := 0; i < 2; i++ {
		do(t, app, nethttp.MethodPost, "/auth/login", "", `{"employeeId":"EMP001","password":"nope"}`)
	}
	resp, body := do(t, app, nethttp.MethodPost, "/auth/login", "", `{"employeeId":"EMP001","password":"emp123"}`)
	if resp.StatusCode != nethttp.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %v", resp.StatusCode, body)
	}
}
