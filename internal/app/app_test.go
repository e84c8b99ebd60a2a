package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/notify/notifytest"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type harness struct {
	t        *testing.T
	app      *fiber.App
	store    *memory.Store
	locker   persistence.Locker
	cfg      *config.Config
	notifier *notifytest.Recorder
	tokens   map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return now })
	SeedDemo(store)

	cfg := &config.Config{
		App:      config.AppConfig{Name: "helpdesk", Version: "test", RequestTimeoutSeconds: 5},
		Auth:     config.AuthConfig{JWTSecret: "test-secret", Issuer: "helpdesk", AccessTokenTTLMinutes: 5},
		SLA:      config.SLAConfig{WarnRatio: 0.8, SweepChunkSize: 50, CheckpointKey: "sla:checkpoint", LockKey: "sla:lock"},
		Critical: config.CriticalConfig{UserWeight: 2, AreaWeight: 1},
	}
	notifier := &notifytest.Recorder{}
	c := NewContainer(cfg, MemoryRepositories(store), nil, Options{
		Metrics:  observability.NewMetrics(),
		Notifier: notifier,
		Clock:    func() time.Time { return now },
	})

	h := &harness{
		t: t, app: c.NewHTTPApp(HTTPDeps{}), store: store, locker: c.Locker, cfg: cfg,
		notifier: notifier, tokens: map[string]string{},
	}
	for name, user := range map[string]struct {
		id   string
		role domain.Role
	}{
		"admin":     {DemoAdminID, domain.RoleAdmin},
		"tech":      {DemoTechID, domain.RoleTech},
		"requester": {DemoRequesterID, domain.RoleRequester},
	} {
		token, _, err := c.Tokens.GenerateToken(user.id, user.role)
		require.NoError(t, err)
		h.tokens[name] = token
	}
	return h
}

func (h *harness) do(method, path, as string, body any) (int, map[string]any) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+h.tokens[as])
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(h.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = h.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	deps, _ := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])

	status, body = h.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "HTTP_404", errorCode(body))
}

func TestAPIRequiresToken(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodGet, "/api/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodPost, "/api/tickets", "requester", map[string]any{
		"title": "No imprime", "category_id": "hardware", "priority_id": "medium",
	})
	require.Equal(t, http.StatusCreated, status, body)
	ticket := data(body)
	id := ticket["id"].(string)
	assert.Equal(t, "OPEN", ticket["status"])
	assert.Equal(t, "Abierto", ticket["status_label"])

	status, body = h.do(http.MethodPost, "/api/tickets/"+id+"/transition", "requester", map[string]any{"next_status": "in_progress"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = h.do(http.MethodPost, "/api/tickets/"+id+"/assign", "admin", map[string]any{"to_user_id": DemoTechID, "reason": "guardia"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Nil(t, data(body)["from"])
	assert.Equal(t, DemoTechID, data(body)["to"])

	status, body = h.do(http.MethodPost, "/api/tickets/"+id+"/transition", "tech", map[string]any{"next_status": "in_progress", "comment": "revisando"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "IN_PROGRESS", data(body)["status"])
	assert.Equal(t, "En progreso", data(body)["status_label"])

	status, body = h.do(http.MethodPost, "/api/tickets/"+id+"/transition", "admin", map[string]any{"next_status": "CLOSED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(body))

	status, body = h.do(http.MethodGet, "/api/tickets/"+id+"/audit", "admin", nil)
	require.Equal(t, http.StatusOK, status)
	entries, _ := body["data"].([]any)
	assert.Len(t, entries, 3, "CREATE, ASSIGN, STATUS")

	status, body = h.do(http.MethodGet, "/api/tickets/"+id+"/comments", "requester", nil)
	require.Equal(t, http.StatusOK, status)
	comments, _ := body["data"].([]any)
	assert.Len(t, comments, 1)

	status, _ = h.do(http.MethodGet, "/api/tickets/does-not-exist", "admin", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAlertsAndSLACheckOverHTTP(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Tickets().Create(context.Background(), &domain.Ticket{
		ID: "late", Code: "TCK-LATE", Title: "Servidor caído", Kind: domain.TicketKindIncident,
		Status: domain.TicketStatusOpen, CategoryID: "hardware", PriorityID: "high",
		RequesterID: DemoRequesterID, CreatedAt: now.Add(-9 * time.Hour),
	}))

	status, body := h.do(http.MethodGet, "/api/alerts?severity=breach", "admin", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(1), body["count"])
	results, _ := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "late", results[0].(map[string]any)["ticket_id"])

	status, body = h.do(http.MethodGet, "/api/alerts?warn_ratio=abc", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, _ = h.do(http.MethodPost, "/api/sla/check", "tech", map[string]any{})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = h.do(http.MethodPost, "/api/sla/check", "admin", map[string]any{"dry_run": true})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(1), data(body)["breaches"])
	assert.Equal(t, true, data(body)["dry_run"])

	status, body = h.do(http.MethodPost, "/api/sla/check", "admin", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(1), data(body)["breaches"])
	assert.Equal(t, []string{DemoRequesterID}, h.notifier.Recipients())

	status, body = h.do(http.MethodPost, "/api/sla/check", "admin", map[string]any{"warn_ratio": 2})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestSLACheckRespectsSweepLock(t *testing.T) {
	h := newHarness(t)
	release, ok, err := h.locker.TryLock(context.Background(), h.cfg.SLA.LockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	status, body := h.do(http.MethodPost, "/api/sla/check", "admin", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = h.do(http.MethodPost, "/api/sla/check", "admin", map[string]any{"dry_run": true})
	assert.Equal(t, http.StatusOK, status, "dry runs do not take the lock")
	assert.Equal(t, true, data(body)["dry_run"])

	release()
	status, _ = h.do(http.MethodPost, "/api/sla/check", "admin", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = h.do(http.MethodPost, "/api/sla/check", "admin", nil)
	assert.Equal(t, http.StatusOK, status, "the handler releases its lock")
}

func TestAutoAssignRulesOverHTTP(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(http.MethodGet, "/api/auto-assign-rules", "tech", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := h.do(http.MethodPost, "/api/auto-assign-rules", "admin", map[string]any{
		"category_id": "software", "tech_id": DemoTechID,
	})
	require.Equal(t, http.StatusCreated, status, body)
	ruleID := data(body)["id"].(float64)
	assert.NotZero(t, ruleID)

	status, body = h.do(http.MethodPost, "/api/auto-assign-rules", "admin", map[string]any{
		"category_id": "software", "tech_id": DemoAdminID,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = h.do(http.MethodPost, "/api/tickets", "requester", map[string]any{
		"title": "Office no abre", "category_id": "software", "priority_id": "low",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, DemoTechID, data(body)["assigned_to_id"])

	status, _ = h.do(http.MethodPost, "/api/auto-assign-rules/abc/deactivate", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, body = h.do(http.MethodPost, "/api/auto-assign-rules/1/deactivate", "admin", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, data(body)["active"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/health/live", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "helpdesk_http_requests_total")
}
