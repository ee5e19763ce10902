package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlpanel/internal/database"
	"sqlpanel/internal/middleware"
	"sqlpanel/internal/model"
	"sqlpanel/internal/publisher"
	"sqlpanel/internal/quota"
	"sqlpanel/internal/render"
	"sqlpanel/internal/repository"
	"sqlpanel/internal/security"
	"sqlpanel/internal/service"
	"sqlpanel/internal/storage"
	"sqlpanel/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const mysqlConnection = `{"engine_type":"MySQL","host":"db","port":3306,"username":"reader","secret":"pw"}`

type stubConnector struct {
	result   *model.ExecutionResult
	err      error
	executed int
}

func (s *stubConnector) TestConnection(context.Context) bool { return s.err == nil }

func (s *stubConnector) Execute(context.Context, string, string) (*model.ExecutionResult, error) {
	s.executed++
	return s.result, s.err
}

func (s *stubConnector) ListDatabases(context.Context) ([]string, error) {
	return []string{"shop"}, s.err
}

func (s *stubConnector) GetSchema(context.Context, string) ([]model.TableSchema, error) {
	return []model.TableSchema{{Name: "orders", Kind: model.TableKindTable, Columns: []model.ColumnSchema{}}}, s.err
}

func (s *stubConnector) Kind() model.EngineKind { return model.EngineMySQL }

func (s *stubConnector) Stats() database.PoolStats { return database.PoolStats{} }

func (s *stubConnector) Close() error { return nil }

type stubProvider struct{ conn *stubConnector }

func (p stubProvider) Get(*model.ConnectionDescriptor) (database.Connector, error) {
	return p.conn, nil
}

type memoryStore struct{}

func (memoryStore) UploadDocument(_ context.Context, data []byte, name string) (*storage.UploadResult, error) {
	key := storage.ObjectName("", name, time.Now())
	return &storage.UploadResult{Key: key, URL: "https://cdn/" + key, Size: int64(len(data))}, nil
}

type memoryPanels struct {
	panels map[string]*model.Panel
	now    time.Time
}

func (m *memoryPanels) Create(_ context.Context, target string, spec model.PanelSpec) (*model.PanelHandle, error) {
	p := &model.Panel{TargetURL: target, OwnerID: spec.OwnerID, Title: spec.Title, Visibility: spec.Visibility}
	if err := p.BeforeCreate(nil); err != nil {
		return nil, err
	}
	m.panels[p.ID] = p
	return &model.PanelHandle{ID: p.ID, URL: "http://panels/p/" + p.ID}, nil
}

func (m *memoryPanels) GetByID(_ context.Context, id string) (*model.Panel, error) {
	p, ok := m.panels[id]
	if !ok {
		return nil, repository.ErrPanelNotFound
	}
	return p, nil
}

func (m *memoryPanels) Resolve(ctx context.Context, id string) (*model.Panel, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Expired(m.now) {
		return nil, repository.ErrPanelExpired
	}
	return p, nil
}

func (m *memoryPanels) ListByOwner(_ context.Context, owner string, _, _ int) ([]*model.Panel, int64, error) {
	out := []*model.Panel{}
	for _, p := range m.panels {
		if p.OwnerID == owner {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

type countingQuota struct {
	limit int
	used  map[string]int
	err   error
}

func (q *countingQuota) CheckQuota(_ context.Context, user string) (quota.Decision, error) {
	if q.err != nil {
		return quota.Decision{}, q.err
	}
	if q.used[user] >= q.limit {
		return quota.Decision{Available: false, Reason: "daily report quota exhausted"}, nil
	}
	return quota.Decision{Available: true}, nil
}

func (q *countingQuota) IncrementUsage(_ context.Context, user string) error {
	q.used[user]++
	return nil
}

type fixture struct {
	router *gin.Engine
	conn   *stubConnector
	panels *memoryPanels
	quota  *countingQuota
}

func salesResult() *model.ExecutionResult {
	cols := []string{"product", "sales"}
	return model.NewRowSet(
		[]model.Field{{Name: "product"}, {Name: "sales"}},
		[]model.Row{
			{Columns: cols, Values: []any{"A", 1200}},
			{Columns: cols, Values: []any{"B", 1500}},
			{Columns: cols, Values: []any{"C", 800}},
		},
	)
}

func newFixture(t *testing.T, store publisher.ContentStore) *fixture {
	t.Helper()

	f := &fixture{
		conn:   &stubConnector{result: salesResult()},
		panels: &memoryPanels{panels: map[string]*model.Panel{}, now: time.Now()},
		quota:  &countingQuota{limit: 2, used: map[string]int{}},
	}

	queries := service.NewQueryService(stubProvider{conn: f.conn}, nil)
	reports := service.NewReportService(queries, render.NewRenderer(), publisher.NewPublisher(store, f.panels))

	routes := &Routes{
		Health:     NewHealthController("test", map[string]Pinger{"registry": nil}, nil),
		Connection: NewConnectionController(queries, time.Second),
		Query:      NewQueryController(queries, time.Second),
		Report:     NewReportController(reports, f.quota, time.Second),
		Panel:      NewPanelController(f.panels),
		Identity:   security.TrustHeaders(),
	}

	f.router = gin.New()
	f.router.Use(middleware.CorrelationID())
	routes.Register(f.router)
	return f
}

func (f *fixture) post(t *testing.T, path, body string) (*httptest.ResponseRecorder, response.StandardResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u-1")
	req.Header.Set("X-User-Name", "alice")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp response.StandardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func queryBody(sql string) string {
	return `{"connection":` + mysqlConnection + `,"database":"shop","sql":` + quote(sql) + `}`
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestQueryRejectsWrites(t *testing.T) {
	f := newFixture(t, memoryStore{})

	w, resp := f.post(t, "/api/v1/query", queryBody("UPDATE orders SET total = 0"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "STATEMENT_REJECTED", resp.Error.Code)
	assert.NotEmpty(t, resp.CorrelationID)
	assert.Zero(t, f.conn.executed)
}

func TestQueryReturnsRows(t *testing.T) {
	f := newFixture(t, memoryStore{})

	w, resp := f.post(t, "/api/v1/query", queryBody("SELECT product, sales FROM orders"))
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "rows", data["kind"])
	rows := data["rows"].([]any)
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"product": "A", "sales": float64(1200)}, rows[0])
}

func TestQueryUnknownEngine(t *testing.T) {
	f := newFixture(t, memoryStore{})

	body := `{"connection":{"type":"oracle","host":"db","port":1521,"username":"u"},"sql":"SELECT 1"}`
	w, resp := f.post(t, "/api/v1/query", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "POLICY_VIOLATION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "oracle")
}

func TestQueryDriverFailureKeepsMessage(t *testing.T) {
	f := newFixture(t, memoryStore{})
	f.conn.err = &database.DriverError{Op: "execute", Err: errors.New("Error 1045: Access denied for user 'reader'")}

	w, resp := f.post(t, "/api/v1/query", queryBody("SELECT 1"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "DRIVER_FAILURE", resp.Error.Code)
	assert.Equal(t, "Error 1045: Access denied for user 'reader'", resp.Error.Message)
}

func TestQueryDeadlineIsGatewayTimeout(t *testing.T) {
	f := newFixture(t, memoryStore{})
	f.conn.err = &database.DriverError{Op: "connect", Err: context.DeadlineExceeded}

	w, resp := f.post(t, "/api/v1/query", queryBody("SELECT 1"))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "STATEMENT_TIMEOUT", resp.Error.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped deadline", &database.DriverError{Op: "query", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "STATEMENT_TIMEOUT"},
		{"bare deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "STATEMENT_TIMEOUT"},
		{"driver", &database.DriverError{Op: "query", Err: errors.New("broken pipe")}, http.StatusBadGateway, "DRIVER_FAILURE"},
		{"missing dependency", publisher.ErrDependencyUnavailable, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE"},
		{"expired panel", repository.ErrPanelExpired, http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			var resp response.StandardResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestInvalidBody(t *testing.T) {
	f := newFixture(t, memoryStore{})

	w, resp := f.post(t, "/api/v1/query", `{"sql":"SELECT 1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func reportBody(chart string) string {
	return `{"connection":` + mysqlConnection + `,"sql":"SELECT product, sales FROM orders","chartType":"` + chart + `","title":"Sales"}`
}

func TestReportPipeline(t *testing.T) {
	f := newFixture(t, memoryStore{})

	w, resp := f.post(t, "/api/v1/reports", reportBody("auto"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := resp.Data.(map[string]any)
	assert.Equal(t, "pie", data["chartType"])
	handle := data["handleId"].(string)
	assert.Len(t, handle, 8)
	assert.Equal(t, "http://panels/p/"+handle, data["url"])
	assert.Equal(t, float64(3), data["rowCount"])
	assert.Equal(t, 1, f.quota.used["u-1"])
	assert.Equal(t, "u-1", f.panels.panels[handle].OwnerID)
	assert.Equal(t, model.VisibilityPrivate, f.panels.panels[handle].Visibility)
}

func TestReportQuotaExhausted(t *testing.T) {
	f := newFixture(t, memoryStore{})
	f.quota.used["u-1"] = 2

	w, resp := f.post(t, "/api/v1/reports", reportBody("bar"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", resp.Error.Code)
	assert.Zero(t, f.conn.executed)
}

func TestReportQuotaBackendDown(t *testing.T) {
	f := newFixture(t, memoryStore{})
	f.quota.err = errors.New("dial tcp: connection refused")

	w, resp := f.post(t, "/api/v1/reports", reportBody("bar"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", resp.Error.Code)
}

func TestReportWithoutStore(t *testing.T) {
	f := newFixture(t, nil)

	w, resp := f.post(t, "/api/v1/reports", reportBody("auto"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", resp.Error.Code)
	assert.Empty(t, f.panels.panels)
	assert.Zero(t, f.quota.used["u-1"])
}

func TestReportUnknownChartType(t *testing.T) {
	f := newFixture(t, memoryStore{})

	w, resp := f.post(t, "/api/v1/reports", reportBody("sankey"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "POLICY_VIOLATION", resp.Error.Code)
}

func TestRecommendChart(t *testing.T) {
	f := newFixture(t, memoryStore{})

	w, resp := f.post(t, "/api/v1/charts/recommend", `{"columns":["day","orders"],"rows":[["2024-01-01",3],["2024-01-02",5]]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "line", resp.Data.(map[string]any)["chartType"])

	w, resp = f.post(t, "/api/v1/charts/recommend", `{"columns":["a","b"],"rows":[[1]]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestConnectionEndpoints(t *testing.T) {
	f := newFixture(t, memoryStore{})
	body := `{"connection":` + mysqlConnection + `,"database":"shop"}`

	w, resp := f.post(t, "/api/v1/connections/test", body)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["reachable"])
	assert.Equal(t, "mysql", data["engine"])
	assert.Equal(t, "db:3306", data["address"])

	w, resp = f.post(t, "/api/v1/connections/databases", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"shop"}, resp.Data.(map[string]any)["databases"])

	w, resp = f.post(t, "/api/v1/connections/schema", body)
	require.Equal(t, http.StatusOK, w.Code)
	tables := resp.Data.(map[string]any)["tables"].([]any)
	assert.Equal(t, "orders", tables[0].(map[string]any)["name"])
}

func TestPanelRedirect(t *testing.T) {
	f := newFixture(t, memoryStore{})
	past := f.panels.now.Add(-time.Hour)
	f.panels.panels["Live1234"] = &model.Panel{ID: "Live1234", TargetURL: "https://cdn/r.html", OwnerID: "u-1"}
	f.panels.panels["Gone1234"] = &model.Panel{ID: "Gone1234", TargetURL: "https://cdn/old.html", ExpiresAt: &past}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/Live1234", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://cdn/r.html", w.Header().Get("Location"))

	for _, id := range []string{"Gone1234", "Nope1234"} {
		w = httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/"+id, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}

func TestListPanels(t *testing.T) {
	f := newFixture(t, memoryStore{})
	f.panels.panels["Mine1234"] = &model.Panel{ID: "Mine1234", OwnerID: "u-1"}
	f.panels.panels["Othr1234"] = &model.Panel{ID: "Othr1234", OwnerID: "u-2"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/panels", nil)
	req.Header.Set("X-User-ID", "u-1")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.StandardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp.Data.(map[string]any)["total"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t, memoryStore{})

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "disabled", resp.Dependencies["registry"].Status)
}

func TestHealthDegraded(t *testing.T) {
	hc := NewHealthController("test", map[string]Pinger{
		"quota": PingFunc(func(context.Context) error { return errors.New("redis down") }),
	}, nil)
	router := gin.New()
	router.GET("/health", hc.HealthCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "redis down", resp.Dependencies["quota"].Message)
}
