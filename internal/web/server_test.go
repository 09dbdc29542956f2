package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/config"
	"github.com/rate-estimator/internal/geo"
	"github.com/rate-estimator/internal/matcher"
	"github.com/rate-estimator/internal/pricing"
	"github.com/rate-estimator/internal/rates"
	"github.com/rate-estimator/internal/refloc"
	"github.com/rate-estimator/internal/store"
	"github.com/rate-estimator/internal/training"
)

func newTestServer(t *testing.T) (*Server, *training.Orchestrator) {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	s := store.NewMemoryStore()
	reg := artifacts.NewRegistry(s, log)
	table := &rates.Table{Rules: []rates.Rule{{
		Operation: "NL-DOM", Type: "ORIGIN", RateType: rates.Flat,
		DistanceEnd: 100, MaxValue: 100, FlatRate: 150,
	}}}
	require.NoError(t, reg.SaveGeneral(ctx, table))

	locations := refloc.NewStoreRepository(s)
	svc := pricing.NewService(reg, locations, nil, geo.NewAddressParser(), matcher.New(0), pricing.Config{}, log)
	trainer := training.NewTrainer(reg, locations, nil, training.Options{}, log)
	orch := training.NewOrchestrator(trainer, training.Config{}, log)
	t.Cleanup(func() { orch.Shutdown(context.Background()) })

	return NewServer(config.ServerConfig{Host: "127.0.0.1"}, svc, orch, reg, log), orch
}

func TestRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"health", "GET", "/healthz", "", http.StatusOK, `"ok"`},
		{"metrics", "GET", "/metrics", "", http.StatusOK, "go_goroutines"},
		{"tiered", "POST", "/api/estimate/tiered", `{"distance":10,"volume":20,"role":"origin","operation":"nl-dom"}`, http.StatusOK, `"rate":150`},
		{"regression without model", "POST", "/api/estimate/regression", `{"origin":"a","destination":"b","equipment":"c"}`, http.StatusUnprocessableEntity, "error"},
		{"cached without records", "GET", "/api/rates/cached?origin=a&destination=b&equipment=c", "", http.StatusServiceUnavailable, "trained"},
		{"quote without services", "POST", "/api/quote", `{"origin":{"raw_input":"a"},"destination":{"raw_input":"b"},"volume":{"value":1,"unit":"m3"}}`, http.StatusOK, `"success":false`},
		{"unknown job", "GET", "/api/train/nope", "", http.StatusNotFound, "not found"},
		{"reload", "POST", "/api/artifacts/general-rates/reload", "", http.StatusNoContent, ""},
		{"reload unknown kind", "POST", "/api/artifacts/pallets/reload", "", http.StatusBadRequest, "error"},
		{"wrong method", "GET", "/api/quote", "", http.StatusMethodNotAllowed, ""},
		{"wrong method with path variable", "PUT", "/api/train/nope", "", http.StatusMethodNotAllowed, ""},
		{"unknown path", "GET", "/api/nothing", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			buf := new(strings.Builder)
			_, err = io.Copy(buf, resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode, buf.String())
			assert.Contains(t, buf.String(), tt.wantBody)
		})
	}
}

func TestTrainThroughAPI(t *testing.T) {
	srv, orch := newTestServer(t)
	h := srv.Handler()

	body := `{"kind":"general-rates",
		"headers":["Operation","Type","Distance start","Distance end","Min. Value","Max. Value","Rate type","Flat rate in EUR","Flexibel( rate per cbm)"],
		"rows":[["NL-DOM","ORIGIN","0","100","0","100","FLAT","175",""]]}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/train", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	id := strings.TrimPrefix(rec.Header().Get("Location"), "/api/train/")
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		st, err := orch.Status(id)
		return err == nil && st.State == training.Succeeded
	}, 5*time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/estimate/tiered", strings.NewReader(`{"distance":10,"volume":20,"role":"ORIGIN","operation":"NL-DOM"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rate":175`, "new table is served after training")
}

func TestRunShutsDown(t *testing.T) {
	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
