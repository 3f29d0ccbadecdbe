package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/envgap/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexBody = `{
  "records": [
    {"id": "1001", "name": "Autauga", "exposure": 7.2, "measures": {"Asthma": 9.5, "copd": 8.1}},
    {"id": "01003", "name": "Baldwin", "exposure": 6.1, "measures": {"asthma": 8.2, "copd": 7.4}},
    {"id": "01005", "name": "Barbour", "exposure": 9.9, "measures": {"asthma": 12.0, "copd": 9.0}},
    {"id": "01007", "name": "Bibb", "exposure": null, "measures": {"asthma": 10.1, "copd": null}}
  ],
  "weights": {"asthma": 0.5, "copd": 0.5}
}`

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, NewServer(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndex(t *testing.T) {
	s := NewServer()
	rec := do(t, s, http.MethodPost, "/api/index", indexBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report schema.IndexReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Entities, 4)
	assert.Equal(t, "01005", report.Entities[0].ID)
	assert.Equal(t, "01001", report.Entities[1].ID, "short ids are padded")
	assert.True(t, report.Entities[3].Row.HasGap)
	assert.Equal(t, schema.QuantileMode, report.Classification.Mode)
	assert.Equal(t, 3, report.Regression.N)

	assert.InDelta(t, 1, testutil.ToFloat64(s.Metrics().PipelineRuns.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.Metrics().Classifications.WithLabelValues("quantile")), 0)
}

func TestIndex_Limit(t *testing.T) {
	body := strings.Replace(indexBody, `"weights"`, `"limit": 2, "metric": "residual", "weights"`, 1)
	rec := do(t, NewServer(), http.MethodPost, "/api/index", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report schema.IndexReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Entities, 2)
	assert.Equal(t, schema.ResidualMetric, report.Metric)
	assert.Equal(t, schema.DivergingMode, report.Classification.Mode)
}

func TestIndex_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"malformed json", `{"records": [`, http.StatusBadRequest, ""},
		{"no records", `{"records": []}`, http.StatusBadRequest, "records"},
		{"missing id", `{"records": [{"measures": {"a": 1}}]}`, http.StatusBadRequest, "id"},
		{"weight out of range", `{"records": [{"id": "1", "measures": {"a": 1}}], "weights": {"a": 2}}`, http.StatusBadRequest, "weights"},
		{"unknown metric", `{"records": [{"id": "1", "measures": {"a": 1}}], "metric": "gdp"}`, http.StatusBadRequest, "metric"},
		{"unknown breaks", `{"records": [{"id": "1", "measures": {"a": 1}}], "breaks": "jenks"}`, http.StatusBadRequest, "breaks"},
		{"duplicate id after padding", `{"records": [{"id": "1001", "measures": {"a": 1}}, {"id": "01001", "measures": {"a": 2}}]}`, http.StatusBadRequest, "duplicate id"},
		{"undeclared active measure", `{"records": [{"id": "1", "measures": {"a": 1}}], "measures": ["a"], "active": ["b"]}`, http.StatusUnprocessableEntity, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewServer(), http.MethodPost, "/api/index", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp ErrResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.StatusText)
			if tt.want != "" {
				assert.Contains(t, rec.Body.String(), tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	body := strings.Replace(indexBody, `"weights"`, `"metric": "composite", "mode": "equal", "classes": 2, "weights"`, 1)
	s := NewServer()
	rec := do(t, s, http.MethodPost, "/api/classify", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, schema.EqualIntervalMode, resp.Mode)
	assert.Len(t, resp.Breaks, 3)
	assert.Len(t, resp.Labels, 2)
	assert.Equal(t, 3, resp.Counts[0]+resp.Counts[1])
	assert.InDelta(t, 1, testutil.ToFloat64(s.Metrics().Classifications.WithLabelValues("equal")), 0)
}

func TestClassify_RequiresMetric(t *testing.T) {
	rec := do(t, NewServer(), http.MethodPost, "/api/classify", indexBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "metric")
}

func TestNormalizeWeights(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   schema.Weights
	}{
		{
			name:   "proportional",
			body:   `{"measures": ["asthma", "copd"], "weights": {"asthma": 0.6, "copd": 0.2}}`,
			status: http.StatusOK,
			want:   schema.Weights{"asthma": 0.75, "copd": 0.25},
		},
		{
			name:   "equal share when all zero",
			body:   `{"measures": ["asthma", "copd"], "weights": {}}`,
			status: http.StatusOK,
			want:   schema.Weights{"asthma": 0.5, "copd": 0.5},
		},
		{
			name:   "inactive measure gets zero",
			body:   `{"measures": ["asthma", "copd"], "weights": {"asthma": 0.2, "copd": 0.9}, "active": ["asthma"]}`,
			status: http.StatusOK,
			want:   schema.Weights{"asthma": 1},
		},
		{
			name:   "duplicate measures",
			body:   `{"measures": ["asthma", "asthma"]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "undeclared weight is ignored",
			body:   `{"measures": ["asthma"], "weights": {"chd": 0.5}}`,
			status: http.StatusOK,
			want:   schema.Weights{"asthma": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewServer(), http.MethodPost, "/api/weights/normalize", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.want == nil {
				return
			}
			var resp WeightsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			for k, v := range tt.want {
				assert.InDelta(t, v, resp.Normalized[k], 1e-12, "measure %s", k)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer()
	do(t, s, http.MethodPost, "/api/index", indexBody)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `envgap_pipeline_runs_total{status="ok"} 1`)
	assert.Contains(t, body, "envgap_pipeline_duration_seconds_count 1")
	assert.Contains(t, body, `envgap_classifications_total{mode="quantile"} 1`)
}

func TestListenAndServe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer().ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Post("http://"+addr+"/api/weights/normalize", "application/json",
			bytes.NewBufferString(`{"measures": ["a"]}`))
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
