package api

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/huangsam/envgap/core"
	"github.com/huangsam/envgap/core/algo"
	"github.com/huangsam/envgap/schema"
)

// bind decodes the JSON body into v and validates it.
func (s *Server) bind(r *http.Request, v render.Binder) error {
	if err := render.Bind(r, v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	req := &IndexRequest{}
	if err := s.bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err))
		return
	}

	result, err := s.runPipeline(req.Records, toIndexConfig(req.Records, req.Measures, req.Weights, req.Active))
	if err != nil {
		_ = render.Render(w, r, errPipeline(err))
		return
	}

	metric := schema.MetricKey(req.Metric)
	if metric == "" {
		metric = schema.CompositeMetric
	}
	class := s.classify(result.Records, metric, schema.BreakMode(req.Breaks), req.Classes)
	render.JSON(w, r, core.BuildReport(result, class, req.Limit))
}

// ClassifyResponse is the body returned by POST /api/classify.
type ClassifyResponse struct {
	schema.Classification
	Counts     []int                   `json:"counts"`
	Regression schema.RegressionResult `json:"regression"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	req := &ClassifyRequest{}
	if err := s.bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err))
		return
	}

	result, err := s.runPipeline(req.Records, toIndexConfig(req.Records, req.Measures, req.Weights, req.Active))
	if err != nil {
		_ = render.Render(w, r, errPipeline(err))
		return
	}

	class := s.classify(result.Records, schema.MetricKey(req.Metric), schema.BreakMode(req.Mode), req.Classes)
	render.JSON(w, r, ClassifyResponse{
		Classification: class,
		Counts:         core.ClassCounts(result.Records, class),
		Regression:     result.Regression,
	})
}

// WeightsResponse is the body returned by POST /api/weights/normalize.
type WeightsResponse struct {
	Measures   []schema.MeasureKey `json:"measures"`
	Active     []schema.MeasureKey `json:"active"`
	Normalized schema.Weights      `json:"normalized"`
}

func (s *Server) handleNormalizeWeights(w http.ResponseWriter, r *http.Request) {
	req := &WeightsRequest{}
	if err := s.bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err))
		return
	}

	idx := toIndexConfig(nil, req.Measures, req.Weights, req.Active)
	if err := core.ValidateConfig(idx); err != nil {
		_ = render.Render(w, r, errPipeline(err))
		return
	}
	render.JSON(w, r, WeightsResponse{
		Measures:   idx.Measures,
		Active:     idx.ActiveMeasures(),
		Normalized: algo.NormalizeWeights(idx.Measures, idx.Weights, idx.Active),
	})
}

func (s *Server) runPipeline(in []RecordInput, idx schema.IndexConfig) (schema.PipelineResult, error) {
	start := time.Now()
	result, err := core.RunPipeline(toRecords(in), idx)
	s.metrics.ObservePipeline(time.Since(start), err)
	return result, err
}

func (s *Server) classify(records []schema.EntityRecord, metric schema.MetricKey, mode schema.BreakMode, k int) schema.Classification {
	if k == 0 {
		k = schema.DefaultClassCount
	}
	class := core.ClassifyMetric(records, metric, mode, k)
	s.metrics.Classifications.WithLabelValues(string(class.Mode)).Inc()
	return class
}
