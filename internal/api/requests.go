package api

import (
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/envgap/internal/loader"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// RecordInput is one entity posted inline.
type RecordInput struct {
	ID       string              `json:"id" validate:"required"`
	Name     string              `json:"name,omitempty"`
	Exposure *float64            `json:"exposure"`
	Measures map[string]*float64 `json:"measures" validate:"required"`
}

// IndexRequest is the body of POST /api/index.
type IndexRequest struct {
	Records  []RecordInput      `json:"records" validate:"required,min=1,dive"`
	Measures []string           `json:"measures,omitempty" validate:"omitempty,unique,dive,required"`
	Weights  map[string]float64 `json:"weights,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
	Active   []string           `json:"active,omitempty" validate:"omitempty,dive,required"`
	Metric   string             `json:"metric,omitempty" validate:"omitempty,metric"`
	Breaks   string             `json:"breaks,omitempty" validate:"omitempty,oneof=equal quantile natural diverging"`
	Classes  int                `json:"classes,omitempty" validate:"omitempty,min=1,max=12"`
	Limit    int                `json:"limit,omitempty" validate:"omitempty,min=0,max=10000"`
}

// Bind implements render.Binder. It lowercases measure names so they match
// the loaders.
func (req *IndexRequest) Bind(_ *http.Request) error {
	req.Measures = lowerAll(req.Measures)
	req.Active = lowerAll(req.Active)
	req.Weights = lowerKeys(req.Weights)
	req.Metric = strings.ToLower(strings.TrimSpace(req.Metric))
	req.Breaks = strings.ToLower(strings.TrimSpace(req.Breaks))
	for i := range req.Records {
		req.Records[i].Measures = lowerKeys(req.Records[i].Measures)
	}
	return uniqueIDs(req.Records)
}

// uniqueIDs rejects records whose padded ids collide, matching the loaders.
func uniqueIDs(records []RecordInput) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		id := schema.PadFIPS(strings.TrimSpace(r.ID))
		if id == "" {
			continue
		}
		if prev, ok := seen[id]; ok {
			return eris.Wrapf(loader.ErrDuplicateID, "id %q on records %d and %d", id, prev+1, i+1)
		}
		seen[id] = i
	}
	return nil
}

// ClassifyRequest is the body of POST /api/classify.
type ClassifyRequest struct {
	Records  []RecordInput      `json:"records" validate:"required,min=1,dive"`
	Measures []string           `json:"measures,omitempty" validate:"omitempty,unique,dive,required"`
	Weights  map[string]float64 `json:"weights,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
	Active   []string           `json:"active,omitempty" validate:"omitempty,dive,required"`
	Metric   string             `json:"metric" validate:"required,metric"`
	Mode     string             `json:"mode,omitempty" validate:"omitempty,oneof=equal quantile natural diverging"`
	Classes  int                `json:"classes,omitempty" validate:"omitempty,min=1,max=12"`
}

// Bind implements render.Binder.
func (req *ClassifyRequest) Bind(r *http.Request) error {
	idx := IndexRequest{Records: req.Records, Measures: req.Measures, Weights: req.Weights, Active: req.Active, Metric: req.Metric, Breaks: req.Mode}
	if err := idx.Bind(r); err != nil {
		return err
	}
	req.Measures, req.Active, req.Weights, req.Metric, req.Mode = idx.Measures, idx.Active, idx.Weights, idx.Metric, idx.Breaks
	return nil
}

// WeightsRequest is the body of POST /api/weights/normalize.
type WeightsRequest struct {
	Measures []string           `json:"measures" validate:"required,min=1,unique,dive,required"`
	Weights  map[string]float64 `json:"weights" validate:"omitempty,dive,gte=0,lte=1"`
	Active   []string           `json:"active,omitempty" validate:"omitempty,dive,required"`
}

// Bind implements render.Binder.
func (req *WeightsRequest) Bind(_ *http.Request) error {
	req.Measures = lowerAll(req.Measures)
	req.Active = lowerAll(req.Active)
	req.Weights = lowerKeys(req.Weights)
	return nil
}

// toRecords converts posted records to entity records.
func toRecords(in []RecordInput) []schema.EntityRecord {
	records := make([]schema.EntityRecord, len(in))
	for i, r := range in {
		id := schema.PadFIPS(strings.TrimSpace(r.ID))
		measures := make(map[schema.MeasureKey]*float64, len(r.Measures))
		for k, v := range r.Measures {
			measures[schema.MeasureKey(k)] = v
		}
		records[i] = schema.EntityRecord{
			ID:       id,
			Name:     r.Name,
			State:    schema.StatePrefix(id),
			Measures: measures,
			Exposure: r.Exposure,
		}
	}
	return records
}

// toIndexConfig builds the pipeline configuration. Without an explicit
// measure list every measure seen in the records is used, sorted by name.
func toIndexConfig(records []RecordInput, measures []string, weights map[string]float64, active []string) schema.IndexConfig {
	if len(measures) == 0 {
		seen := make(map[string]struct{})
		for _, r := range records {
			for k := range r.Measures {
				seen[k] = struct{}{}
			}
		}
		measures = slices.Sorted(maps.Keys(seen))
	}

	idx := schema.IndexConfig{
		Measures: make([]schema.MeasureKey, len(measures)),
		Weights:  make(schema.Weights, len(weights)),
		Active:   make(schema.ActiveSet, len(measures)),
	}
	for k, v := range weights {
		idx.Weights[schema.MeasureKey(k)] = v
	}
	for i, m := range measures {
		idx.Measures[i] = schema.MeasureKey(m)
		idx.Active[schema.MeasureKey(m)] = len(active) == 0
	}
	for _, m := range active {
		idx.Active[schema.MeasureKey(m)] = true
	}
	return idx
}

// newValidator returns a validator that reports JSON field names and knows
// the metric keys.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		_, ok := schema.ValidMetrics[schema.MetricKey(fl.Field().String())]
		return ok
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func lowerAll(items []string) []string {
	for i, s := range items {
		items[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return items
}

func lowerKeys[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
