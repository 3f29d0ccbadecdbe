package core

import (
	"math"
	"slices"
	"strings"

	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// ErrNoExposureValues is returned when backfill has no observed exposure to average.
var ErrNoExposureValues = eris.New("core: no exposure values to backfill from")

// Backfill ids with fixed handling.
const (
	// UnknownCountyID marks a placeholder row that is dropped from the output.
	UnknownCountyID = "00000"

	// DefaultNationalID is the aggregate row that always receives the national mean.
	DefaultNationalID = "00059"
)

// BackfillOptions controls exposure imputation.
type BackfillOptions struct {
	NationalID string // defaults to DefaultNationalID; set to "-" to disable
	Decimals   int    // defaults to 3
}

// BackfillExposure fills missing exposure with the mean of the observed
// values that share the record's 2-digit state prefix, falling back to the
// national mean. Observed values are kept. Every value is rounded half away
// from zero to the configured number of decimals. The output is sorted by id,
// deduplicated, and skips the unknown-county placeholder.
func BackfillExposure(records []schema.EntityRecord, opts BackfillOptions) (schema.BackfillResult, error) {
	if opts.NationalID == "" {
		opts.NationalID = DefaultNationalID
	}
	if opts.Decimals <= 0 {
		opts.Decimals = 3
	}

	stateSums := make(map[string]float64)
	stateCounts := make(map[string]int)
	var nationalSum float64
	var nationalCount int
	for _, r := range records {
		if !schema.IsValid(r.Exposure) {
			continue
		}
		state := stateOf(r)
		stateSums[state] += *r.Exposure
		stateCounts[state]++
		nationalSum += *r.Exposure
		nationalCount++
	}
	if nationalCount == 0 {
		return schema.BackfillResult{}, ErrNoExposureValues
	}
	nationalMean := nationalSum / float64(nationalCount)

	byID := make(map[string]schema.EntityRecord, len(records))
	for _, r := range records {
		id := schema.PadFIPS(r.ID)
		if _, seen := byID[id]; seen && !schema.IsValid(r.Exposure) {
			continue
		}
		r.ID = id
		byID[id] = r
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	res := schema.BackfillResult{NationalMean: roundHalfUp(nationalMean, opts.Decimals)}
	for _, id := range ids {
		r := byID[id]
		if id == UnknownCountyID {
			res.Skipped++
			continue
		}

		var value float64
		switch {
		case strings.EqualFold(id, opts.NationalID):
			value = nationalMean
			res.FromNational++
		case schema.IsValid(r.Exposure):
			value = *r.Exposure
		default:
			state := stateOf(r)
			if c := stateCounts[state]; c > 0 {
				value = stateSums[state] / float64(c)
				res.FromState++
			} else {
				value = nationalMean
				res.FromNational++
			}
		}

		out := r
		out.Measures = nil
		out.Derived = schema.DerivedFields{}
		out.Exposure = schema.FloatPtr(roundHalfUp(value, opts.Decimals))
		res.Records = append(res.Records, out)
	}
	return res, nil
}

func stateOf(r schema.EntityRecord) string {
	if r.State != "" {
		return r.State
	}
	return schema.StatePrefix(r.ID)
}

// roundHalfUp rounds v to the given decimals with ties away from zero.
func roundHalfUp(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
