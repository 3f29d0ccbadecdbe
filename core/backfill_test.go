package core

import (
	"testing"

	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exposureRecord(id string, v *float64) schema.EntityRecord {
	return schema.EntityRecord{ID: id, Exposure: v}
}

func TestBackfillExposure(t *testing.T) {
	records := []schema.EntityRecord{
		exposureRecord("01001", fp(8)),
		exposureRecord("01003", fp(9)),
		exposureRecord("1005", nil), // same state as 01001, short id
		exposureRecord("06037", fp(12.5)),
		exposureRecord("48001", nil), // no observed values in state 48
		exposureRecord("00000", nil),
		exposureRecord("00059", fp(1)),
	}

	res, err := BackfillExposure(records, BackfillOptions{})
	require.NoError(t, err)

	got := make(map[string]float64, len(res.Records))
	var ids []string
	for _, r := range res.Records {
		require.NotNil(t, r.Exposure)
		got[r.ID] = *r.Exposure
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"00059", "01001", "01003", "01005", "06037", "48001"}, ids, "sorted, padded, placeholder dropped")

	national := (8 + 9 + 12.5 + 1) / 4.0
	assert.InDelta(t, 8.5, got["01005"], 1e-12)
	assert.InDelta(t, roundHalfUp(national, 3), got["48001"], 1e-12)
	assert.InDelta(t, roundHalfUp(national, 3), got["00059"], 1e-12, "national aggregate always gets the national mean")
	assert.InDelta(t, 12.5, got["06037"], 1e-12)

	assert.Equal(t, 1, res.FromState)
	assert.Equal(t, 2, res.FromNational)
	assert.Equal(t, 1, res.Skipped)
	assert.InDelta(t, roundHalfUp(national, 3), res.NationalMean, 1e-12)
}

func TestBackfillExposure_DisableNationalID(t *testing.T) {
	records := []schema.EntityRecord{
		exposureRecord("00059", fp(1)),
		exposureRecord("01001", fp(3)),
	}
	res, err := BackfillExposure(records, BackfillOptions{NationalID: "-"})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.InDelta(t, 1, *res.Records[0].Exposure, 1e-12)
	assert.Zero(t, res.FromNational)
}

func TestBackfillExposure_NoValues(t *testing.T) {
	_, err := BackfillExposure([]schema.EntityRecord{exposureRecord("01001", nil)}, BackfillOptions{})
	assert.ErrorIs(t, err, ErrNoExposureValues)
}

func TestBackfillExposure_DoesNotMutate(t *testing.T) {
	records := []schema.EntityRecord{exposureRecord("1001", nil), exposureRecord("01003", fp(2))}
	_, err := BackfillExposure(records, BackfillOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1001", records[0].ID)
	assert.Nil(t, records[0].Exposure)
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in       float64
		decimals int
		want     float64
	}{
		{in: 1.0005, decimals: 3, want: 1.001},
		{in: 2.5, decimals: 0, want: 3},
		{in: -2.5, decimals: 0, want: -3},
		{in: 7.12345, decimals: 2, want: 7.12},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, roundHalfUp(tt.in, tt.decimals), 1e-12)
	}
}
