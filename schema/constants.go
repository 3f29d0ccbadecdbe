package schema

// Custom string types for type safety.
type (
	// MeasureKey names a raw survey measure column (e.g. "asthma").
	MeasureKey string

	// MetricKey names a derived metric that can be ranked or classified.
	MetricKey string

	// BreakMode represents the classification algorithm used for binning.
	BreakMode string

	// OutputMode represents the format of the output.
	OutputMode string

	// InputFormat represents the format of the dataset file.
	InputFormat string

	// DatabaseBackend represents the database backend for run history.
	DatabaseBackend string
)

// Derived metric keys.
const (
	CompositeMetric    MetricKey = "composite" // default
	ExposureMetric     MetricKey = "exposure"
	ResidualMetric     MetricKey = "residual"
	CompanionMetric    MetricKey = "companion" // negated residual
	ExpectedMetric     MetricKey = "expected"
	CompositeZMetric   MetricKey = "composite_z"
	ExposureZMetric    MetricKey = "exposure_z"
	CompositePctMetric MetricKey = "composite_pct"
	ExposurePctMetric  MetricKey = "exposure_pct"
	ResidualPctMetric  MetricKey = "residual_pct"
	CompanionPctMetric MetricKey = "companion_pct"
)

// Classification defaults.
const (
	DefaultClassCount    = 5
	DefaultMaxIterations = 200
)

// All break modes supported.
const (
	EqualIntervalMode BreakMode = "equal"
	QuantileMode      BreakMode = "quantile" // default
	NaturalBreaksMode BreakMode = "natural"
	DivergingMode     BreakMode = "diverging"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
	XLSXOut    OutputMode = "xlsx"
)

// All input formats supported.
const (
	CSVInput       InputFormat = "csv"
	JSONInput      InputFormat = "json"
	XLSXInput      InputFormat = "xlsx"
	ShapefileInput InputFormat = "shp"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// PercentileMetrics lists the metrics that receive percentile ranks, in pipeline order.
var PercentileMetrics = []MetricKey{CompositeMetric, ExposureMetric, ResidualMetric, CompanionMetric}

// AllMetrics returns every metric that can be ranked or classified.
var AllMetrics = []MetricKey{
	CompositeMetric, ExposureMetric, ResidualMetric, CompanionMetric, ExpectedMetric,
	CompositeZMetric, ExposureZMetric,
	CompositePctMetric, ExposurePctMetric, ResidualPctMetric, CompanionPctMetric,
}

// AllBreakModes lists the break modes in display order.
var AllBreakModes = []BreakMode{EqualIntervalMode, QuantileMode, NaturalBreaksMode, DivergingMode}

// ValidMetrics lists all valid metric keys.
var ValidMetrics = func() map[MetricKey]struct{} {
	m := make(map[MetricKey]struct{}, len(AllMetrics))
	for _, k := range AllMetrics {
		m[k] = struct{}{}
	}
	return m
}()

// ValidBreakModes lists all valid break modes.
var ValidBreakModes = map[BreakMode]struct{}{
	EqualIntervalMode: {},
	QuantileMode:      {},
	NaturalBreaksMode: {},
	DivergingMode:     {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
	XLSXOut:    {},
}

// ValidInputFormats lists all valid input formats.
var ValidInputFormats = map[InputFormat]struct{}{
	CSVInput:       {},
	JSONInput:      {},
	XLSXInput:      {},
	ShapefileInput: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// DefaultBreakMode returns the break mode used when none is configured.
// Residual-style metrics are centered on zero, so they get diverging breaks.
func DefaultBreakMode(metric MetricKey) BreakMode {
	switch metric {
	case ResidualMetric, CompanionMetric, CompositeZMetric, ExposureZMetric:
		return DivergingMode
	default:
		return QuantileMode
	}
}
