package contract

import (
	"maps"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// Default values for configuration.
const (
	DefaultResultLimit = 25
	MaxResultLimit     = 10000
	DefaultPrecision   = 3
	MaxPrecision       = 6
	MaxClassCount      = 12
	DefaultListenAddr  = ":8080"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultIDColumn    = "fips"
	DefaultNameColumn  = "name"
)

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	InputPath      string
	InputFormat    schema.InputFormat
	IDColumn       string
	NameColumn     string
	ExposureColumn string

	// Measures fixes the canonical measure order. Empty means every numeric
	// column of the dataset, in file order.
	Measures []schema.MeasureKey
	Weights  schema.Weights
	Active   schema.ActiveSet // empty means all measures

	Metric      schema.MetricKey
	BreakMode   schema.BreakMode // empty picks the default for the metric
	Classes     int
	ResultLimit int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	CompareMode   bool
	TargetWeights schema.Weights
	TargetActive  schema.ActiveSet

	NationalID string
	PlotFile   string

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	ListenAddr string
	LogLevel   string
	LogFormat  string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Input            string             `mapstructure:"input"`
	Format           string             `mapstructure:"format"`
	IDColumn         string             `mapstructure:"id-column"`
	NameColumn       string             `mapstructure:"name-column"`
	ExposureColumn   string             `mapstructure:"exposure-column"`
	Measures         []string           `mapstructure:"measures"`
	Active           []string           `mapstructure:"active"`
	Weights          map[string]float64 `mapstructure:"weights"`
	WeightsStr       string             `mapstructure:"weights-override"`
	Limit            int                `mapstructure:"limit"`
	Precision        int                `mapstructure:"precision"`
	Output           string             `mapstructure:"output"`
	OutputFile       string             `mapstructure:"output-file"`
	Width            int                `mapstructure:"width"`
	Color            string             `mapstructure:"color"`
	HistoryBackend   string             `mapstructure:"history-backend"`
	HistoryDBConnect string             `mapstructure:"history-db-connect"`
	LogLevel         string             `mapstructure:"log-level"`
	LogFormat        string             `mapstructure:"log-format"`

	// --- Fields from indexCmd and classifyCmd ---
	Metric  string `mapstructure:"metric"`
	Breaks  string `mapstructure:"breaks"`
	Classes int    `mapstructure:"classes"`

	// --- Fields from compareCmd ---
	TargetWeights    map[string]float64 `mapstructure:"target-weights"`
	TargetWeightsStr string             `mapstructure:"target-weights-override"`
	TargetActive     []string           `mapstructure:"target-active"`

	// --- Fields from backfillCmd and plotCmd ---
	NationalID string `mapstructure:"national-id"`
	PlotFile   string `mapstructure:"plot-file"`

	// --- Fields from serveCmd ---
	Listen string `mapstructure:"listen"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Measures = append([]schema.MeasureKey(nil), c.Measures...)
	clone.Weights = maps.Clone(c.Weights)
	clone.Active = maps.Clone(c.Active)
	clone.TargetWeights = maps.Clone(c.TargetWeights)
	clone.TargetActive = maps.Clone(c.TargetActive)
	return &clone
}

// IndexConfig resolves the pipeline configuration against the measures found
// in a dataset. Configured measures take precedence over the dataset's; an
// empty active set activates every measure.
func (c *Config) IndexConfig(available []schema.MeasureKey) schema.IndexConfig {
	return buildIndexConfig(c.Measures, available, c.Weights, c.Active)
}

// TargetIndexConfig resolves the comparison target. Target weights and active
// set fall back to the base ones when not given.
func (c *Config) TargetIndexConfig(available []schema.MeasureKey) schema.IndexConfig {
	weights, active := c.TargetWeights, c.TargetActive
	if len(weights) == 0 {
		weights = c.Weights
	}
	if len(active) == 0 {
		active = c.Active
	}
	return buildIndexConfig(c.Measures, available, weights, active)
}

func buildIndexConfig(configured, available []schema.MeasureKey, weights schema.Weights, active schema.ActiveSet) schema.IndexConfig {
	measures := configured
	if len(measures) == 0 {
		measures = available
	}
	idx := schema.IndexConfig{
		Measures: append([]schema.MeasureKey(nil), measures...),
		Weights:  maps.Clone(weights),
		Active:   make(schema.ActiveSet, len(measures)),
	}
	if idx.Weights == nil {
		idx.Weights = schema.Weights{}
	}
	for _, k := range measures {
		idx.Active[k] = len(active) == 0 || active[k]
	}
	return idx
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDataset(cfg, input); err != nil {
		return err
	}
	if err := processMeasures(cfg, input); err != nil {
		return err
	}
	if err := processClassification(cfg, input); err != nil {
		return err
	}
	if err := processCompareMode(cfg, input); err != nil {
		return err
	}
	return validateBackendConfig(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return eris.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return eris.New("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return eris.New("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return eris.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return eris.New("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return eris.New("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfig validates the history backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	backend := strings.ToLower(strings.TrimSpace(input.HistoryBackend))
	if backend == "" {
		backend = string(schema.SQLiteBackend)
	}
	cfg.HistoryBackend = schema.DatabaseBackend(backend)
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return eris.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

// validateSimpleInputs processes and validates fields that need no dataset context.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.NationalID = strings.TrimSpace(input.NationalID)
	cfg.PlotFile = input.PlotFile

	cfg.ListenAddr = input.Listen
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.LogFormat = strings.ToLower(input.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return eris.Errorf("invalid log format '%s'. must be console, json", input.LogFormat)
	}

	color := input.Color
	if color == "" {
		color = "yes"
	}
	colors, err := ParseBoolString(color)
	if err != nil {
		return eris.Wrap(err, "invalid --color value")
	}
	cfg.UseColors = colors

	if input.Limit < 0 || input.Limit > MaxResultLimit {
		return eris.Errorf("limit must be between 0 and %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return eris.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	output := strings.ToLower(input.Output)
	if output == "" {
		output = string(schema.TextOut)
	}
	cfg.Output = schema.OutputMode(output)
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return eris.Errorf("invalid output format '%s'. must be text, csv, json, parquet, xlsx", input.Output)
	}
	if (cfg.Output == schema.ParquetOut || cfg.Output == schema.XLSXOut) && cfg.OutputFile == "" {
		return eris.Errorf("--output-file is required for %s output", cfg.Output)
	}
	return nil
}

// processDataset resolves the dataset path, format and column names.
func processDataset(cfg *Config, input *ConfigRawInput) error {
	cfg.InputPath = strings.TrimSpace(input.InputPathStr)
	if cfg.InputPath == "" {
		cfg.InputPath = strings.TrimSpace(input.Input)
	}

	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" && cfg.InputPath != "" {
		format = string(InferInputFormat(cfg.InputPath))
	}
	cfg.InputFormat = schema.InputFormat(format)
	if format != "" {
		if _, ok := schema.ValidInputFormats[cfg.InputFormat]; !ok {
			return eris.Errorf("invalid input format '%s'. must be csv, json, xlsx, shp", format)
		}
	}

	cfg.IDColumn = strings.TrimSpace(input.IDColumn)
	if cfg.IDColumn == "" {
		cfg.IDColumn = DefaultIDColumn
	}
	cfg.NameColumn = strings.TrimSpace(input.NameColumn)
	if cfg.NameColumn == "" {
		cfg.NameColumn = DefaultNameColumn
	}
	cfg.ExposureColumn = strings.TrimSpace(input.ExposureColumn)
	return nil
}

// processMeasures resolves the measure list, the active set and the weights.
func processMeasures(cfg *Config, input *ConfigRawInput) error {
	cfg.Measures = nil
	seen := make(map[schema.MeasureKey]struct{})
	for _, m := range splitList(input.Measures) {
		k := schema.MeasureKey(m)
		if _, dup := seen[k]; dup {
			return eris.Errorf("measure '%s' listed more than once", m)
		}
		seen[k] = struct{}{}
		cfg.Measures = append(cfg.Measures, k)
	}

	active, err := parseActive(input.Active, seen)
	if err != nil {
		return err
	}
	cfg.Active = active

	weights, err := mergeWeights(input.Weights, input.WeightsStr)
	if err != nil {
		return eris.Wrap(err, "invalid weights")
	}
	cfg.Weights = weights
	return nil
}

// processClassification validates the metric, break mode and class count.
func processClassification(cfg *Config, input *ConfigRawInput) error {
	metric := strings.ToLower(strings.TrimSpace(input.Metric))
	if metric == "" {
		metric = string(schema.CompositeMetric)
	}
	cfg.Metric = schema.MetricKey(metric)
	if _, ok := schema.ValidMetrics[cfg.Metric]; !ok {
		return eris.Errorf("invalid metric '%s'", input.Metric)
	}

	mode := strings.ToLower(strings.TrimSpace(input.Breaks))
	cfg.BreakMode = schema.BreakMode(mode)
	if mode != "" {
		if _, ok := schema.ValidBreakModes[cfg.BreakMode]; !ok {
			return eris.Errorf("invalid break mode '%s'. must be equal, quantile, natural, diverging", input.Breaks)
		}
	}

	if input.Classes < 0 || input.Classes > MaxClassCount {
		return eris.Errorf("classes must be between 1 and %d (received %d)", MaxClassCount, input.Classes)
	}
	cfg.Classes = input.Classes
	if cfg.Classes == 0 {
		cfg.Classes = schema.DefaultClassCount
	}
	return nil
}

// processCompareMode handles the comparison target.
func processCompareMode(cfg *Config, input *ConfigRawInput) error {
	weights, err := mergeWeights(input.TargetWeights, input.TargetWeightsStr)
	if err != nil {
		return eris.Wrap(err, "invalid target weights")
	}
	active, err := parseActive(input.TargetActive, declaredMeasures(cfg.Measures))
	if err != nil {
		return err
	}
	cfg.TargetWeights = weights
	cfg.TargetActive = active
	cfg.CompareMode = len(weights) > 0 || len(active) > 0
	return nil
}

// parseActive builds an active set. When declared is non-empty every active
// measure must be declared.
func parseActive(raw []string, declared map[schema.MeasureKey]struct{}) (schema.ActiveSet, error) {
	items := splitList(raw)
	if len(items) == 0 {
		return nil, nil
	}
	active := make(schema.ActiveSet, len(items))
	for _, m := range items {
		k := schema.MeasureKey(m)
		if len(declared) > 0 {
			if _, ok := declared[k]; !ok {
				return nil, eris.Errorf("active measure '%s' is not in the measure list", m)
			}
		}
		active[k] = true
	}
	return active, nil
}

// mergeWeights combines weights from the config file with a command-line
// override string. The override wins on conflicts.
func mergeWeights(fromFile map[string]float64, override string) (schema.Weights, error) {
	weights := make(schema.Weights, len(fromFile))
	for k, v := range fromFile {
		weights[schema.MeasureKey(strings.ToLower(strings.TrimSpace(k)))] = v
	}
	parsed, err := ParseWeightsString(override)
	if err != nil {
		return nil, err
	}
	maps.Copy(weights, parsed)

	for k, v := range weights {
		if v < 0 || v > 1 {
			return nil, eris.Errorf("weight for %s must be between 0.0 and 1.0 (received %.3f)", k, v)
		}
	}
	if len(weights) == 0 {
		return nil, nil
	}
	return weights, nil
}

// ParseWeightsString parses a string like "asthma:0.5,copd:0.3,chd:0.2"
// into a weight vector.
func ParseWeightsString(s string) (schema.Weights, error) {
	weights := make(schema.Weights)
	if strings.TrimSpace(s) == "" {
		return weights, nil
	}

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		keyValue := strings.Split(part, ":")
		if len(keyValue) != 2 {
			return nil, eris.Errorf("invalid weight format '%s', expected 'measure:value'", part)
		}

		key := strings.ToLower(strings.TrimSpace(keyValue[0]))
		if key == "" {
			return nil, eris.Errorf("invalid weight format '%s', empty measure name", part)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(keyValue[1]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid weight value for measure %s", key)
		}
		weights[schema.MeasureKey(key)] = value
	}
	return weights, nil
}

// InferInputFormat guesses the dataset format from the file extension.
// Unknown extensions default to CSV.
func InferInputFormat(path string) schema.InputFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return schema.JSONInput
	case ".xlsx":
		return schema.XLSXInput
	case ".shp", ".dbf":
		return schema.ShapefileInput
	default:
		return schema.CSVInput
	}
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for p := range strings.SplitSeq(item, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
