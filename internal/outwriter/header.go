package outwriter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
)

// wantsHeader reports whether a banner belongs on stdout. Machine-readable
// output and file output stay clean.
func wantsHeader(cfg *contract.Config) bool {
	return cfg.Output == schema.TextOut && cfg.OutputFile == ""
}

// LogIndexHeader prints a header describing the dataset and measures in use.
func LogIndexHeader(w io.Writer, cfg *contract.Config, idx schema.IndexConfig, entities int) {
	if !wantsHeader(cfg) {
		return
	}
	name := filepath.Base(cfg.InputPath)
	if name == "" || name == "." {
		name = "dataset"
	}
	active := make([]string, 0, len(idx.Measures))
	for _, k := range idx.ActiveMeasures() {
		active = append(active, string(k))
	}
	_, _ = fmt.Fprintf(w, "🔎 Dataset: %s (%d entities, exposure: %s)\n", name, entities, exposureLabel(cfg))
	_, _ = fmt.Fprintf(w, "🧮 Measures: %s (%d of %d active)\n", strings.Join(active, ", "), len(active), len(idx.Measures))
}

// LogCompareHeader prints a single header for a comparison between two configurations.
func LogCompareHeader(w io.Writer, cfg *contract.Config, base, target schema.IndexConfig) {
	if !wantsHeader(cfg) {
		return
	}
	_, _ = fmt.Fprintf(w, "🔎 Dataset: %s\n", filepath.Base(cfg.InputPath))
	_, _ = fmt.Fprintf(w, "⚖️  Compare: %d active measures → %d active measures\n",
		len(base.ActiveMeasures()), len(target.ActiveMeasures()))
}

func exposureLabel(cfg *contract.Config) string {
	if cfg.ExposureColumn == "" {
		return "none"
	}
	return cfg.ExposureColumn
}
