package outwriter

import (
	"os"

	"github.com/huangsam/envgap/internal/contract"
	"golang.org/x/term"
)

// GetMaxTableNameWidth calculates the maximum width for entity names in table
// output based on terminal width and the fixed numeric columns.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Rank + ID + Value + Class + Composite + Exposure + Residual + Pct
	baseWidth := 95

	// Reserve space for table borders, separators, and padding
	baseWidth += 20

	available := termWidth - baseWidth
	if available < 12 {
		return 12
	}
	if available > 40 {
		return 40
	}
	return available
}
