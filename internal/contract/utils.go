package contract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
)

// Color variables for class labels, from lowest to highest class.
var classColors = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgMagenta, color.Bold),
	color.New(color.FgRed, color.Bold),
}

// divergingColors run from strongly negative through neutral to strongly positive.
var divergingColors = []*color.Color{
	color.New(color.FgBlue, color.Bold),
	color.New(color.FgCyan),
	color.New(color.FgWhite),
	color.New(color.FgYellow),
	color.New(color.FgRed, color.Bold),
}

// ClassColor returns the color for a class index out of n classes. The
// palette is stretched so the top class always gets the strongest color.
func ClassColor(class, n int, diverging bool) *color.Color {
	palette := classColors
	if diverging {
		palette = divergingColors
	}
	if class < 0 || n <= 0 {
		return color.New(color.Faint)
	}
	if n == 1 {
		return palette[len(palette)-1]
	}
	idx := class * (len(palette) - 1) / (n - 1)
	return palette[min(idx, len(palette)-1)]
}

// GetColorLabel returns a colored class label for console output (table).
func GetColorLabel(label string, class, n int, diverging bool) string {
	if label == "" {
		label = "n/a"
	}
	return ClassColor(class, n, diverging).Sprint(label)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	f, err := os.Create(filePath)
	if err != nil {
		return nil, eris.Wrapf(err, "contract: create %s", filePath)
	}
	return f, nil
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".envgap_history.db"
	}
	return filepath.Join(homeDir, ".envgap_history.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 to leave room for the ellipsis and at least one character.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, eris.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
