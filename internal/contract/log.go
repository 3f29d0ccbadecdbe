package contract

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the global zap logger. The console format uses the
// development encoder; anything else uses the production JSON encoder.
func InitLogger(level, format string) error {
	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "contract: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "contract: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	if zap.L().Core().Enabled(zapcore.ErrorLevel) {
		zap.L().Error(msg, zap.Error(err))
		_ = zap.L().Sync()
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	}
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	if !zap.L().Core().Enabled(zapcore.WarnLevel) {
		_, _ = fmt.Fprintf(os.Stderr, "Warning %s: %v\n", msg, err)
		return
	}
	zap.L().Warn(msg, zap.Error(err))
}
