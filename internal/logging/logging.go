// Package logging builds the zap logger used by the command line and the
// HTTP server.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formbuilder/internal/config"
)

// New builds a logger from cfg. Output goes to out, or stderr when out is
// nil, so command output on stdout stays clean. Development defaults to a
// console encoder; production defaults to JSON.
func New(cfg config.Config, out io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	if out == nil {
		out = os.Stderr
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Development() {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	format := cfg.Log.Format
	if format == "" {
		format = "json"
		if cfg.Development() {
			format = "console"
		}
	}

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), zap.NewAtomicLevelAt(level))
	options := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development() {
		options = append(options, zap.Development())
	}
	return zap.New(core, options...), nil
}
