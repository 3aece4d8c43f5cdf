// Package logger builds the zap logger shared by the rstar packages.
package logger

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is the minimum level: debug, info, warn or error. Unknown values mean info.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
	// OutputFile is a path, or stdout / stderr.
	OutputFile string `yaml:"output_file"`
}

// New builds the process logger. The returned func syncs the logger and
// closes the output file; call it once the logger is no longer used.
func New(config Config) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	output := config.OutputFile
	if output == "" {
		output = "stderr"
	}
	sink, closeSink, err := zap.Open(output)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output %s: %w", output, err)
	}

	log := zap.New(zapcore.NewCore(encoder(config.Format), sink, level), zap.AddCaller()).
		With(zap.String("service", "rstar"))

	closeFn := func() {
		_ = log.Sync()
		closeSink()
	}
	return log, closeFn, nil
}

// ForStore tags log with the files of one page store, so the lines of two
// indexes open in the same process can be told apart.
func ForStore(log *zap.Logger, dataPath, indexPath string, pageSize int) *zap.Logger {
	return log.With(
		zap.String("data_file", filepath.Base(dataPath)),
		zap.String("index_file", filepath.Base(indexPath)),
		zap.Int("page_size", pageSize),
	)
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.EqualFold(format, "console") {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}
