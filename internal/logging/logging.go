// Package logging initialises the process-wide zap logger with optional
// file rotation. Credentials and session tokens must never be logged.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log level and an optional rotated log file.
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error; default info
	File       string `yaml:"file"`        // empty = stdout only
	MaxSizeMB  int    `yaml:"max_size"`    // rotate after this many MB, default 20
	MaxBackups int    `yaml:"max_backups"` // rotated files to keep, default 3
	MaxAgeDays int    `yaml:"max_age"`     // days to keep rotated files, default 28
	Quiet      bool   `yaml:"quiet"`       // suppress stdout when logging to a file
}

// Init builds the logger and installs it via zap.ReplaceGlobals.
func Init(cfg *Config) error {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	var syncers []zapcore.WriteSyncer
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 20),
			MaxBackups: defaultInt(cfg.MaxBackups, 3),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
		syncers = append(syncers, zapcore.AddSync(rotated))
	}
	if cfg.File == "" || !cfg.Quiet {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	zap.ReplaceGlobals(zap.New(core, zap.AddCaller()))
	return nil
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
