package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"

	"food_crm/internal/config"
)

// Setup initializes Logrus on a rotating file (and stdout when enabled) and
// returns the writer so the HTTP access log can share it.
func Setup(cfg config.LogConfig) io.Writer {
	// 1) Lumberjack for file rotation
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}

	var out io.Writer = rotator
	if cfg.Stdout {
		out = io.MultiWriter(os.Stdout, rotator)
	}

	// 2) Configure Logrus to write there
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithError(err).Warnf("unknown LOG_LEVEL %q, falling back to debug", cfg.Level)
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	return out
}

// GormLogger routes GORM's SQL and slow-query logs through the standard Logrus logger.
func GormLogger() gormlogger.Interface {
	level := gormlogger.Warn
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	return gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
