package logging

import (
	"os"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/origami/repo-data/config"
)

const module = "repo-data"

var (
	Logger = logging.MustGetLogger(module)
	format = logging.MustStringFormatter(
		`%{time:2006-01-02 15:04:05.000} %{shortfile} %{level:.4s} %{message}`,
	)
)

func InitLogger(cfg *config.LogConfig) {
	backends := make([]logging.Backend, 0, 2)
	if cfg.UseConsoleLogger || !cfg.UseFileLogger {
		consoleBackend := logging.NewLogBackend(os.Stdout, "", 0)
		backends = append(backends, logging.NewBackendFormatter(consoleBackend, format))
	}
	if cfg.UseFileLogger {
		fileBackend := logging.NewLogBackend(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxFileSizeInMB,
			MaxBackups: cfg.MaxBackupsOfLogFiles,
			MaxAge:     cfg.MaxAgeToRetainLogFilesInDays,
			Compress:   cfg.Compress,
		}, "", 0)
		backends = append(backends, logging.NewBackendFormatter(fileBackend, format))
	}

	level, err := logging.LogLevel(cfg.Level)
	if err != nil {
		level = logging.INFO
	}
	leveled := logging.SetBackend(backends...)
	leveled.SetLevel(level, "")
	Logger = logging.MustGetLogger(module)
}
