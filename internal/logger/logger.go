// Package logger owns the process-wide arbor logger shared by the
// service and the CLI.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/skillet/internal/config"
)

var (
	shared   arbor.ILogger
	sharedMu sync.RWMutex
)

// GetLogger returns the shared logger, lazily falling back to a plain
// console logger when no setup function has run yet.
func GetLogger() arbor.ILogger {
	sharedMu.RLock()
	l := shared
	sharedMu.RUnlock()
	if l != nil {
		return l
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()

	// another goroutine may have won the race for the write lock
	if shared == nil {
		shared = arbor.NewLogger().WithConsoleWriter(writerConfig(models.LogWriterTypeConsole, ""))
	}
	return shared
}

// InitLogger replaces the shared logger.
func InitLogger(logger arbor.ILogger) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = logger
}

// SetupLogger configures and initializes the global logger for the service.
// Log entries go to the service log file and the console; a memory writer
// keeps recent entries available in-process.
func SetupLogger(cfg *config.Config) arbor.ILogger {
	logger := arbor.NewLogger()

	logFile := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		// the warning has to go somewhere before writers are attached
		tempLogger := logger.WithConsoleWriter(writerConfig(models.LogWriterTypeConsole, ""))
		tempLogger.Warn().Err(err).Str("logs_dir", filepath.Dir(logFile)).Msg("Failed to create logs directory")
	} else {
		logger = logger.WithFileWriter(writerConfig(models.LogWriterTypeFile, logFile))
	}

	logger = logger.WithConsoleWriter(writerConfig(models.LogWriterTypeConsole, ""))
	logger = logger.WithMemoryWriter(writerConfig(models.LogWriterTypeMemory, ""))
	logger = logger.WithLevelFromString(cfg.Service.LogLevel)

	InitLogger(logger)

	return logger
}

// SetupConsoleLogger configures the global logger with console output only.
// Used by the CLI, which has no data directory to log into.
func SetupConsoleLogger(level string) arbor.ILogger {
	logger := arbor.NewLogger().
		WithConsoleWriter(writerConfig(models.LogWriterTypeConsole, "")).
		WithLevelFromString(level)

	InitLogger(logger)

	return logger
}

// writerConfig creates a standard writer configuration.
func writerConfig(writerType models.LogWriterType, filename string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             writerType,
		FileName:         filename,
		TimeFormat:       "15:04:05.000",
		OutputType:       models.OutputFormatJSON,
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       5,
	}
}

// Stop flushes buffered log entries. Safe to call more than once.
func Stop() {
	arborcommon.Stop()
}
