package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

const service = "course-service"

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	logger.SetLevel(log.DebugLevel)

	// Prefer stdout (systemd/docker). LOG_TO_FILE=true writes a dated file under logs/.
	if os.Getenv("LOG_TO_FILE") != "true" {
		return
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Warnf("Failed get current working directory: %v, logging to stdout", err)
		return
	}
	logsDir := filepath.Join(cwd, "logs")
	if mkErr := os.MkdirAll(logsDir, 0o755); mkErr != nil {
		log.Warnf("Failed to create logs directory %s: %v, falling back to stdout", logsDir, mkErr)
		return
	}
	filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", time.Now().Format("2006-01-02"), os.Getenv("ENV")))
	f, openErr := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if openErr != nil {
		log.Warnf("Failed to open log file %s: %v, falling back to stdout", filePath, openErr)
		return
	}
	logger.Out = f
}

// SetLevel applies the configured level; unknown names keep the current one.
func SetLevel(level string) {
	if level == "" {
		return
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warnf("Unknown log level %q, keeping %s", level, logger.GetLevel())
		return
	}
	logger.SetLevel(lvl)
}

func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)

	functionObject := runtime.FuncForPC(function)
	entry := logger.WithFields(log.Fields{
		"service":  service,
		"function": functionObject.Name(),
		"file":     file,
		"line":     line,
	})

	return entry
}
