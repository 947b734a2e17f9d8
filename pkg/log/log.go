package log

import (
	"io"
	"os"
	"path/filepath"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
	config *config.LoggingConfig
}

// Fields represents a map of fields for structured logging
type Fields map[string]interface{}

// New creates a new logger instance
func New(cfg *config.LoggingConfig) (*Logger, error) {
	logger := logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	// Set format
	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z",
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z",
		})
	}

	// Set output
	var output io.Writer
	switch cfg.Output {
	case "file":
		// Ensure log directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}

		output = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stdout
	}

	logger.SetOutput(output)

	return &Logger{
		Logger: logger,
		config: cfg,
	}, nil
}

// WithFields adds fields to log entry
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields(fields))
}

// WithField adds a single field to log entry
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithError adds an error field to log entry
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// Request logging helpers
func (l *Logger) LogRequest(method, path, userAgent, clientIP string, statusCode int, duration int64) {
	l.WithFields(Fields{
		"method":      method,
		"path":        path,
		"user_agent":  userAgent,
		"client_ip":   clientIP,
		"status_code": statusCode,
		"duration_ms": duration,
		"type":        "request",
	}).Info("HTTP request")
}

func (l *Logger) LogAuth(userID uint, email, action string, success bool) {
	entry := l.WithFields(Fields{
		"user_id": userID,
		"email":   email,
		"action":  action,
		"success": success,
		"type":    "auth",
	})

	if success {
		entry.Info("Authentication event")
	} else {
		entry.Warn("Authentication failed")
	}
}

func (l *Logger) LogPackage(packageID uint, ownerID uint, action string, success bool) {
	entry := l.WithFields(Fields{
		"package_id": packageID,
		"owner_id":   ownerID,
		"action":     action,
		"success":    success,
		"type":       "package",
	})

	if success {
		entry.Info("Package event")
	} else {
		entry.Error("Package event failed")
	}
}

func (l *Logger) LogDeal(dealID uint, packageID uint, travelID uint, action string, success bool) {
	entry := l.WithFields(Fields{
		"deal_id":    dealID,
		"package_id": packageID,
		"travel_id":  travelID,
		"action":     action,
		"success":    success,
		"type":       "deal",
	})

	if success {
		entry.Info("Deal event")
	} else {
		entry.Error("Deal event failed")
	}
}

func (l *Logger) LogNotification(notificationID uint, recipientID uint, action string, success bool) {
	entry := l.WithFields(Fields{
		"notification_id": notificationID,
		"recipient_id":    recipientID,
		"action":          action,
		"success":         success,
		"type":            "notification",
	})

	if success {
		entry.Info("Notification event")
	} else {
		entry.Error("Notification event failed")
	}
}

func (l *Logger) LogQueue(notificationID uint, recipientID uint, action string, success bool, attempts int, nextRetry string) {
	entry := l.WithFields(Fields{
		"notification_id": notificationID,
		"recipient_id":    recipientID,
		"action":          action,
		"success":         success,
		"attempts":        attempts,
		"next_retry":      nextRetry,
		"type":            "queue",
	})

	if success {
		entry.Info("Queue event")
	} else {
		entry.Error("Queue event failed")
	}
}

func (l *Logger) LogSecurity(event string, userID uint, ip string, details map[string]interface{}) {
	fields := Fields{
		"event":   event,
		"user_id": userID,
		"ip":      ip,
		"type":    "security",
	}

	for k, v := range details {
		fields[k] = v
	}

	l.WithFields(fields).Warn("Security event")
}

func (l *Logger) LogSystem(component string, action string, success bool, details map[string]interface{}) {
	fields := Fields{
		"component": component,
		"action":    action,
		"success":   success,
		"type":      "system",
	}

	for k, v := range details {
		fields[k] = v
	}

	entry := l.WithFields(fields)
	if success {
		entry.Info("System event")
	} else {
		entry.Error("System event failed")
	}
}

// Global logger instance
var defaultLogger *Logger

// Init initializes the default logger
func Init(cfg *config.LoggingConfig) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	defaultLogger = logger
	return nil
}

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	return defaultLogger
}

// Convenience functions for global logger
func Debug(args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Debug(args...)
	}
}

func Info(args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Info(args...)
	}
}

func Warn(args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Warn(args...)
	}
}

func Error(args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Error(args...)
	}
}

func Fatal(args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Fatal(args...)
	}
}

func WithFields(fields Fields) *logrus.Entry {
	if defaultLogger != nil {
		return defaultLogger.WithFields(fields)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithError(err error) *logrus.Entry {
	if defaultLogger != nil {
		return defaultLogger.WithError(err)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
