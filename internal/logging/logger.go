// Package logging owns the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the shared instance. It writes to stderr until Init is called.
var Logger = logrus.New()

var once sync.Once

// Options controls where and how much is logged.
type Options struct {
	File    string
	Level   string
	Service string
}

// Init sends log output to stdout and a rotating file. Only the first call has an effect.
func Init(opts Options) {
	once.Do(func() {
		writers := []io.Writer{os.Stdout}
		if opts.File != "" {
			if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
				Logger.WithError(err).Warn("log directory unavailable, logging to stdout only")
			} else {
				writers = append(writers, &lumberjack.Logger{
					Filename:   opts.File,
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, // days
					Compress:   true,
				})
			}
		}
		Logger.SetOutput(io.MultiWriter(writers...))
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		Logger.SetReportCaller(true)

		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		Logger.SetLevel(level)

		if opts.Service != "" {
			Logger.AddHook(serviceHook(opts.Service))
		}
		Logger.WithField("file", opts.File).Info("logger initialized")
	})
}

type serviceHook string

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = string(h)
	return nil
}

// RequestLogger logs one line per HTTP request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := Logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if userID, ok := c.Get("userID"); ok {
			entry = entry.WithField("user_id", userID)
		}
		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case c.Writer.Status() >= 500:
			entry.Error("request failed")
		default:
			entry.Info("request")
		}
	}
}
