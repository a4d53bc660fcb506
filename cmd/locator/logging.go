package main

import (
	"log"

	"github.com/sirupsen/logrus"
	"github.com/warthog618/goatloc"
	"gopkg.in/natefinch/lumberjack.v2"
)

func newLogger(c goatloc.LogConfig) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.Level)
	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	if c.File != "" {
		l.SetOutput(&lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAge,
		})
	}
	return l
}

// traceLogger bridges the modem traffic trace onto the debug level.
func traceLogger(l *logrus.Logger) *log.Logger {
	return log.New(l.WriterLevel(logrus.DebugLevel), "", 0)
}
