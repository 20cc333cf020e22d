// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Package logging builds the structured logger shared by every component
// and the per-record log grouping demlo's Slogger/Pipeline pair provided:
// messages about one file are buffered and flushed together instead of
// interleaving with messages about other files being processed
// concurrently.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the base logger. dev selects zap's human-readable console
// encoder (for local runs); production builds use the JSON encoder so log
// lines can be shipped and indexed.
func New(levelName string, dev bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if levelName != "" {
		if err := level.UnmarshalText([]byte(levelName)); err != nil {
			return nil, err
		}
	}

	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

// Component returns a named child logger, e.g. logging.Component(base,
// "scanner"). Mirrors the one-log-stream-per-concern split of demlo's
// FileRecord.debug/.error fields, generalized to zap's With.
func Component(base *zap.Logger, name string) *zap.SugaredLogger {
	return base.With(zap.String("component", name)).Sugar()
}

// RecordLog accumulates log entries about a single unit of work (a source
// file, an open stream) so they can be flushed together once the unit
// finishes, regardless of how many goroutines are processing other units
// concurrently. This is the same grouping rationale as demlo's
// pipeline.go: "It groups log messages by FileRecord; no manual flushing
// required."
type RecordLog struct {
	logger  *zap.SugaredLogger
	subject string
	entries []entry
}

type entry struct {
	level zapcore.Level
	msg   string
	kv    []interface{}
}

// NewRecordLog starts a log group for subject (typically a file path or
// track id).
func NewRecordLog(logger *zap.SugaredLogger, subject string) *RecordLog {
	return &RecordLog{logger: logger, subject: subject}
}

func (r *RecordLog) Debugf(msg string, kv ...interface{}) {
	r.entries = append(r.entries, entry{zapcore.DebugLevel, msg, kv})
}

func (r *RecordLog) Infof(msg string, kv ...interface{}) {
	r.entries = append(r.entries, entry{zapcore.InfoLevel, msg, kv})
}

func (r *RecordLog) Warnf(msg string, kv ...interface{}) {
	r.entries = append(r.entries, entry{zapcore.WarnLevel, msg, kv})
}

func (r *RecordLog) Errorf(msg string, kv ...interface{}) {
	r.entries = append(r.entries, entry{zapcore.ErrorLevel, msg, kv})
}

// Flush emits every buffered entry, tagged with the subject, in order.
func (r *RecordLog) Flush() {
	for _, e := range r.entries {
		fields := append([]interface{}{"subject", r.subject}, e.kv...)
		switch e.level {
		case zapcore.DebugLevel:
			r.logger.Debugw(e.msg, fields...)
		case zapcore.WarnLevel:
			r.logger.Warnw(e.msg, fields...)
		case zapcore.ErrorLevel:
			r.logger.Errorw(e.msg, fields...)
		default:
			r.logger.Infow(e.msg, fields...)
		}
	}
	r.entries = nil
}
