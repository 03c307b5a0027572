// Package logrus adapts a logrus entry to tilecache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/tilecache"
)

var _ tilecache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l, tagging every entry with component=tilecache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "tilecache")}
}

func (l Logger) with(f tilecache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}

func (l Logger) Debug(msg string, f tilecache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f tilecache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f tilecache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f tilecache.Fields) { l.with(f).Error(msg) }
