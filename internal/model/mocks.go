package model

import "fmt"

// TestLogger is a [Logger] that keeps every line in memory, prefixed
// with its level.
type TestLogger struct {
	Lines []string
}

func (tl *TestLogger) append(level, msg string) {
	tl.Lines = append(tl.Lines, level+": "+msg)
}

func (tl *TestLogger) Debug(msg string) {
	tl.append("debug", msg)
}
func (tl *TestLogger) Debugf(format string, v ...any) {
	tl.append("debug", fmt.Sprintf(format, v...))
}
func (tl *TestLogger) Info(msg string) {
	tl.append("info", msg)
}
func (tl *TestLogger) Infof(format string, v ...any) {
	tl.append("info", fmt.Sprintf(format, v...))
}
func (tl *TestLogger) Warn(msg string) {
	tl.append("warn", msg)
}
func (tl *TestLogger) Warnf(format string, v ...any) {
	tl.append("warn", fmt.Sprintf(format, v...))
}

func NewTestLogger() *TestLogger {
	return &TestLogger{
		Lines: make([]string, 0),
	}
}
