// Package logging provides the broker's ambient logging convention:
// plain log.Printf with a short component tag, matching the teacher
// repo's own style (no structured logging library is introduced here
// since the teacher never reaches for one either).
package logging

import "log"

// Logger tags every line with a component name.
type Logger struct {
	component string
}

// New returns a Logger tagged with component.
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{l.component}, args...)...)
}

func (l *Logger) Println(args ...any) {
	log.Println(append([]any{"[" + l.component + "]"}, args...)...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.Printf("⚠️ "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Printf("❌ "+format, args...)
}
