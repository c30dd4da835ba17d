package obs

import "github.com/yanun0323/logs"

// Logger prefixes every line with the emitting component, the bit of
// structure github.com/yanun0323/logs leaves to callers.
type Logger struct {
	component string
}

func NewLogger(component string) Logger {
	return Logger{component: component}
}

func (l Logger) Info(msg string) {
	logs.Infof("[%s] %s", l.component, msg)
}

func (l Logger) Infof(format string, args ...any) {
	logs.Infof("[%s] "+format, append([]any{l.component}, args...)...)
}

// Warnf has no dedicated level in the underlying logger; a [WARN] tag
// keeps it greppable without depending on a level this logger doesn't
// expose.
func (l Logger) Warnf(format string, args ...any) {
	logs.Infof("[%s][WARN] "+format, append([]any{l.component}, args...)...)
}

func (l Logger) Errorf(format string, args ...any) {
	logs.Errorf("[%s] "+format, append([]any{l.component}, args...)...)
}
