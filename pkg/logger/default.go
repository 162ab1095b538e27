package logger

import "sync"

var (
	defMu  sync.RWMutex
	defLog Logger = nopLogger{}
)

// SetDefault installs the process-wide logger used by library packages that
// are not handed one explicitly.
func SetDefault(l Logger) {
	defMu.Lock()
	defLog = l
	defMu.Unlock()
}

// Default returns the process-wide logger; a silent logger until SetDefault
// is called.
func Default() Logger {
	defMu.RLock()
	defer defMu.RUnlock()
	return defLog
}

type nopLogger struct{}

func (nopLogger) WithField(string, any) Logger       { return nopLogger{} }
func (nopLogger) WithFields(map[string]any) Logger   { return nopLogger{} }
func (nopLogger) WithError(error) Logger             { return nopLogger{} }
func (nopLogger) Trace(...any)                       {}
func (nopLogger) Debug(...any)                       {}
func (nopLogger) Info(...any)                        {}
func (nopLogger) Warn(...any)                        {}
func (nopLogger) Error(...any)                       {}
func (nopLogger) Fatal(...any)                       {}
func (nopLogger) Tracef(string, ...any)              {}
func (nopLogger) Debugf(string, ...any)              {}
func (nopLogger) Infof(string, ...any)               {}
func (nopLogger) Warnf(string, ...any)               {}
func (nopLogger) Errorf(string, ...any)              {}
func (nopLogger) Fatalf(string, ...any)              {}
func (nopLogger) SetLevel(Level)                     {}
func (nopLogger) GetLevel() Level                    { return Disabled }
