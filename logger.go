package msgcall

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the package's logger. It uses a no-op logger until
// [SetLogger] is called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLogger
}

var nopLogger = zap.NewNop()

// SetLogger configures the package's logger. A nil logger restores
// the no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

const debugCalls = false

func debugf(format string, args ...any) {
	if !debugCalls {
		return
	}
	Logger().Sugar().Debugf(format, args...)
}
