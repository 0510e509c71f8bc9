package vserial

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

var pkgLogger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	pkgLogger.Store(&nop)
}

// logger returns the package diagnostic logger. It is silent until
// SetLogger is called.
func logger() *zerolog.Logger {
	return pkgLogger.Load()
}

// SetLogger replaces the package logger. It is safe to call while
// adapters are running.
func SetLogger(l zerolog.Logger) {
	l = l.With().Str("component", "vserial").Logger()
	pkgLogger.Store(&l)
}
