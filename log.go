package chocoraga

import (
	"log"
	"sync/atomic"
)

var verboseMode atomic.Bool

// SetVerbose turns verbose logging on or off for the whole process.
func SetVerbose(verbose bool) {
	verboseMode.Store(verbose)
}

// Verbose reports whether verbose logging is on.
func Verbose() bool {
	return verboseMode.Load()
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if verboseMode.Load() {
		log.Printf(format, v...)
	}
}
