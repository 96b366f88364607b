package common

import (
	"io"
	"log"
	"os"
)

var logger = log.New(os.Stderr, "[calctl] ", log.LstdFlags|log.Lmicroseconds)

// SetOutput redirects the package logger, typically to a rotating file
// writer multiplexed with stderr.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}
