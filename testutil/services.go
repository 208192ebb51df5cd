package testutil

import (
	"io"
	"log"

	"github.com/mathvision/mdm/core"
	logsvc "github.com/mathvision/mdm/services/logger"
)

// NewLogger returns a core.Logger that discards everything.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
}
