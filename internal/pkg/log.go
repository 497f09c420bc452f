package pkg

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/powerman/structlog"
)

var initLogOnce sync.Once

// InitLog sets up the default logger, debug enables the command trace.
// The output format is set once, later calls only change the level.
func InitLog(debug bool) {
	initLogOnce.Do(func() {
		structlog.DefaultLogger.
			SetPrefixKeys(
				structlog.KeyApp, structlog.KeyPID, structlog.KeyLevel, structlog.KeyUnit, structlog.KeyTime,
			).
			SetDefaultKeyvals(
				structlog.KeyApp, filepath.Base(os.Args[0]),
				structlog.KeySource, structlog.Auto,
			).
			SetSuffixKeys(structlog.KeySource).
			SetKeysFormat(map[string]string{
				structlog.KeyTime:   " %[2]s",
				structlog.KeySource: " %6[2]s",
				structlog.KeyUnit:   " %6[2]s",
			})
	})
	level := structlog.INF
	if debug {
		level = structlog.DBG
	}
	structlog.DefaultLogger.SetLogLevel(level)
}
