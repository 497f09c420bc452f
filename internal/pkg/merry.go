package pkg

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"
)

// PrintMerryStacktrace logs the stack captured by merry when e was created,
// one frame per line. Errors without a stack print nothing.
func PrintMerryStacktrace(log *structlog.Logger, e error) {
	for i, fp := range merry.Stack(e) {
		fnc := runtime.FuncForPC(fp)
		if fnc == nil {
			continue
		}
		name := filepath.Base(fnc.Name())
		if name == "runtime.goexit" {
			continue
		}
		f, l := fnc.FileLine(fp)
		log.PrintErr(fmt.Sprintf("%s:%d %s", filepath.ToSlash(f), l, name), "frame", i)
	}
}
