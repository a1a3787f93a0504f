package logger

import (
	"io"

	"github.com/fatih/color" // Colored console output, one color per level
)

// Printf-style level functions. Each one prints its message in the level's
// color; callers add the bracketed level prefix themselves, e.g.
//
//	logger.Info("[INFO] Copying UI bundle to %s\n", dst)
var (
	// Info reports normal progress, one line per installer step.
	Info func(format string, a ...any)

	// Warn reports problems the run can continue past.
	Warn func(format string, a ...any)

	// Error reports the failure that ends the run.
	Error func(format string, a ...any)

	// Debug prints command lines and captured output. It is a no-op unless
	// Init was called with debug enabled.
	Debug func(format string, a ...any)
)

var (
	out   io.Writer = color.Output
	debug bool
)

func init() {
	build()
}

// Init enables or disables debug logging.
func Init(enableDebug bool) {
	debug = enableDebug
	build()
}

// SetOutput redirects every level to w. Tests use it to capture output.
func SetOutput(w io.Writer) {
	out = w
	build()
}

func build() {
	Info = printer(color.FgGreen)
	Warn = printer(color.FgHiMagenta)
	Error = printer(color.FgRed)
	if debug {
		Debug = printer(color.FgCyan)
	} else {
		Debug = func(format string, a ...any) {}
	}
}

// printer returns a printf func writing to the current output in the given color.
func printer(attr color.Attribute) func(format string, a ...any) {
	fprintf := color.New(attr).FprintfFunc()
	w := out
	return func(format string, a ...any) {
		fprintf(w, format, a...)
	}
}
