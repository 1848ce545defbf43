package mumcore

import (
	"fmt"
	"os"
)

// Verbose controls whether Vprint/Vprintf/Vprintln write anything. The
// core never logs fatal conditions on its own (see errors.go); this is
// strictly progress narration for long-running batch callers.
var Verbose = false

func Vprint(s string) {
	if !Verbose {
		return
	}
	fmt.Fprint(os.Stderr, s)
}

func Vprintf(format string, v ...interface{}) {
	if !Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, format, v...)
}

func Vprintln(s string) {
	if !Verbose {
		return
	}
	fmt.Fprintln(os.Stderr, s)
}
