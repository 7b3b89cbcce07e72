package display

import (
	"fmt"
	"os"

	"audioprep/internal/logging"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if logging.Magenta != "" {
		fmt.Fprint(os.Stdout, logging.Magenta)
	}
	fmt.Fprint(os.Stdout, `    _             _ _       ____
   / \  _   _  __| (_) ___ |  _ \ _ __ ___ _ __
  / _ \| | | |/ _`+"`"+` | |/ _ \| |_) | '__/ _ \ '_ \
 / ___ \ |_| | (_| | | (_) |  __/| | |  __/ |_) |
/_/   \_\__,_|\__,_|_|\___/|_|   |_|  \___| .__/
                                          |_|
`)
	if logging.Magenta != "" {
		fmt.Fprintln(os.Stdout, logging.NC)
	}
}
