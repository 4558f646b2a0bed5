package display

import (
	"fmt"
	"os"

	"github.com/yannisouraghi/nexra-vision/internal/logging"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if logging.Magenta != "" {
		fmt.Fprint(os.Stdout, "\033[1;95m")
	}
	fmt.Fprint(os.Stdout, ` _   _                    __     ___     _
| \ | | _____  ___ __ __ _\ \   / (_)___(_) ___  _ __
|  \| |/ _ \ \/ / '__/ _`+"`"+` |\ \ / /| / __| |/ _ \| '_ \
| |\  |  __/>  <| | | (_| | \ V / | \__ \ | (_) | | | |
|_| \_|\___/_/\_\_|  \__,_|  \_/  |_|___/_|\___/|_| |_|
`)
	if logging.Magenta != "" {
		fmt.Fprintln(os.Stdout, logging.NC)
	}
}
