//go:build windows

package process

import (
	"fmt"
	"os"
	"strings"
)

// ParseSignal on windows accepts only the default kill signal name, since
// there is no real signal delivery to translate to (see process_windows.go).
func ParseSignal(name string) (os.Signal, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" || key == "SIGKILL" || key == "KILL" {
		return DefaultKillSignal, nil
	}
	return nil, fmt.Errorf("process: signal %q is not supported on windows", name)
}
