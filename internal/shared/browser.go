package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// stubbed in tests to exercise each platform branch
var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser launches the default browser at the given URL. The auth
// command uses it to send the user to the Spotify consent page; if no
// launcher exists for the platform the caller falls back to printing the
// URL for the user to open by hand.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
