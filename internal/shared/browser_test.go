package shared

import (
	"strings"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		err := OpenBrowser("http://127.0.0.1:8080/auth/login")
		if err == nil {
			t.Fatal("expected error for unsupported platform")
		}
		if !strings.Contains(err.Error(), "plan9") {
			t.Errorf("error should name the platform, got %v", err)
		}
	})

	t.Run("missing launcher", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "linux" }
		defer func() { getRuntime = orig }()

		// Point the launcher lookup at an empty PATH so xdg-open cannot be
		// found regardless of the host.
		t.Setenv("PATH", t.TempDir())

		if err := OpenBrowser("http://127.0.0.1:8080/auth/login"); err == nil {
			t.Error("expected error when no launcher is available")
		}
	})
}
