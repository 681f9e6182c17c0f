package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/desertthunder/prism/internal/shared"
	tu "github.com/desertthunder/prism/internal/testing"
)

func TestSetupDatabase(t *testing.T) {
	wd := tu.MustGetwd(t)
	tu.MustChdir(t, t.TempDir())
	defer tu.MustChdir(t, wd)

	runner := NewRunner(RunnerOpts{
		Logger: shared.NewLogger(&bytes.Buffer{}),
	})

	cmd := setupCommand(runner)
	if err := cmd.Run(context.Background(), []string{"setup"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, "config.toml")
	tu.AssertFileExists(t, "prism.db")

	if content := tu.MustReadFile(t, "config.toml"); !strings.Contains(content, `path = "./prism.db"`) {
		t.Errorf("starter config missing database path: %s", content)
	}
}
