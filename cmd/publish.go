package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// Publish runs a single snapshot cycle: token check, playback fetch, palette
// extraction, and one broker publish. Mirrors what one tick of the poll loop
// does, for cron-style setups and debugging.
func (r *Runner) Publish(ctx context.Context, cmd *cli.Command) error {
	if err := r.reload(cmd.String("config")); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	defer r.close()

	snapshot, err := r.engine.Cycle(ctx)
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshot, cmd.Bool("pretty"))
	}

	if snapshot.Track != nil {
		r.writePlain("✓ Published %q to %s\n", snapshot.Track.Name, r.config.Broker.Topic)
	} else {
		r.writePlain("✓ Published not-playing snapshot to %s\n", r.config.Broker.Topic)
	}
	return nil
}
