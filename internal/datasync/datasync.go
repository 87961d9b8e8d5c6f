// Package datasync runs the optional post-write sync hook. The hook is an
// external command (typically a script pushing the data directory to a
// remote); its failures are reported to the caller, who logs them and moves
// on. A broken sync must never fail a registration.
package datasync

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// runTimeout bounds one hook invocation so a hung remote cannot pile up
// goroutines behind the store.
const runTimeout = 30 * time.Second

// Hook is invoked after every successful identity store write.
type Hook interface {
	Run(ctx context.Context) error
}

// Command is a Hook that shells out to a configured command in a working
// directory (usually the data directory itself).
type Command struct {
	command string
	dir     string
}

// NewCommand returns a Command hook. command is passed to `sh -c`.
func NewCommand(command, dir string) *Command {
	return &Command{command: command, dir: dir}
}

func (c *Command) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	cmd.Dir = c.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("datasync: %q: %w (output: %s)", c.command, err, out)
	}
	return nil
}
