package batch

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// openFile hands path to the operating system's default handler. The call
// is fire-and-forget: the viewer process is released, never waited on.
func openFile(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s with default viewer: %w", path, err)
	}
	return cmd.Process.Release()
}
