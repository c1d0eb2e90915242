package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTool is the container runtime used when none is selected.
const DefaultTool = "podman"

// SupportedTool reports whether name is a container runtime this client
// knows how to drive.
func SupportedTool(name string) bool {
	return name == "podman" || name == "docker"
}

// Client drives one ephemeral container through an external runtime tool
// (podman or docker). The zero value is not usable; construct with NewClient.
type Client struct {
	tool   string
	image  string
	id     string
	runner Runner
	logger *zap.Logger

	startTimeout time.Duration
}

// NewClient creates a client for a container of the given image. No
// container exists until Create is called.
func NewClient(tool, image string, runner Runner, logger *zap.Logger) *Client {
	return &Client{
		tool:         tool,
		image:        image,
		runner:       runner,
		logger:       logger,
		startTimeout: 30 * time.Second,
	}
}

// Tool returns the runtime tool name this client shells out to.
func (c *Client) Tool() string { return c.tool }

// ID returns the container ID, or "" before Create / after Remove.
func (c *Client) ID() string { return c.id }

// Create creates the container, starts it, and waits until the runtime
// reports it running.
func (c *Client) Create(ctx context.Context) error {
	if c.id != "" {
		return fmt.Errorf("container %s already exists", c.id)
	}
	result, err := c.runner.Run(ctx, c.tool, "create", "-ti", c.image, "tail", "-f", "/dev/null")
	if err != nil {
		return fmt.Errorf("create container from %q: %w", c.image, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("create container from %q: %s", c.image, strings.TrimSpace(result.Stderr))
	}
	c.id = strings.TrimSpace(result.Stdout)
	c.logger.Info("container created",
		zap.String("id", c.id),
		zap.String("image", c.image),
		zap.String("tool", c.tool))

	if err := c.start(ctx); err != nil {
		return err
	}
	return c.waitRunning(ctx)
}

func (c *Client) start(ctx context.Context) error {
	result, err := c.runner.Run(ctx, c.tool, "start", c.id)
	if err != nil {
		return fmt.Errorf("start container %s: %w", c.id, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("start container %s: %s", c.id, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// waitRunning polls the runtime once per second until the container reports
// a running state or the start timeout elapses.
func (c *Client) waitRunning(ctx context.Context) error {
	deadline := time.Now().Add(c.startTimeout)
	for {
		result, err := c.runner.Run(ctx, c.tool, "inspect", "-f", "{{.State.Running}}", c.id)
		if err == nil && result.ExitCode == 0 && strings.TrimSpace(result.Stdout) == "true" {
			c.logger.Info("container running", zap.String("id", c.id))
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("container %s did not reach running state within %s", c.id, c.startTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// CopyTo copies a host file or directory into the container.
func (c *Client) CopyTo(ctx context.Context, src, dest string) error {
	if c.id == "" {
		return fmt.Errorf("container not available for copy")
	}
	result, err := c.runner.Run(ctx, c.tool, "cp", src, c.id+":"+dest)
	if err != nil {
		return fmt.Errorf("copy %q into container: %w", src, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("copy %q to %q: %s", src, dest, strings.TrimSpace(result.Stderr))
	}
	c.logger.Debug("copied into container",
		zap.String("id", c.id),
		zap.String("src", src),
		zap.String("dest", dest))
	return nil
}

// Exec runs a command through bash inside the container. A non-zero exit
// code is data, not an error: it comes back in the result.
func (c *Client) Exec(ctx context.Context, command string) (ExecResult, error) {
	if c.id == "" {
		return ExecResult{}, fmt.Errorf("container not available for exec")
	}
	c.logger.Debug("exec in container", zap.String("id", c.id), zap.String("command", command))
	result, err := c.runner.Run(ctx, c.tool, "exec", c.id, "bash", "-c", command)
	if err != nil {
		return result, fmt.Errorf("exec in container %s: %w", c.id, err)
	}
	return result, nil
}

// ExportPaths extracts the given container-absolute paths into hostDir by
// piping a full container export through tar. The exported tree is made
// user-traversable afterwards so the diff walk can read it.
func (c *Client) ExportPaths(ctx context.Context, paths []string, hostDir string) error {
	if c.id == "" {
		return fmt.Errorf("container not available for export")
	}
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cleaned = append(cleaned, fmt.Sprintf("%q", strings.TrimLeft(p, "/")))
	}

	pipeline := fmt.Sprintf("%s export %s | tar -x -C %q %s",
		c.tool, c.id, hostDir, strings.Join(cleaned, " "))
	c.logger.Debug("exporting container paths", zap.String("id", c.id), zap.String("pipeline", pipeline))

	result, err := c.runner.RunShell(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("export from container %s: %w", c.id, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("export from container %s: %s", c.id, strings.TrimSpace(result.Stderr))
	}

	chmod := fmt.Sprintf("chmod -R u+rwx %q", hostDir)
	if result, err = c.runner.RunShell(ctx, chmod); err != nil {
		return fmt.Errorf("fix exported tree permissions: %w", err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("fix exported tree permissions: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Remove force-removes the container. It is safe to call more than once
// and after a failed Create.
func (c *Client) Remove(ctx context.Context) error {
	if c.id == "" {
		return nil
	}
	id := c.id
	c.id = ""
	result, err := c.runner.Run(ctx, c.tool, "rm", "-f", id)
	if err != nil {
		return fmt.Errorf("remove container %s: %w", id, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("remove container %s: %s", id, strings.TrimSpace(result.Stderr))
	}
	c.logger.Info("container removed", zap.String("id", id))
	return nil
}
