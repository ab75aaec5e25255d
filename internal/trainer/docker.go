package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// DockerBackend executes the ModelScope trainer inside a container.
//
// The current working directory is bind-mounted at /workspace so the
// relative dataset and work-dir paths from the training config resolve the
// same way they do for the process backend. The container is removed after
// the run; its output lands in the run log.
type DockerBackend struct {
	client *client.Client

	// Image is the ModelScope trainer image.
	Image string

	// Script is the trainer entry point path inside the workspace.
	Script string
}

// workspaceMountPath is where the host working directory appears in the
// trainer container.
const workspaceMountPath = "/workspace"

// NewDockerBackend creates a docker backend and verifies daemon
// connectivity.
func NewDockerBackend(image, script string) (*DockerBackend, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("docker daemon not reachable: %w", err)
	}

	return &DockerBackend{client: cli, Image: image, Script: script}, nil
}

// Name returns the backend identifier.
func (b *DockerBackend) Name() string { return "docker" }

// Close releases the docker client.
func (b *DockerBackend) Close() error {
	return b.client.Close()
}

// Run creates, starts, and waits for a trainer container. Cancelling ctx
// stops the container. The container is force-removed on exit either way.
func (b *DockerBackend) Run(ctx context.Context, job *Job, logs io.Writer) error {
	hostDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	cmd := append([]string{"python", b.Script}, JobArgs(job)...)
	created, err := b.client.ContainerCreate(ctx,
		&container.Config{
			Image:      b.Image,
			Cmd:        cmd,
			WorkingDir: workspaceMountPath,
			Env: []string{
				"LOCAL_RANK=0",
				"MODELSCOPE_CACHE=" + workspaceMountPath + "/.modelscope_cache",
			},
		},
		&container.HostConfig{
			Binds: []string{hostDir + ":" + workspaceMountPath},
		},
		nil, nil, "")
	if err != nil {
		return fmt.Errorf("failed to create trainer container: %w", err)
	}
	containerID := created.ID

	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := b.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			logger.Warn("Failed to remove trainer container %s: %v", shortID(containerID), err)
		}
	}()

	if err := b.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start trainer container: %w", err)
	}
	logger.Info("Trainer container %s started (image %s)", shortID(containerID), b.Image)

	// Stream container output into the run log while waiting.
	logReader, err := b.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		logger.Warn("Failed to attach to container logs: %v", err)
	} else {
		defer logReader.Close()
		go func() {
			if _, err := stdcopy.StdCopy(logs, logs, logReader); err != nil && ctx.Err() == nil {
				logger.Debug("Container log copy ended: %v", err)
			}
		}()
	}

	waitCh, errCh := b.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed waiting for trainer container: %w", err)
	case status := <-waitCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("trainer container exited with code %d", status.StatusCode)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
