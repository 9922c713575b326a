// Package docker implements provision.Engine using the Docker Engine API.
package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"camrig/internal/provision"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// composeProjectLabel is the label the compose plugin stamps on every
// container it creates. ListProject filters on it.
const composeProjectLabel = "com.docker.compose.project"

var _ provision.Engine = (*Engine)(nil)

// Engine wraps a Docker API client.
type Engine struct {
	cli client.APIClient
}

// NewEngine creates an Engine with a new Docker client from the environment.
func NewEngine() (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Engine{cli: cli}, nil
}

// NewEngineFromClient wraps an existing Docker client.
func NewEngineFromClient(cli client.APIClient) *Engine {
	return &Engine{cli: cli}
}

// WaitReady pings the daemon once a second until it answers. Connection
// failures mean the daemon is still coming up; any other error is fatal.
func (e *Engine) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		_, err := e.cli.Ping(ctx)
		if err == nil {
			return nil
		}
		if !client.IsErrConnectionFailed(err) {
			return fmt.Errorf("connect to docker daemon: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListProject returns all containers, running or not, labeled with the given
// compose project.
func (e *Engine) ListProject(ctx context.Context, project string) ([]provision.Instance, error) {
	f := filters.NewArgs(filters.Arg("label", composeProjectLabel+"="+project))
	list, err := e.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("list project %q containers: %w", project, err)
	}
	return instancesFromSummaries(list), nil
}

// ListAll returns all running containers with name, status, and image.
func (e *Engine) ListAll(ctx context.Context) ([]provision.Instance, error) {
	list, err := e.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	return instancesFromSummaries(list), nil
}

func (e *Engine) Close() error {
	return e.cli.Close()
}

func instancesFromSummaries(list []container.Summary) []provision.Instance {
	out := make([]provision.Instance, 0, len(list))
	for _, c := range list {
		out = append(out, instanceFromSummary(c))
	}
	return out
}

func instanceFromSummary(c container.Summary) provision.Instance {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return provision.Instance{
		Name:   name,
		Status: c.Status,
		Image:  c.Image,
	}
}
