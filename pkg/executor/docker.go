package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/types"
)

const labelManaged = "orbit.managed"
const labelComponentID = "orbit.component.id"

// Docker realises docker-type components through the Docker Engine
// API, rather than an embedded container runtime: Orbit's Agent talks
// to whatever docker daemon already runs on the host.
type Docker struct {
	client  *client.Client
	workDir string
}

// NewDocker creates a Docker executor against the local daemon
// (DOCKER_HOST / default socket, as configured by the environment).
func NewDocker(workDir string) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Docker{client: cli, workDir: workDir}, nil
}

var _ Executor = (*Docker)(nil)

// Prepare pulls the component's image and writes its config files.
func (d *Docker) Prepare(ctx context.Context, comp *types.Component) error {
	if _, err := writeConfigFiles(d.workDir, comp); err != nil {
		return err
	}

	ref := comp.Config.ImageURL
	if ref == "" {
		ref = comp.Config.ImageName
	}
	if ref == "" {
		return fmt.Errorf("component %s has no image reference", comp.ID)
	}

	out, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return apierr.Execution(fmt.Errorf("pull image %s: %v", ref, err))
	}
	defer out.Close()
	if _, err := io.Copy(io.Discard, out); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	return nil
}

// Start creates and starts the container, returning its ID.
func (d *Docker) Start(ctx context.Context, comp *types.Component) (string, error) {
	dir, err := componentDir(d.workDir, comp.ID)
	if err != nil {
		return "", err
	}

	ref := comp.Config.ImageURL
	if ref == "" {
		ref = comp.Config.ImageName
	}

	env := make([]string, 0, len(comp.Config.Environment))
	for k, v := range comp.Config.Environment {
		env = append(env, k+"="+v)
	}

	hostConfig := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: "no"},
	}
	if len(comp.Config.ConfigFiles) > 0 {
		hostConfig.Mounts = []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   dir,
			Target:   "/etc/orbit/config",
			ReadOnly: true,
		}}
	}
	if r := comp.Config.Resources; r != nil {
		if r.MemoryMB > 0 {
			hostConfig.Memory = r.MemoryMB * 1024 * 1024
		}
		if r.CPUCores > 0 {
			hostConfig.NanoCPUs = int64(r.CPUCores * 1e9)
		}
	}

	var exposedPorts nat.PortSet
	if len(comp.Config.Ports) > 0 {
		var err error
		exposedPorts, hostConfig.PortBindings, err = nat.ParsePortSpecs(comp.Config.Ports)
		if err != nil {
			return "", fmt.Errorf("parse ports for %s: %w", comp.ID, err)
		}
	}

	resp, err := d.client.ContainerCreate(ctx,
		&container.Config{
			Image:        ref,
			Env:          env,
			ExposedPorts: exposedPorts,
			Labels: map[string]string{
				labelManaged:     "true",
				labelComponentID: comp.ID,
			},
		},
		hostConfig,
		nil, nil,
		containerName(comp.ID),
	)
	if err != nil {
		return "", fmt.Errorf("create container for %s: %w", comp.ID, err)
	}

	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = d.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", apierr.Execution(fmt.Errorf("start container for %s: %v", comp.ID, err))
	}

	return resp.ID, nil
}

// Stop stops the container; permanently also removes it and its
// on-disk config directory.
func (d *Docker) Stop(ctx context.Context, componentID, handle string, permanently bool) error {
	timeout := 5
	if err := d.client.ContainerStop(ctx, handle, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stop container %s: %w", handle, err)
	}
	if permanently {
		if err := d.client.ContainerRemove(ctx, handle, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return fmt.Errorf("remove container %s: %w", handle, err)
		}
		if err := removeComponentDir(d.workDir, componentID); err != nil {
			return err
		}
	}
	return nil
}

// Query inspects the container and, when running, its live stats.
func (d *Docker) Query(ctx context.Context, handle string) (Status, error) {
	inspect, err := d.client.ContainerInspect(ctx, handle)
	if err != nil {
		return Status{}, fmt.Errorf("inspect container %s: %w", handle, err)
	}

	status := Status{Running: inspect.State != nil && inspect.State.Running}
	if !status.Running {
		return status, nil
	}

	statsResp, err := d.client.ContainerStats(ctx, handle, false)
	if err != nil {
		return status, nil
	}
	defer statsResp.Body.Close()

	var stats container.StatsResponse
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		return status, nil
	}

	status.MemoryUsedMB = int64(stats.MemoryStats.Usage) / (1024 * 1024)
	if stats.CPUStats.CPUUsage.TotalUsage > 0 && stats.PreCPUStats.CPUUsage.TotalUsage > 0 {
		cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage - stats.PreCPUStats.CPUUsage.TotalUsage)
		sysDelta := float64(stats.CPUStats.SystemUsage - stats.PreCPUStats.SystemUsage)
		if sysDelta > 0 {
			status.CPUPercent = (cpuDelta / sysDelta) * float64(len(stats.CPUStats.CPUUsage.PercpuUsage)) * 100.0
		}
	}

	return status, nil
}

// ManagedContainers returns all container IDs carrying the orbit-managed
// label, used by the Agent on startup to reconcile existing state.
func (d *Docker) ManagedContainers(ctx context.Context) ([]string, error) {
	f := filters.NewArgs()
	f.Add("label", labelManaged+"=true")

	containers, err := d.client.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("list managed containers: %w", err)
	}

	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func containerName(componentID string) string {
	return "orbit-" + componentID
}
