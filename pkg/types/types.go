package types

import "time"

// NodeStatus is the liveness state of a Node as tracked by the Liveness
// Monitor.
type NodeStatus string

const (
	NodeStatusOnline  NodeStatus = "online"
	NodeStatusOffline NodeStatus = "offline"
)

// NodeKind distinguishes a plain host node from a chassis slot. Both
// follow the same registration/heartbeat/telemetry path; folding slots
// into Node avoids a parallel chassis/slot schema.
type NodeKind string

const (
	NodeKindHost NodeKind = "host"
	NodeKindSlot NodeKind = "slot"
)

// Node is a registered host, or chassis slot, in the fleet.
type Node struct {
	ID        string   `json:"node_id"`
	Kind      NodeKind `json:"kind,omitempty"`
	Hostname  string   `json:"hostname"`
	IPAddress string   `json:"ip_address"`
	OSInfo    string   `json:"os_info"`
	CPUModel  string   `json:"cpu_model"`
	GPUCount  int      `json:"gpu_count"`
	Port      int      `json:"port"`

	// ParentChassisID and SlotIndex are set when Kind == NodeKindSlot;
	// zero value for plain hosts.
	ParentChassisID string `json:"parent_chassis_id,omitempty"`
	SlotIndex       int    `json:"slot_index,omitempty"`

	Status     NodeStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
}

// ComponentType distinguishes the two workload shapes Orbit executes.
type ComponentType string

const (
	ComponentTypeDocker ComponentType = "docker"
	ComponentTypeBinary ComponentType = "binary"
)

// ResourceLimits describes a component's advisory resource envelope.
type ResourceLimits struct {
	CPUCores float64 `json:"cpu_cores,omitempty"`
	MemoryMB int64   `json:"memory_mb,omitempty"`
	GPUCount int     `json:"gpu_count,omitempty"`
}

// ComponentConfig is the configuration bag carried by a component template
// (as a blueprint) and by a component instance (inlined at deploy time,
// immutable thereafter).
type ComponentConfig struct {
	ImageName   string            `json:"image_name,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	BinaryPath  string            `json:"binary_path,omitempty"`
	BinaryURL   string            `json:"binary_url,omitempty"`
	Environment map[string]string `json:"environment_variables,omitempty"`
	Affinity    map[string]string `json:"affinity,omitempty"`
	Resources   *ResourceLimits   `json:"resource_requirements,omitempty"`
	ConfigFiles map[string]string `json:"config_files,omitempty"` // path -> content
	Ports       []string          `json:"ports,omitempty"`        // "hostPort:containerPort[/proto]", docker components only
}

// ComponentTemplate is a reusable blueprint for a component.
type ComponentTemplate struct {
	ID           string          `json:"component_template_id"`
	TemplateName string          `json:"template_name"`
	Type         ComponentType   `json:"type"`
	Config       ComponentConfig `json:"config"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BusinessTemplate is an ordered list of component-template references. A
// template ID may appear more than once, producing two distinct component
// instances from the same blueprint.
type BusinessTemplate struct {
	ID                   string    `json:"business_template_id"`
	TemplateName         string    `json:"template_name"`
	ComponentTemplateIDs []string  `json:"component_template_ids"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// BusinessStatus is the lifecycle state of a Business. The stored value
// records the last lifecycle command (create, stop, restart); the status
// returned on read is derived from the components on top of it.
type BusinessStatus string

const (
	BusinessStatusRunning BusinessStatus = "running"
	BusinessStatusStopped BusinessStatus = "stopped"
	BusinessStatusError   BusinessStatus = "error"
)

// Business is a named group of component instances deployed together.
type Business struct {
	ID        string         `json:"business_id"`
	Name      string         `json:"business_name"`
	Status    BusinessStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ComponentStatus is the lifecycle state of a Component, tracked both on
// the Manager's record and the Agent's own state machine.
type ComponentStatus string

const (
	ComponentStatusScheduled ComponentStatus = "scheduled"
	ComponentStatusRunning   ComponentStatus = "running"
	ComponentStatusStopped   ComponentStatus = "stopped"
	ComponentStatusError     ComponentStatus = "error"
	ComponentStatusUnknown   ComponentStatus = "unknown"
)

// Component is one instance of a component template, placed on a node.
type Component struct {
	ID          string          `json:"component_id"`
	BusinessID  string          `json:"business_id"`
	Name        string          `json:"component_name"`
	Type        ComponentType   `json:"type"`
	Config      ComponentConfig `json:"config"`
	NodeID      string          `json:"node_id,omitempty"`
	ContainerID string          `json:"container_id,omitempty"`
	ProcessID   int             `json:"process_id,omitempty"`
	Status      ComponentStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MetricKind enumerates the node resource kinds the Metrics Cache tracks.
type MetricKind string

const (
	MetricKindCPU    MetricKind = "cpu"
	MetricKindMemory MetricKind = "memory"
)

// CPUSample is a point-in-time CPU reading for a node.
type CPUSample struct {
	UsagePercent float64 `json:"usage_percent"`
	LoadAvg1m    float64 `json:"load_avg_1m"`
	LoadAvg5m    float64 `json:"load_avg_5m"`
	LoadAvg15m   float64 `json:"load_avg_15m"`
	CoreCount    int     `json:"core_count"`
}

// MemorySample is a point-in-time memory reading for a node.
type MemorySample struct {
	TotalMB      int64   `json:"total_mb"`
	UsedMB       int64   `json:"used_mb"`
	FreeMB       int64   `json:"free_mb"`
	UsagePercent float64 `json:"usage_percent"`
}

// MetricSample is the Metrics Cache's in-memory latest-value record for a
// single (node, kind) pair. Exactly one of CPU/Memory is populated,
// matching Kind.
type MetricSample struct {
	NodeID    string        `json:"node_id"`
	Kind      MetricKind    `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	CPU       *CPUSample    `json:"cpu,omitempty"`
	Memory    *MemorySample `json:"memory,omitempty"`
}

// ComponentMetric is a single durable sample in a component's metric
// history, appended by telemetry ingestion and queried most-recent-first.
type ComponentMetric struct {
	ComponentID string    `json:"component_id"`
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemoryMB    int64     `json:"memory_mb"`
	GPUPercent  float64   `json:"gpu_percent"`
}
