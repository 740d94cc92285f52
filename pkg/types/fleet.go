package types

// UnnamedInstance is reported for instances without a "Name" tag
const UnnamedInstance = "UNNAMED"

// NameTagKey is the tag key used to resolve an instance's display name
const NameTagKey = "Name"

// Tag represents a key/value tag attached to an instance
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// InstanceRecord is the descriptive record of an instance as listed upstream
type InstanceRecord struct {
	InstanceID string `json:"instance_id"`
	Tags       []Tag  `json:"tags,omitempty"`
}

// Name returns the value of the first "Name" tag, or UnnamedInstance
func (r InstanceRecord) Name() string {
	for _, tag := range r.Tags {
		if tag.Key == NameTagKey {
			return tag.Value
		}
	}
	return UnnamedInstance
}

// StatusRecord is the per-instance status reported upstream.
// Empty fields mean the upstream omitted them.
type StatusRecord struct {
	InstanceID     string         `json:"instance_id"`
	LifecycleState LifecycleState `json:"lifecycle_state"`
	InstanceStatus HealthStatus   `json:"instance_status"`
	SystemStatus   HealthStatus   `json:"system_status"`
}

// LifecycleState is the coarse power/boot state of an instance
type LifecycleState string

// HealthStatus is a provider-reported health classification
type HealthStatus string

// Lifecycle states reported for an instance
const (
	LifecyclePending      LifecycleState = "pending"
	LifecycleRunning      LifecycleState = "running"
	LifecycleStopping     LifecycleState = "stopping"
	LifecycleStopped      LifecycleState = "stopped"
	LifecycleShuttingDown LifecycleState = "shutting-down"
	LifecycleTerminated   LifecycleState = "terminated"
)

// Instance and system status classifications
const (
	StatusOK               HealthStatus = "ok"
	StatusImpaired         HealthStatus = "impaired"
	StatusInsufficientData HealthStatus = "insufficient-data"
	StatusNotApplicable    HealthStatus = "not-applicable"
	StatusInitializing     HealthStatus = "initializing"
)

// InstanceSummary is the canonical view of one instance in a snapshot
type InstanceSummary struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	LifecycleState LifecycleState `json:"lifecycle_state"`
	InstanceStatus HealthStatus   `json:"instance_status"`
	SystemStatus   HealthStatus   `json:"system_status"`
}

// FleetSnapshot is the ordered list of instance summaries in discovery order
type FleetSnapshot struct {
	Instances []InstanceSummary `json:"instances"`
}

// Len returns the number of instances in the snapshot
func (s FleetSnapshot) Len() int {
	return len(s.Instances)
}

// QueueHealth holds the portal's queue depth metrics
type QueueHealth struct {
	Pending int64 `json:"pending"`
	Errors  int64 `json:"errors"`
}

// Verdict is the outcome of comparing a snapshot against its baseline
type Verdict int

const (
	// VerdictNone means change tracking is disabled
	VerdictNone Verdict = iota
	// VerdictUnchanged means the rendering matches the baseline exactly
	VerdictUnchanged
	// VerdictChanged means there was no baseline or the rendering differs
	VerdictChanged
)

// String returns the verdict name used in logs
func (v Verdict) String() string {
	switch v {
	case VerdictUnchanged:
		return "unchanged"
	case VerdictChanged:
		return "changed"
	default:
		return "none"
	}
}

// NotificationDecision is the aggregated outcome of a run
type NotificationDecision struct {
	ShouldSend bool   `json:"should_send"`
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body,omitempty"`
}
