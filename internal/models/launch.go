// Package models defines the data structures used for DRS launch-profile
// reconciliation.
package models

// DesiredStateRecord holds the operator-requested launch profile for one
// DRS source server. A nil field means the operator expressed no opinion
// about that field; it is never the same as an explicit empty value.
type DesiredStateRecord struct {
	SourceServerID string
	Hostname       string
	// OriginInstanceID is the replicated instance on the source side.
	// Informational only; records are keyed by SourceServerID.
	OriginInstanceID string

	LaunchState   *string
	SubnetID      *string
	CopyPrivateIP *string
	// PrivateIPs is ordered: the first entry becomes the primary address.
	// nil means absent; an empty non-nil slice is an explicit (invalid) request.
	PrivateIPs      []string
	RightsizingMode *string
	InstanceType    *string
	// SecurityGroupIDs is an unordered replacement set. nil means absent.
	SecurityGroupIDs []string
	// Volumes maps device name to the requested per-volume changes.
	Volumes map[string]VolumePatchRequest
}

// VolumePatchRequest carries requested changes for one block device.
// Values are kept raw; validation parses them with device context.
type VolumePatchRequest struct {
	Type       *string
	IOPS       *string
	Throughput *string
}

// ActualConfigurationState mirrors the DRS launch configuration for one
// source server. Owned by DRS; mutated only through the apply adapter.
type ActualConfigurationState struct {
	SourceServerID    string
	LaunchDisposition string
	CopyPrivateIP     bool
	RightsizingMethod string
	TemplateID        string
}

// ActualTemplateState mirrors one version of the EC2 launch template backing
// a source server. Versions are immutable: changes produce a new version
// which is then promoted to default.
type ActualTemplateState struct {
	TemplateID   string
	Version      int64
	InstanceType string

	NetworkInterface NetworkInterfaceState
	BlockDevices     []BlockDeviceState
	TagSpecs         []TagSpec
}

// NetworkInterfaceState is the primary network interface of the template.
type NetworkInterfaceState struct {
	SubnetID   string
	PrivateIPs []PrivateIPSpec
	Groups     []string
}

// PrivateIPSpec is one private address assignment; position in the list is
// significant because exactly one entry is primary.
type PrivateIPSpec struct {
	Primary bool
	Address string
}

// BlockDeviceState is the EBS configuration of one mapped device.
type BlockDeviceState struct {
	DeviceName string
	VolumeType string
	IOPS       int32
	Throughput int32
}

// TagSpec is a launch-template tag specification for one resource type.
type TagSpec struct {
	ResourceType string
	Tags         []Tag
}

// Tag is a single key/value tag.
type Tag struct {
	Key   string
	Value string
}

// ConfigurationPatch is the fully resolved launch-configuration payload.
// DRS updates replace all three fields, so the patch always carries the
// complete resolved state even when only one field changed.
type ConfigurationPatch struct {
	LaunchDisposition string
	CopyPrivateIP     bool
	RightsizingMethod string
}

// TemplatePatch describes a new launch-template version derived from
// SourceVersion. Only the changed sections are populated; unset sections are
// inherited from the source version so unrelated fields are never touched.
type TemplatePatch struct {
	TemplateID    string
	SourceVersion int64

	InstanceType     *string
	NetworkInterface *NetworkInterfaceState
	BlockDevices     []BlockDeviceState
	TagSpecs         []TagSpec
}

// Empty reports whether the patch carries no sections.
func (p *TemplatePatch) Empty() bool {
	return p.InstanceType == nil &&
		p.NetworkInterface == nil &&
		len(p.BlockDevices) == 0 &&
		len(p.TagSpecs) == 0
}

// PatchPlan is the outcome of one planning pass for one source server.
// It is constructed by the planner, consumed by the apply adapter, and
// then discarded.
type PatchPlan struct {
	SourceServerID string

	ConfigurationChanged bool
	TemplateChanged      bool

	Configuration ConfigurationPatch
	Template      TemplatePatch
}

// Outcome classifies the result of reconciling one source server.
type Outcome string

const (
	OutcomeNoOp            Outcome = "no-op"
	OutcomeConfigUpdated   Outcome = "config-updated"
	OutcomeTemplateUpdated Outcome = "template-updated"
	OutcomeBothUpdated     Outcome = "both-updated"
	OutcomeFailed          Outcome = "failed"
)

// ReconcileResult is the per-server record emitted to the outcome sink.
type ReconcileResult struct {
	SourceServerID string  `json:"source_server_id"`
	Hostname       string  `json:"hostname,omitempty"`
	Outcome        Outcome `json:"outcome"`
	// ConfigPlanned/TemplatePlanned report the dirty flags of the computed
	// plan; in dry-run mode they show what would have been applied.
	ConfigPlanned   bool   `json:"config_planned"`
	TemplatePlanned bool   `json:"template_planned"`
	NewVersion      int64  `json:"new_template_version,omitempty"`
	Error           string `json:"error,omitempty"`
}

// RunReport aggregates one reconciliation pass over all servers.
type RunReport struct {
	Total   int  `json:"total"`
	Updated int  `json:"updated"`
	Failed  int  `json:"failed"`
	DryRun  bool `json:"dry_run,omitempty"`
	// AnyChanges is true iff at least one server applied a change; callers
	// use it to decide whether to refresh the actual-state snapshot.
	AnyChanges bool              `json:"any_changes"`
	Results    []ReconcileResult `json:"results"`
}
