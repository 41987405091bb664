// Package reconcile computes and applies minimal launch-profile changes for
// DRS source servers.
//
// The planner diffs a desired-state record against the actual launch
// configuration and launch template, field by field, and produces a patch
// plan carrying only the changed sections. The reconciler drives planning
// and application across servers. Neither touches AWS directly; all API
// calls go through the injected SnapshotSource and Applier.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/protera/launchsync/internal/models"
	"github.com/protera/launchsync/internal/validate"
)

// Status tag stamped on every reconciled template's instance tags.
const (
	statusTagKey        = "protera_status"
	statusTagValue      = "newbuild"
	tagResourceInstance = "instance"
)

// BuildPlan computes the patch plan for one source server.
//
// Evaluation order matters: CopyPrivateIP is resolved before the private IP
// list (whose applicability depends on the resolved value) and the
// rightsizing method before the instance type. Any validation or lookup
// failure aborts the whole plan; no partial patch is ever returned.
//
// BuildPlan is idempotent: planning again with the same desired record
// against the applied state yields a plan with no dirty flags.
func BuildPlan(
	desired *models.DesiredStateRecord,
	cfg *models.ActualConfigurationState,
	tmpl *models.ActualTemplateState,
) (*models.PatchPlan, error) {
	plan := &models.PatchPlan{
		SourceServerID: desired.SourceServerID,
		Template: models.TemplatePatch{
			TemplateID:    tmpl.TemplateID,
			SourceVersion: tmpl.Version,
		},
	}

	// Resolved configuration values: the desired value when requested,
	// otherwise the current one. The DRS update replaces all three fields,
	// so the patch always carries the complete resolved payload.
	resolvedDisposition := cfg.LaunchDisposition
	resolvedCopyIP := cfg.CopyPrivateIP
	resolvedRightsizing := cfg.RightsizingMethod

	if desired.LaunchState != nil {
		v, err := validate.LaunchState(*desired.LaunchState)
		if err != nil {
			return nil, validationError(desired.SourceServerID, err)
		}
		if !enumEqual(cfg.LaunchDisposition, v) {
			resolvedDisposition = v
			plan.ConfigurationChanged = true
		}
	}

	if desired.CopyPrivateIP != nil {
		v, err := validate.CopyPrivateIP(*desired.CopyPrivateIP)
		if err != nil {
			return nil, validationError(desired.SourceServerID, err)
		}
		if v != cfg.CopyPrivateIP {
			plan.ConfigurationChanged = true
		}
		resolvedCopyIP = v
	}

	if desired.RightsizingMode != nil {
		v, err := validate.RightsizingMode(*desired.RightsizingMode)
		if err != nil {
			return nil, validationError(desired.SourceServerID, err)
		}
		if !enumEqual(cfg.RightsizingMethod, v) {
			plan.ConfigurationChanged = true
		}
		resolvedRightsizing = v
	}

	ni := tmpl.NetworkInterface
	niDirty := false

	if desired.SubnetID != nil && *desired.SubnetID != ni.SubnetID {
		ni.SubnetID = *desired.SubnetID
		niDirty = true
	}

	if desired.PrivateIPs != nil {
		// The private IP list is only applicable when the resolved (new)
		// copy-private-IP value is false.
		if resolvedCopyIP {
			return nil, validationError(desired.SourceServerID,
				fmt.Errorf("private IPs cannot be set while copy private IP is enabled"))
		}
		if len(desired.PrivateIPs) == 0 {
			return nil, validationError(desired.SourceServerID,
				fmt.Errorf("private IP list is empty, at least a primary address is required"))
		}
		want := buildPrivateIPs(desired.PrivateIPs)
		if !privateIPsEqual(ni.PrivateIPs, want) {
			ni.PrivateIPs = want
			niDirty = true
		}
	}

	if desired.SecurityGroupIDs != nil {
		want := normalizeSet(desired.SecurityGroupIDs)
		if !setEqual(ni.Groups, want) {
			// Replacement always rewrites the full group list.
			ni.Groups = want
			niDirty = true
		}
	}

	if niDirty {
		plan.Template.NetworkInterface = &ni
	}

	if desired.InstanceType != nil && enumEqual(resolvedRightsizing, validate.RightsizingNone) {
		// With rightsizing active the instance type is derived out-of-band,
		// so a manual override is only honored on NONE.
		if *desired.InstanceType != tmpl.InstanceType {
			v := *desired.InstanceType
			plan.Template.InstanceType = &v
		}
	}

	if len(desired.Volumes) > 0 {
		devices, dirty, err := planVolumes(desired, tmpl.BlockDevices)
		if err != nil {
			return nil, err
		}
		if dirty {
			plan.Template.BlockDevices = devices
		}
	}

	if specs, changed := ensureStatusTag(tmpl.TagSpecs); changed {
		plan.Template.TagSpecs = specs
	}

	plan.Configuration = models.ConfigurationPatch{
		LaunchDisposition: resolvedDisposition,
		CopyPrivateIP:     resolvedCopyIP,
		RightsizingMethod: resolvedRightsizing,
	}
	plan.TemplateChanged = !plan.Template.Empty()
	return plan, nil
}

// planVolumes joins volume patch requests to block devices by device name
// and diffs type, IOPS and throughput independently. A request naming a
// device the template does not map is a lookup error for the whole server.
func planVolumes(
	desired *models.DesiredStateRecord,
	current []models.BlockDeviceState,
) ([]models.BlockDeviceState, bool, error) {
	devices := make([]models.BlockDeviceState, len(current))
	copy(devices, current)

	index := make(map[string]int, len(devices))
	for i, dev := range devices {
		index[dev.DeviceName] = i
	}

	// Deterministic evaluation order for stable error reporting.
	names := make([]string, 0, len(desired.Volumes))
	for name := range desired.Volumes {
		names = append(names, name)
	}
	sort.Strings(names)

	dirty := false
	for _, name := range names {
		i, ok := index[name]
		if !ok {
			return nil, false, newDeviceLookupError(desired.SourceServerID, name)
		}
		req := desired.Volumes[name]

		if req.Type != nil && !enumEqual(devices[i].VolumeType, *req.Type) {
			devices[i].VolumeType = *req.Type
			dirty = true
		}
		if req.IOPS != nil {
			n, err := validate.NonNegativeInt(fmt.Sprintf("IOPS for %s", name), *req.IOPS)
			if err != nil {
				return nil, false, validationError(desired.SourceServerID, err)
			}
			if n != devices[i].IOPS {
				devices[i].IOPS = n
				dirty = true
			}
		}
		if req.Throughput != nil {
			n, err := validate.NonNegativeInt(fmt.Sprintf("throughput for %s", name), *req.Throughput)
			if err != nil {
				return nil, false, validationError(desired.SourceServerID, err)
			}
			if n != devices[i].Throughput {
				devices[i].Throughput = n
				dirty = true
			}
		}
	}

	return devices, dirty, nil
}

// ensureStatusTag guarantees the status tag on the instance-resource tag
// specification, creating the spec block when the template has none.
// Returns the rewritten specs and whether anything changed; once the tag is
// in place further passes report no change.
func ensureStatusTag(current []models.TagSpec) ([]models.TagSpec, bool) {
	specs := make([]models.TagSpec, len(current))
	for i, spec := range current {
		specs[i] = spec
		specs[i].Tags = make([]models.Tag, len(spec.Tags))
		copy(specs[i].Tags, spec.Tags)
	}

	changed := false
	found := false
	for i := range specs {
		if specs[i].ResourceType != tagResourceInstance {
			continue
		}
		found = true
		tagged := false
		for j := range specs[i].Tags {
			if specs[i].Tags[j].Key == statusTagKey {
				tagged = true
				if specs[i].Tags[j].Value != statusTagValue {
					specs[i].Tags[j].Value = statusTagValue
					changed = true
				}
			}
		}
		if !tagged {
			specs[i].Tags = append(specs[i].Tags, models.Tag{Key: statusTagKey, Value: statusTagValue})
			changed = true
		}
	}

	if !found {
		specs = append(specs, models.TagSpec{
			ResourceType: tagResourceInstance,
			Tags:         []models.Tag{{Key: statusTagKey, Value: statusTagValue}},
		})
		changed = true
	}

	return specs, changed
}
