// Package desiredstate loads operator-authored launch-profile records from
// HCL files.
//
// A record only carries the fields the operator wrote down. Absent
// attributes stay nil so downstream planning can tell "no opinion" apart
// from an explicit value; the loader never substitutes defaults. Values are
// kept as raw tokens and validated at planning time, where failures can be
// scoped to one server instead of rejecting the whole file.
package desiredstate

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/protera/launchsync/internal/errors"
	"github.com/protera/launchsync/internal/logger"
	"github.com/protera/launchsync/internal/models"
)

// Store holds the parsed desired-state records keyed by source server ID.
type Store struct {
	records map[string]*models.DesiredStateRecord
}

// Get returns the record for a server, and whether one exists.
func (s *Store) Get(serverID string) (*models.DesiredStateRecord, bool) {
	rec, ok := s.records[serverID]
	return rec, ok
}

// ServerIDs lists all servers with a desired-state record, sorted.
func (s *Store) ServerIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	return len(s.records)
}

// Load reads and parses a desired-state HCL file.
func Load(path string) (*Store, error) {
	logger.Debug("reading desired-state file", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CategoryConfig, "failed to read desired-state file %s", path)
	}
	return Parse(data, path)
}

// Parse parses desired-state HCL content.
func Parse(data []byte, filename string) (*Store, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Newf(errors.CategoryConfig, "failed to parse %s: %s", filename, diags.Error())
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, errors.Newf(errors.CategoryConfig, "failed to decode %s: %s", filename, diags.Error())
	}

	store := &Store{records: make(map[string]*models.DesiredStateRecord)}
	for _, block := range content.Blocks {
		if block.Type != "server" {
			continue
		}
		serverID := block.Labels[0]
		if serverID == "" {
			return nil, errors.Newf(errors.CategoryConfig, "%s: server block with empty ID", filename)
		}
		if _, dup := store.records[serverID]; dup {
			return nil, errors.Newf(errors.CategoryConfig, "%s: duplicate server block %q", filename, serverID)
		}

		rec, err := parseServerBlock(block, serverID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse server %s: %w", serverID, err)
		}
		store.records[serverID] = rec
	}

	logger.Info("parsed desired-state file", "filename", filename, "server_count", len(store.records))
	return store, nil
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "server", LabelNames: []string{"id"}},
	},
}

var serverSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "hostname"},
		{Name: "origin_instance_id"},
		{Name: "launch_state"},
		{Name: "copy_private_ip"},
		{Name: "rightsizing_mode"},
		{Name: "subnet_id"},
		{Name: "private_ips"},
		{Name: "security_group_ids"},
		{Name: "instance_type"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "volume", LabelNames: []string{"device"}},
	},
}

var volumeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "iops"},
		{Name: "throughput"},
	},
}

func parseServerBlock(block *hcl.Block, serverID string) (*models.DesiredStateRecord, error) {
	content, diags := block.Body.Content(serverSchema)
	if diags.HasErrors() {
		return nil, errors.Newf(errors.CategoryConfig, "failed to decode server block: %s", diags.Error())
	}

	rec := &models.DesiredStateRecord{SourceServerID: serverID}

	for name, attr := range content.Attributes {
		switch name {
		case "hostname":
			v, err := stringAttr(attr)
			if err != nil {
				return nil, err
			}
			rec.Hostname = v
		case "origin_instance_id":
			v, err := stringAttr(attr)
			if err != nil {
				return nil, err
			}
			rec.OriginInstanceID = v
		case "launch_state":
			if err := setStringPtr(&rec.LaunchState, attr); err != nil {
				return nil, err
			}
		case "copy_private_ip":
			if err := setStringPtr(&rec.CopyPrivateIP, attr); err != nil {
				return nil, err
			}
		case "rightsizing_mode":
			if err := setStringPtr(&rec.RightsizingMode, attr); err != nil {
				return nil, err
			}
		case "subnet_id":
			if err := setStringPtr(&rec.SubnetID, attr); err != nil {
				return nil, err
			}
		case "instance_type":
			if err := setStringPtr(&rec.InstanceType, attr); err != nil {
				return nil, err
			}
		case "private_ips":
			v, err := stringListAttr(attr)
			if err != nil {
				return nil, err
			}
			rec.PrivateIPs = v
		case "security_group_ids":
			v, err := stringListAttr(attr)
			if err != nil {
				return nil, err
			}
			rec.SecurityGroupIDs = v
		}
	}

	for _, blk := range content.Blocks {
		if blk.Type != "volume" {
			continue
		}
		device := blk.Labels[0]
		if rec.Volumes == nil {
			rec.Volumes = make(map[string]models.VolumePatchRequest)
		}
		if _, dup := rec.Volumes[device]; dup {
			return nil, errors.Newf(errors.CategoryConfig, "duplicate volume block %q", device)
		}
		req, err := parseVolumeBlock(blk)
		if err != nil {
			return nil, fmt.Errorf("volume %s: %w", device, err)
		}
		rec.Volumes[device] = req
	}

	return rec, nil
}

func parseVolumeBlock(block *hcl.Block) (models.VolumePatchRequest, error) {
	var req models.VolumePatchRequest

	content, diags := block.Body.Content(volumeSchema)
	if diags.HasErrors() {
		return req, errors.Newf(errors.CategoryConfig, "failed to decode volume block: %s", diags.Error())
	}

	for name, attr := range content.Attributes {
		switch name {
		case "type":
			if err := setStringPtr(&req.Type, attr); err != nil {
				return req, err
			}
		case "iops":
			if err := setStringPtr(&req.IOPS, attr); err != nil {
				return req, err
			}
		case "throughput":
			if err := setStringPtr(&req.Throughput, attr); err != nil {
				return req, err
			}
		}
	}
	return req, nil
}

// stringAttr evaluates an attribute to a string. Numbers and booleans are
// converted so operators can write iops = 3000 as well as iops = "3000".
func stringAttr(attr *hcl.Attribute) (string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", errors.Newf(errors.CategoryConfig, "failed to evaluate %s: %s", attr.Name, diags.Error())
	}
	converted, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", errors.Newf(errors.CategoryConfig, "attribute %s is not a string", attr.Name)
	}
	if converted.IsNull() {
		return "", errors.Newf(errors.CategoryConfig, "attribute %s is null", attr.Name)
	}
	return converted.AsString(), nil
}

func setStringPtr(dst **string, attr *hcl.Attribute) error {
	v, err := stringAttr(attr)
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

// stringListAttr evaluates an attribute to a string slice. An empty list
// stays distinct from an absent attribute: it returns a non-nil empty slice.
func stringListAttr(attr *hcl.Attribute) ([]string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, errors.Newf(errors.CategoryConfig, "failed to evaluate %s: %s", attr.Name, diags.Error())
	}
	if !val.CanIterateElements() {
		return nil, errors.Newf(errors.CategoryConfig, "attribute %s is not a list", attr.Name)
	}

	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		converted, err := convert.Convert(elem, cty.String)
		if err != nil || converted.IsNull() {
			return nil, errors.Newf(errors.CategoryConfig, "attribute %s contains a non-string element", attr.Name)
		}
		out = append(out, converted.AsString())
	}
	return out, nil
}
