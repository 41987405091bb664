package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/drs"
	drstypes "github.com/aws/aws-sdk-go-v2/service/drs/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/protera/launchsync/internal/logger"
	"github.com/protera/launchsync/internal/models"
	"github.com/protera/launchsync/internal/retry"
)

// defaultVersionAlias selects the template version the default alias points at.
const defaultVersionAlias = "$Default"

// ActualState loads the launch configuration and the default launch template
// version for one source server.
func (c *Client) ActualState(ctx context.Context, serverID string) (*models.ActualConfigurationState, *models.ActualTemplateState, error) {
	cfg, err := c.getLaunchConfiguration(ctx, serverID)
	if err != nil {
		return nil, nil, err
	}

	tmpl, err := c.getDefaultTemplateVersion(ctx, cfg.TemplateID)
	if err != nil {
		return nil, nil, NewAPIError("DescribeLaunchTemplateVersions", err,
			WithSourceServerID(serverID))
	}
	return cfg, tmpl, nil
}

func (c *Client) getLaunchConfiguration(ctx context.Context, serverID string) (*models.ActualConfigurationState, error) {
	out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*drs.GetLaunchConfigurationOutput, error) {
		return c.drsClient.GetLaunchConfiguration(ctx, &drs.GetLaunchConfigurationInput{
			SourceServerID: aws.String(serverID),
		})
	})
	if err != nil {
		return nil, NewAPIError("GetLaunchConfiguration", err, WithSourceServerID(serverID))
	}

	return &models.ActualConfigurationState{
		SourceServerID:    serverID,
		LaunchDisposition: string(out.LaunchDisposition),
		CopyPrivateIP:     derefBool(out.CopyPrivateIp),
		RightsizingMethod: string(out.TargetInstanceTypeRightSizingMethod),
		TemplateID:        derefString(out.Ec2LaunchTemplateID),
	}, nil
}

func (c *Client) getDefaultTemplateVersion(ctx context.Context, templateID string) (*models.ActualTemplateState, error) {
	out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*ec2.DescribeLaunchTemplateVersionsOutput, error) {
		return c.ec2Client.DescribeLaunchTemplateVersions(ctx, &ec2.DescribeLaunchTemplateVersionsInput{
			LaunchTemplateId: aws.String(templateID),
			Versions:         []string{defaultVersionAlias},
		})
	})
	if err != nil {
		return nil, err
	}
	if len(out.LaunchTemplateVersions) == 0 {
		return nil, nil
	}
	return convertTemplateVersion(&out.LaunchTemplateVersions[0]), nil
}

// ServerInfo identifies one DRS source server.
type ServerInfo struct {
	SourceServerID string `json:"source_server_id"`
	Hostname       string `json:"hostname,omitempty"`
}

// ListSourceServers enumerates all DRS source servers in the region,
// following pagination.
func (c *Client) ListSourceServers(ctx context.Context) ([]ServerInfo, error) {
	var servers []ServerInfo
	var nextToken *string

	for {
		out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*drs.DescribeSourceServersOutput, error) {
			return c.drsClient.DescribeSourceServers(ctx, &drs.DescribeSourceServersInput{
				NextToken: nextToken,
			})
		})
		if err != nil {
			return nil, NewAPIError("DescribeSourceServers", err)
		}

		for i := range out.Items {
			servers = append(servers, serverInfo(&out.Items[i]))
		}
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		nextToken = out.NextToken
	}

	logger.Debug("listed source servers", "count", len(servers))
	return servers, nil
}

func serverInfo(server *drstypes.SourceServer) ServerInfo {
	info := ServerInfo{SourceServerID: derefString(server.SourceServerID)}
	if props := server.SourceProperties; props != nil && props.IdentificationHints != nil {
		info.Hostname = derefString(props.IdentificationHints.Hostname)
	}
	return info
}

// ServerSnapshot is the exported view of one server's launch profile, with
// subnet and security group names resolved for readability.
type ServerSnapshot struct {
	SourceServerID    string   `json:"source_server_id"`
	Hostname          string   `json:"hostname,omitempty"`
	LaunchDisposition string   `json:"launch_disposition"`
	CopyPrivateIP     bool     `json:"copy_private_ip"`
	RightsizingMethod string   `json:"rightsizing_method"`
	TemplateID        string   `json:"template_id"`
	TemplateVersion   int64    `json:"template_version"`
	InstanceType      string   `json:"instance_type,omitempty"`
	SubnetID          string   `json:"subnet_id,omitempty"`
	SubnetName        string   `json:"subnet_name,omitempty"`
	PrivateIPs        []string `json:"private_ips,omitempty"`
	SecurityGroups    []string `json:"security_groups,omitempty"`
	SecurityGroupIDs  []string `json:"security_group_ids,omitempty"`
}

// Snapshot exports the launch profiles of the given servers, or of every
// source server in the region when serverIDs is empty.
func (c *Client) Snapshot(ctx context.Context, serverIDs []string) ([]ServerSnapshot, error) {
	var targets []ServerInfo
	if len(serverIDs) == 0 {
		all, err := c.ListSourceServers(ctx)
		if err != nil {
			return nil, err
		}
		targets = all
	} else {
		hostnames, err := c.hostnamesFor(ctx, serverIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range serverIDs {
			targets = append(targets, ServerInfo{SourceServerID: id, Hostname: hostnames[id]})
		}
	}

	snapshots := make([]ServerSnapshot, 0, len(targets))
	for _, target := range targets {
		snap, err := c.snapshotOne(ctx, target)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (c *Client) hostnamesFor(ctx context.Context, serverIDs []string) (map[string]string, error) {
	hostnames := make(map[string]string, len(serverIDs))
	var nextToken *string

	for {
		out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*drs.DescribeSourceServersOutput, error) {
			return c.drsClient.DescribeSourceServers(ctx, &drs.DescribeSourceServersInput{
				Filters: &drstypes.DescribeSourceServersRequestFilters{
					SourceServerIDs: serverIDs,
				},
				NextToken: nextToken,
			})
		})
		if err != nil {
			return nil, NewAPIError("DescribeSourceServers", err)
		}

		for i := range out.Items {
			info := serverInfo(&out.Items[i])
			hostnames[info.SourceServerID] = info.Hostname
		}
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		nextToken = out.NextToken
	}
	return hostnames, nil
}

func (c *Client) snapshotOne(ctx context.Context, target ServerInfo) (ServerSnapshot, error) {
	var snap ServerSnapshot

	cfg, tmpl, err := c.ActualState(ctx, target.SourceServerID)
	if err != nil {
		return snap, err
	}

	snap = ServerSnapshot{
		SourceServerID:    cfg.SourceServerID,
		Hostname:          target.Hostname,
		LaunchDisposition: cfg.LaunchDisposition,
		CopyPrivateIP:     cfg.CopyPrivateIP,
		RightsizingMethod: cfg.RightsizingMethod,
		TemplateID:        cfg.TemplateID,
	}
	if tmpl == nil {
		return snap, nil
	}

	snap.TemplateVersion = tmpl.Version
	snap.InstanceType = tmpl.InstanceType
	snap.SubnetID = tmpl.NetworkInterface.SubnetID
	snap.SecurityGroupIDs = tmpl.NetworkInterface.Groups
	for _, ip := range tmpl.NetworkInterface.PrivateIPs {
		snap.PrivateIPs = append(snap.PrivateIPs, ip.Address)
	}

	if snap.SubnetID != "" {
		if name, err := c.subnetName(ctx, snap.SubnetID); err == nil {
			snap.SubnetName = name
		} else {
			logger.Warn("failed to resolve subnet name",
				"subnet_id", snap.SubnetID, "error", err)
		}
	}
	if len(snap.SecurityGroupIDs) > 0 {
		if names, err := c.securityGroupNames(ctx, snap.SecurityGroupIDs); err == nil {
			snap.SecurityGroups = names
		} else {
			logger.Warn("failed to resolve security group names", "error", err)
		}
	}
	return snap, nil
}

func (c *Client) subnetName(ctx context.Context, subnetID string) (string, error) {
	out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*ec2.DescribeSubnetsOutput, error) {
		return c.ec2Client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
			SubnetIds: []string{subnetID},
		})
	})
	if err != nil {
		return "", NewAPIError("DescribeSubnets", err)
	}
	if len(out.Subnets) == 0 {
		return "", nil
	}
	for _, tag := range out.Subnets[0].Tags {
		if derefString(tag.Key) == "Name" {
			return derefString(tag.Value), nil
		}
	}
	return "", nil
}

func (c *Client) securityGroupNames(ctx context.Context, groupIDs []string) ([]string, error) {
	out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*ec2.DescribeSecurityGroupsOutput, error) {
		return c.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
			GroupIds: groupIDs,
		})
	})
	if err != nil {
		return nil, NewAPIError("DescribeSecurityGroups", err)
	}

	names := make([]string, 0, len(out.SecurityGroups))
	for _, group := range out.SecurityGroups {
		names = append(names, derefString(group.GroupName))
	}
	return names, nil
}
