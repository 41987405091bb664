package aws

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/drs"
	drstypes "github.com/aws/aws-sdk-go-v2/service/drs/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/protera/launchsync/internal/errors"
	"github.com/protera/launchsync/internal/logger"
	"github.com/protera/launchsync/internal/models"
	"github.com/protera/launchsync/internal/retry"
)

// CreateTemplateVersion creates a new launch template version from the
// patch's source version plus its changed sections and returns the new
// version number. Existing versions are never modified.
//
// When the patch rewrites the network-interface or block-device section, the
// source version is described first and the section is rebuilt from that
// data with the patch merged in, so fields the patch does not model survive.
func (c *Client) CreateTemplateVersion(ctx context.Context, patch models.TemplatePatch) (int64, error) {
	var src *ec2types.ResponseLaunchTemplateData
	if patch.NetworkInterface != nil || patch.BlockDevices != nil {
		var err error
		src, err = c.sourceVersionData(ctx, patch.TemplateID, patch.SourceVersion)
		if err != nil {
			return 0, err
		}
	}

	input := &ec2.CreateLaunchTemplateVersionInput{
		LaunchTemplateId:   aws.String(patch.TemplateID),
		SourceVersion:      aws.String(strconv.FormatInt(patch.SourceVersion, 10)),
		LaunchTemplateData: buildTemplateData(&patch, src),
	}

	out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*ec2.CreateLaunchTemplateVersionOutput, error) {
		return c.ec2Client.CreateLaunchTemplateVersion(ctx, input)
	})
	if err != nil {
		return 0, NewAPIError("CreateLaunchTemplateVersion", err)
	}
	if out.LaunchTemplateVersion == nil || out.LaunchTemplateVersion.VersionNumber == nil {
		return 0, errors.Newf(errors.CategoryApply,
			"CreateLaunchTemplateVersion for %s returned no version number", patch.TemplateID)
	}

	version := *out.LaunchTemplateVersion.VersionNumber
	logger.Debug("created launch template version",
		"template_id", patch.TemplateID,
		"source_version", patch.SourceVersion,
		"version", version)
	return version, nil
}

func (c *Client) sourceVersionData(ctx context.Context, templateID string, version int64) (*ec2types.ResponseLaunchTemplateData, error) {
	out, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (*ec2.DescribeLaunchTemplateVersionsOutput, error) {
		return c.ec2Client.DescribeLaunchTemplateVersions(ctx, &ec2.DescribeLaunchTemplateVersionsInput{
			LaunchTemplateId: aws.String(templateID),
			Versions:         []string{strconv.FormatInt(version, 10)},
		})
	})
	if err != nil {
		return nil, NewAPIError("DescribeLaunchTemplateVersions", err)
	}
	if len(out.LaunchTemplateVersions) == 0 || out.LaunchTemplateVersions[0].LaunchTemplateData == nil {
		return nil, errors.Newf(errors.CategoryApply,
			"launch template %s has no version %d to build from", templateID, version)
	}
	return out.LaunchTemplateVersions[0].LaunchTemplateData, nil
}

// PromoteDefaultVersion repoints the template's default-version alias at
// the given version.
func (c *Client) PromoteDefaultVersion(ctx context.Context, templateID string, version int64) error {
	err := retry.DoSimple(ctx, c.retryCfg, func(ctx context.Context) error {
		_, err := c.ec2Client.ModifyLaunchTemplate(ctx, &ec2.ModifyLaunchTemplateInput{
			LaunchTemplateId: aws.String(templateID),
			DefaultVersion:   aws.String(strconv.FormatInt(version, 10)),
		})
		return err
	})
	if err != nil {
		return NewAPIError("ModifyLaunchTemplate", err)
	}
	return nil
}

// UpdateConfiguration patches the DRS launch configuration in place with
// the fully resolved payload.
func (c *Client) UpdateConfiguration(ctx context.Context, serverID string, patch models.ConfigurationPatch) error {
	input := &drs.UpdateLaunchConfigurationInput{
		SourceServerID:                      aws.String(serverID),
		LaunchDisposition:                   drstypes.LaunchDisposition(patch.LaunchDisposition),
		CopyPrivateIp:                       aws.Bool(patch.CopyPrivateIP),
		TargetInstanceTypeRightSizingMethod: drstypes.TargetInstanceTypeRightSizingMethod(patch.RightsizingMethod),
	}

	err := retry.DoSimple(ctx, c.retryCfg, func(ctx context.Context) error {
		_, err := c.drsClient.UpdateLaunchConfiguration(ctx, input)
		return err
	})
	if err != nil {
		return NewAPIError("UpdateLaunchConfiguration", err, WithSourceServerID(serverID))
	}
	return nil
}
