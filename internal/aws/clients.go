// Package aws adapts the DRS and EC2 APIs to the reconciler's snapshot and
// apply interfaces.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/drs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/protera/launchsync/internal/errors"
	"github.com/protera/launchsync/internal/reconcile"
	"github.com/protera/launchsync/internal/retry"
)

// DRSAPI defines the DRS operations the adapter uses.
type DRSAPI interface {
	DescribeSourceServers(ctx context.Context, params *drs.DescribeSourceServersInput, optFns ...func(*drs.Options)) (*drs.DescribeSourceServersOutput, error)
	GetLaunchConfiguration(ctx context.Context, params *drs.GetLaunchConfigurationInput, optFns ...func(*drs.Options)) (*drs.GetLaunchConfigurationOutput, error)
	UpdateLaunchConfiguration(ctx context.Context, params *drs.UpdateLaunchConfigurationInput, optFns ...func(*drs.Options)) (*drs.UpdateLaunchConfigurationOutput, error)
}

// EC2API defines the EC2 operations the adapter uses.
type EC2API interface {
	DescribeLaunchTemplateVersions(ctx context.Context, params *ec2.DescribeLaunchTemplateVersionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeLaunchTemplateVersionsOutput, error)
	CreateLaunchTemplateVersion(ctx context.Context, params *ec2.CreateLaunchTemplateVersionInput, optFns ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateVersionOutput, error)
	ModifyLaunchTemplate(ctx context.Context, params *ec2.ModifyLaunchTemplateInput, optFns ...func(*ec2.Options)) (*ec2.ModifyLaunchTemplateOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
}

// Client wraps the DRS and EC2 clients behind the reconciler interfaces.
type Client struct {
	drsClient DRSAPI
	ec2Client EC2API
	retryCfg  retry.Config
}

var (
	_ reconcile.SnapshotSource = (*Client)(nil)
	_ reconcile.Applier        = (*Client)(nil)
)

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithRetryConfig sets the retry configuration for API calls.
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// NewClient creates a Client from the default AWS configuration chain.
func NewClient(ctx context.Context, region string, opts ...ClientOption) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "failed to load AWS config")
	}

	c := &Client{
		drsClient: drs.NewFromConfig(cfg),
		ec2Client: ec2.NewFromConfig(cfg),
		retryCfg:  retry.AWSConfig.WithShouldRetry(IsRetryableError),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientWithAPIs creates a Client with custom API implementations,
// useful for testing.
func NewClientWithAPIs(drsAPI DRSAPI, ec2API EC2API, opts ...ClientOption) *Client {
	c := &Client{
		drsClient: drsAPI,
		ec2Client: ec2API,
		retryCfg:  retry.AWSConfig.WithShouldRetry(IsRetryableError),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
