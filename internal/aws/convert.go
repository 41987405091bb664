package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/protera/launchsync/internal/models"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func derefInt32(n *int32) int32 {
	if n == nil {
		return 0
	}
	return *n
}

func derefInt64(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

// convertTemplateVersion maps one launch template version response onto the
// template state model. Only the primary network interface (device index 0,
// or the first one listed) is modeled.
func convertTemplateVersion(version *ec2types.LaunchTemplateVersion) *models.ActualTemplateState {
	state := &models.ActualTemplateState{
		TemplateID: derefString(version.LaunchTemplateId),
		Version:    derefInt64(version.VersionNumber),
	}

	data := version.LaunchTemplateData
	if data == nil {
		return state
	}
	state.InstanceType = string(data.InstanceType)

	if ni := primaryInterface(data.NetworkInterfaces); ni != nil {
		state.NetworkInterface.SubnetID = derefString(ni.SubnetId)
		state.NetworkInterface.Groups = append([]string(nil), ni.Groups...)
		for _, ip := range ni.PrivateIpAddresses {
			state.NetworkInterface.PrivateIPs = append(state.NetworkInterface.PrivateIPs, models.PrivateIPSpec{
				Primary: derefBool(ip.Primary),
				Address: derefString(ip.PrivateIpAddress),
			})
		}
	}

	for _, mapping := range data.BlockDeviceMappings {
		dev := models.BlockDeviceState{DeviceName: derefString(mapping.DeviceName)}
		if mapping.Ebs != nil {
			dev.VolumeType = string(mapping.Ebs.VolumeType)
			dev.IOPS = derefInt32(mapping.Ebs.Iops)
			dev.Throughput = derefInt32(mapping.Ebs.Throughput)
		}
		state.BlockDevices = append(state.BlockDevices, dev)
	}

	for _, spec := range data.TagSpecifications {
		tagSpec := models.TagSpec{ResourceType: string(spec.ResourceType)}
		for _, tag := range spec.Tags {
			tagSpec.Tags = append(tagSpec.Tags, models.Tag{
				Key:   derefString(tag.Key),
				Value: derefString(tag.Value),
			})
		}
		state.TagSpecs = append(state.TagSpecs, tagSpec)
	}

	return state
}

func primaryInterface(interfaces []ec2types.LaunchTemplateInstanceNetworkInterfaceSpecification) *ec2types.LaunchTemplateInstanceNetworkInterfaceSpecification {
	for i := range interfaces {
		if derefInt32(interfaces[i].DeviceIndex) == 0 {
			return &interfaces[i]
		}
	}
	if len(interfaces) > 0 {
		return &interfaces[0]
	}
	return nil
}

// buildTemplateData assembles the request data for a new template version.
// Sections the patch does not touch stay unset and are inherited from the
// source version. CreateLaunchTemplateVersion replaces a supplied top-level
// parameter wholesale rather than merging it, so sections the patch does
// touch are rebuilt from the source version's described data with only the
// changed fields overridden; sub-fields outside the patch model (volume
// size, encryption, secondary interfaces) carry over unchanged.
func buildTemplateData(patch *models.TemplatePatch, src *ec2types.ResponseLaunchTemplateData) *ec2types.RequestLaunchTemplateData {
	data := &ec2types.RequestLaunchTemplateData{}

	if patch.InstanceType != nil {
		data.InstanceType = ec2types.InstanceType(*patch.InstanceType)
	}

	if patch.NetworkInterface != nil {
		var current []ec2types.LaunchTemplateInstanceNetworkInterfaceSpecification
		if src != nil {
			current = src.NetworkInterfaces
		}
		data.NetworkInterfaces = mergeNetworkInterfaces(current, patch.NetworkInterface)
	}

	if patch.BlockDevices != nil {
		var current []ec2types.LaunchTemplateBlockDeviceMapping
		if src != nil {
			current = src.BlockDeviceMappings
		}
		data.BlockDeviceMappings = mergeBlockDevices(current, patch.BlockDevices)
	}

	for _, spec := range patch.TagSpecs {
		tagSpec := ec2types.LaunchTemplateTagSpecificationRequest{
			ResourceType: ec2types.ResourceType(spec.ResourceType),
		}
		for _, tag := range spec.Tags {
			tagSpec.Tags = append(tagSpec.Tags, ec2types.Tag{
				Key:   aws.String(tag.Key),
				Value: aws.String(tag.Value),
			})
		}
		data.TagSpecifications = append(data.TagSpecifications, tagSpec)
	}

	return data
}

// mergeNetworkInterfaces rebuilds the full interface list from the source
// version, applying the patch to the primary interface only. Secondary
// interfaces pass through untouched.
func mergeNetworkInterfaces(
	current []ec2types.LaunchTemplateInstanceNetworkInterfaceSpecification,
	ni *models.NetworkInterfaceState,
) []ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest {
	if len(current) == 0 {
		spec := ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest{
			DeviceIndex: aws.Int32(0),
		}
		applyInterfacePatch(&spec, ni)
		return []ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest{spec}
	}

	primary := primaryInterface(current)
	specs := make([]ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest, 0, len(current))
	for i := range current {
		spec := copyNetworkInterface(&current[i])
		if &current[i] == primary {
			applyInterfacePatch(&spec, ni)
		}
		specs = append(specs, spec)
	}
	return specs
}

func copyNetworkInterface(src *ec2types.LaunchTemplateInstanceNetworkInterfaceSpecification) ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest {
	spec := ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest{
		AssociateCarrierIpAddress:      src.AssociateCarrierIpAddress,
		AssociatePublicIpAddress:       src.AssociatePublicIpAddress,
		DeleteOnTermination:            src.DeleteOnTermination,
		Description:                    src.Description,
		DeviceIndex:                    src.DeviceIndex,
		Groups:                         append([]string(nil), src.Groups...),
		InterfaceType:                  src.InterfaceType,
		Ipv4PrefixCount:                src.Ipv4PrefixCount,
		Ipv6AddressCount:               src.Ipv6AddressCount,
		Ipv6PrefixCount:                src.Ipv6PrefixCount,
		NetworkCardIndex:               src.NetworkCardIndex,
		NetworkInterfaceId:             src.NetworkInterfaceId,
		PrimaryIpv6:                    src.PrimaryIpv6,
		PrivateIpAddress:               src.PrivateIpAddress,
		PrivateIpAddresses:             append([]ec2types.PrivateIpAddressSpecification(nil), src.PrivateIpAddresses...),
		SecondaryPrivateIpAddressCount: src.SecondaryPrivateIpAddressCount,
		SubnetId:                       src.SubnetId,
	}
	for _, addr := range src.Ipv6Addresses {
		spec.Ipv6Addresses = append(spec.Ipv6Addresses, ec2types.InstanceIpv6AddressRequest{
			Ipv6Address: addr.Ipv6Address,
		})
	}
	for _, prefix := range src.Ipv4Prefixes {
		spec.Ipv4Prefixes = append(spec.Ipv4Prefixes, ec2types.Ipv4PrefixSpecificationRequest{
			Ipv4Prefix: prefix.Ipv4Prefix,
		})
	}
	for _, prefix := range src.Ipv6Prefixes {
		spec.Ipv6Prefixes = append(spec.Ipv6Prefixes, ec2types.Ipv6PrefixSpecificationRequest{
			Ipv6Prefix: prefix.Ipv6Prefix,
		})
	}
	return spec
}

func applyInterfacePatch(spec *ec2types.LaunchTemplateInstanceNetworkInterfaceSpecificationRequest, ni *models.NetworkInterfaceState) {
	if ni.SubnetID != "" {
		spec.SubnetId = aws.String(ni.SubnetID)
	}
	if ni.Groups != nil {
		spec.Groups = append([]string(nil), ni.Groups...)
	}
	if len(ni.PrivateIPs) > 0 {
		addrs := make([]ec2types.PrivateIpAddressSpecification, 0, len(ni.PrivateIPs))
		for _, ip := range ni.PrivateIPs {
			addrs = append(addrs, ec2types.PrivateIpAddressSpecification{
				Primary:          aws.Bool(ip.Primary),
				PrivateIpAddress: aws.String(ip.Address),
			})
		}
		spec.PrivateIpAddresses = addrs
		// The explicit list supersedes the scalar address and the
		// secondary-count shorthand; sending both is a validation error.
		spec.PrivateIpAddress = nil
		spec.SecondaryPrivateIpAddressCount = nil
	}
}

// mergeBlockDevices rebuilds the full mapping list from the source version,
// overriding per device only the fields the patch carries.
func mergeBlockDevices(
	current []ec2types.LaunchTemplateBlockDeviceMapping,
	devices []models.BlockDeviceState,
) []ec2types.LaunchTemplateBlockDeviceMappingRequest {
	desired := make(map[string]models.BlockDeviceState, len(devices))
	for _, dev := range devices {
		desired[dev.DeviceName] = dev
	}

	mappings := make([]ec2types.LaunchTemplateBlockDeviceMappingRequest, 0, len(current))
	seen := make(map[string]bool, len(current))
	for i := range current {
		mapping := copyBlockDevice(&current[i])
		name := derefString(current[i].DeviceName)
		seen[name] = true
		if dev, ok := desired[name]; ok {
			applyDevicePatch(&mapping, dev)
		}
		mappings = append(mappings, mapping)
	}

	// Devices the source version does not map yet, in patch order.
	for _, dev := range devices {
		if seen[dev.DeviceName] {
			continue
		}
		mapping := ec2types.LaunchTemplateBlockDeviceMappingRequest{
			DeviceName: aws.String(dev.DeviceName),
		}
		applyDevicePatch(&mapping, dev)
		mappings = append(mappings, mapping)
	}
	return mappings
}

func copyBlockDevice(src *ec2types.LaunchTemplateBlockDeviceMapping) ec2types.LaunchTemplateBlockDeviceMappingRequest {
	mapping := ec2types.LaunchTemplateBlockDeviceMappingRequest{
		DeviceName:  src.DeviceName,
		NoDevice:    src.NoDevice,
		VirtualName: src.VirtualName,
	}
	if src.Ebs != nil {
		mapping.Ebs = &ec2types.LaunchTemplateEbsBlockDeviceRequest{
			DeleteOnTermination: src.Ebs.DeleteOnTermination,
			Encrypted:           src.Ebs.Encrypted,
			Iops:                src.Ebs.Iops,
			KmsKeyId:            src.Ebs.KmsKeyId,
			SnapshotId:          src.Ebs.SnapshotId,
			Throughput:          src.Ebs.Throughput,
			VolumeSize:          src.Ebs.VolumeSize,
			VolumeType:          src.Ebs.VolumeType,
		}
	}
	return mapping
}

func applyDevicePatch(mapping *ec2types.LaunchTemplateBlockDeviceMappingRequest, dev models.BlockDeviceState) {
	if mapping.Ebs == nil {
		mapping.Ebs = &ec2types.LaunchTemplateEbsBlockDeviceRequest{}
	}
	if dev.VolumeType != "" {
		mapping.Ebs.VolumeType = ec2types.VolumeType(dev.VolumeType)
	}
	if dev.IOPS > 0 {
		mapping.Ebs.Iops = aws.Int32(dev.IOPS)
	}
	if dev.Throughput > 0 {
		mapping.Ebs.Throughput = aws.Int32(dev.Throughput)
	}
}
