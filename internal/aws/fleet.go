package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	fleetTypes "github.com/scttfrdmn/fleet-monitor/pkg/types"
	"go.uber.org/zap"
)

// EC2API is the subset of the EC2 client used to poll fleet status
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
}

// FleetSource polls EC2 for instance descriptions and instance status
type FleetSource struct {
	logger              *zap.Logger
	ec2Client           EC2API
	instanceIDs         []string
	includeAllInstances bool
}

// FleetSourceOptions restricts what the fleet source reports
type FleetSourceOptions struct {
	InstanceIDs         []string
	IncludeAllInstances bool
}

// NewFleetSource creates a fleet source backed by an EC2 client
func NewFleetSource(logger *zap.Logger, ec2Client EC2API, opts FleetSourceOptions) *FleetSource {
	return &FleetSource{
		logger:              logger,
		ec2Client:           ec2Client,
		instanceIDs:         opts.InstanceIDs,
		includeAllInstances: opts.IncludeAllInstances,
	}
}

// FetchFleet returns instance records in listing order and their status records
func (f *FleetSource) FetchFleet(ctx context.Context) ([]fleetTypes.InstanceRecord, []fleetTypes.StatusRecord, error) {
	instances, err := f.describeInstances(ctx)
	if err != nil {
		return nil, nil, err
	}

	statuses, err := f.describeInstanceStatus(ctx)
	if err != nil {
		return nil, nil, err
	}

	f.logger.Debug("Polled EC2 fleet",
		zap.Int("instances", len(instances)),
		zap.Int("statuses", len(statuses)))

	return instances, statuses, nil
}

func (f *FleetSource) describeInstances(ctx context.Context) ([]fleetTypes.InstanceRecord, error) {
	input := &ec2.DescribeInstancesInput{}
	if len(f.instanceIDs) > 0 {
		input.InstanceIds = f.instanceIDs
	}

	var records []fleetTypes.InstanceRecord
	paginator := ec2.NewDescribeInstancesPaginator(f.ec2Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("EC2 DescribeInstances failed: %w", err)
		}

		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				records = append(records, instanceRecord(instance))
			}
		}
	}

	return records, nil
}

func (f *FleetSource) describeInstanceStatus(ctx context.Context) ([]fleetTypes.StatusRecord, error) {
	input := &ec2.DescribeInstanceStatusInput{
		IncludeAllInstances: aws.Bool(f.includeAllInstances),
	}
	if len(f.instanceIDs) > 0 {
		input.InstanceIds = f.instanceIDs
	}

	var records []fleetTypes.StatusRecord
	paginator := ec2.NewDescribeInstanceStatusPaginator(f.ec2Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("EC2 DescribeInstanceStatus failed: %w", err)
		}

		for _, status := range page.InstanceStatuses {
			records = append(records, statusRecord(status))
		}
	}

	return records, nil
}

func instanceRecord(instance ec2types.Instance) fleetTypes.InstanceRecord {
	record := fleetTypes.InstanceRecord{
		InstanceID: aws.ToString(instance.InstanceId),
	}
	for _, tag := range instance.Tags {
		record.Tags = append(record.Tags, fleetTypes.Tag{
			Key:   aws.ToString(tag.Key),
			Value: aws.ToString(tag.Value),
		})
	}
	return record
}

// statusRecord leaves fields empty when EC2 omits them so the snapshot
// builder can reject the instance as malformed
func statusRecord(status ec2types.InstanceStatus) fleetTypes.StatusRecord {
	record := fleetTypes.StatusRecord{
		InstanceID: aws.ToString(status.InstanceId),
	}
	if status.InstanceState != nil {
		record.LifecycleState = fleetTypes.LifecycleState(status.InstanceState.Name)
	}
	if status.InstanceStatus != nil {
		record.InstanceStatus = fleetTypes.HealthStatus(status.InstanceStatus.Status)
	}
	if status.SystemStatus != nil {
		record.SystemStatus = fleetTypes.HealthStatus(status.SystemStatus.Status)
	}
	return record
}
