package client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SESAPI is the slice of the SES client the email transport uses.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SNSAPI is the slice of the SNS client the topic transport uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AWSFactory hands out per-destination AWS clients. Implementations must
// be safe for concurrent use; the dispatcher calls them from fan-out
// goroutines.
type AWSFactory interface {
	SES(ctx context.Context, region, roleARN string) (SESAPI, error)
	SNS(ctx context.Context, region, roleARN string) (SNSAPI, error)
}

// DefaultAWSFactory builds real clients from the ambient credential chain,
// assuming roleARN through STS when one is configured on the destination.
type DefaultAWSFactory struct{}

func (DefaultAWSFactory) load(ctx context.Context, region, roleARN string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config for region %s: %w", region, err)
	}
	if roleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN)
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}
	return cfg, nil
}

func (f DefaultAWSFactory) SES(ctx context.Context, region, roleARN string) (SESAPI, error) {
	cfg, err := f.load(ctx, region, roleARN)
	if err != nil {
		return nil, err
	}
	return ses.NewFromConfig(cfg), nil
}

func (f DefaultAWSFactory) SNS(ctx context.Context, region, roleARN string) (SNSAPI, error) {
	cfg, err := f.load(ctx, region, roleARN)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}
