package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/opensearch-project/notifications-sub002/internal/client"
	"github.com/opensearch-project/notifications-sub002/internal/model"
)

// SNSTransport publishes messages to SNS topics.
type SNSTransport struct {
	factory client.AWSFactory
	logger  *zap.Logger
}

// NewSNSTransport wires the transport against the AWS client factory.
func NewSNSTransport(logger *zap.Logger, factory client.AWSFactory) *SNSTransport {
	return &SNSTransport{
		factory: factory,
		logger:  logger.Named("sns-transport"),
	}
}

// Send publishes the message with the title as subject. The region is
// taken from the topic ARN.
func (t *SNSTransport) Send(ctx context.Context, dest model.SNSDestination, msg *model.MessageContent, refID string) model.DestinationMessageResponse {
	region := dest.RegionFromARN()
	if region == "" {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusBadRequest,
			StatusText: fmt.Sprintf("No region found in topic ARN %q", dest.TopicARN),
		}
	}

	snsClient, err := t.factory.SNS(ctx, region, dest.RoleARN)
	if err != nil {
		t.logger.Error("Building SNS client failed",
			zap.String("region", region),
			zap.Error(err))
		return model.DestinationMessageResponse{
			StatusCode: http.StatusServiceUnavailable,
			StatusText: fmt.Sprintf("Failed to build SNS client: %v", err),
		}
	}

	out, err := snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(dest.TopicARN),
		Subject:  aws.String(msg.Title),
		Message:  aws.String(msg.TextDescription),
	})
	if err != nil {
		t.logger.Error("SNS publish failed",
			zap.String("topic_arn", dest.TopicARN),
			zap.String("reference_id", refID),
			zap.Error(err))
		return classifySNSError(err)
	}
	return model.DestinationMessageResponse{
		StatusCode: http.StatusOK,
		StatusText: fmt.Sprintf("Success, message id: %s", aws.ToString(out.MessageId)),
	}
}
