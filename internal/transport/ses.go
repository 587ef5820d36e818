package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/opensearch-project/notifications-sub002/internal/client"
	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/sanitize"
	"github.com/opensearch-project/notifications-sub002/internal/settings"
)

// SESTransport delivers one email to one recipient through the SES
// raw-email API.
type SESTransport struct {
	factory   client.AWSFactory
	holder    *settings.Holder
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
}

// NewSESTransport wires the transport against the AWS client factory.
func NewSESTransport(logger *zap.Logger, holder *settings.Holder, factory client.AWSFactory, sanitizer *sanitize.Sanitizer) *SESTransport {
	return &SESTransport{
		factory:   factory,
		holder:    holder,
		sanitizer: sanitizer,
		logger:    logger.Named("ses-transport"),
	}
}

// Send assembles the MIME message and submits it via SendRawEmail. The
// size is checked twice: the cheap estimate before assembly, then the
// actual serialized byte count, since base64 expansion and headers can
// push a borderline message over the limit.
func (t *SESTransport) Send(ctx context.Context, dest model.SESDestination, msg *model.MessageContent, refID string) model.DestinationMessageResponse {
	cfg := t.holder.Current()

	if model.IsMessageSizeOverLimit(msg, cfg.Email.SizeLimit, cfg.Email.MinimumHeaderLength) {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusRequestEntityTooLarge,
			StatusText: fmt.Sprintf("Email size larger than %d", cfg.Email.SizeLimit),
		}
	}

	sanitizer := t.sanitizer
	if !cfg.Email.SanitizeHTML {
		sanitizer = nil
	}
	m, err := buildMIMEMessage(dest.FromAddress, dest.Recipient, msg, sanitizer)
	if err != nil {
		return model.DestinationMessageResponse{StatusCode: http.StatusBadRequest, StatusText: err.Error()}
	}

	var raw bytes.Buffer
	if _, err := m.WriteTo(&raw); err != nil {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusInternalServerError,
			StatusText: fmt.Sprintf("Failed to serialize email: %v", err),
		}
	}
	if raw.Len() > cfg.Email.SizeLimit {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusRequestEntityTooLarge,
			StatusText: fmt.Sprintf("Email size larger than %d", cfg.Email.SizeLimit),
		}
	}

	sesClient, err := t.factory.SES(ctx, dest.Region, dest.RoleARN)
	if err != nil {
		t.logger.Error("Building SES client failed",
			zap.String("region", dest.Region),
			zap.Error(err))
		return model.DestinationMessageResponse{
			StatusCode: http.StatusServiceUnavailable,
			StatusText: fmt.Sprintf("Failed to build SES client: %v", err),
		}
	}

	out, err := sesClient.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage:   &sestypes.RawMessage{Data: raw.Bytes()},
		Source:       aws.String(dest.FromAddress),
		Destinations: []string{dest.Recipient},
	})
	if err != nil {
		t.logger.Error("SES send failed",
			zap.String("region", dest.Region),
			zap.String("reference_id", refID),
			zap.Error(err))
		return classifySESError(err)
	}
	return model.DestinationMessageResponse{
		StatusCode: http.StatusOK,
		StatusText: fmt.Sprintf("Success, message id: %s", aws.ToString(out.MessageId)),
	}
}
