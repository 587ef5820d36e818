package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/opensearch-project/notifications-sub002/internal/client"
	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/sanitize"
	"github.com/opensearch-project/notifications-sub002/internal/settings"
)

// Sender routes a destination to its transport. One Sender is shared by
// all dispatch goroutines.
type Sender struct {
	webhook *WebhookTransport
	smtp    *SMTPTransport
	ses     *SESTransport
	sns     *SNSTransport
}

// NewSender wires every transport against the shared clients.
func NewSender(logger *zap.Logger, holder *settings.Holder, httpClient *http.Client, denyList *client.DenyList, awsFactory client.AWSFactory, sanitizer *sanitize.Sanitizer) *Sender {
	return &Sender{
		webhook: NewWebhookTransport(logger, httpClient, denyList),
		smtp:    NewSMTPTransport(logger, holder, sanitizer),
		ses:     NewSESTransport(logger, holder, awsFactory, sanitizer),
		sns:     NewSNSTransport(logger, awsFactory),
	}
}

// Send delivers msg to dest on behalf of the caller identified by refID.
// The switch covers every Destination variant; the default arm is
// reachable only if a new variant ships without a transport.
func (s *Sender) Send(ctx context.Context, dest model.Destination, msg *model.MessageContent, refID string) model.DestinationMessageResponse {
	start := time.Now()

	var resp model.DestinationMessageResponse
	switch d := dest.(type) {
	case model.SlackDestination:
		resp = s.webhook.Send(ctx, d, msg, refID)
	case model.ChimeDestination:
		resp = s.webhook.Send(ctx, d, msg, refID)
	case model.MicrosoftTeamsDestination:
		resp = s.webhook.Send(ctx, d, msg, refID)
	case model.CustomWebhookDestination:
		resp = s.webhook.Send(ctx, d, msg, refID)
	case model.SMTPDestination:
		resp = s.smtp.Send(ctx, d, msg, refID)
	case model.SESDestination:
		resp = s.ses.Send(ctx, d, msg, refID)
	case model.SNSDestination:
		resp = s.sns.Send(ctx, d, msg, refID)
	default:
		resp = model.DestinationMessageResponse{
			StatusCode: http.StatusNotImplemented,
			StatusText: fmt.Sprintf("No transport for destination %q", dest.ConfigType()),
		}
	}

	configType := string(dest.ConfigType())
	deliveryTotal.WithLabelValues(configType, outcomeLabel(resp.StatusCode)).Inc()
	deliveryDuration.WithLabelValues(configType).Observe(time.Since(start).Seconds())
	return resp
}
