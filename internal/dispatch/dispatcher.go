package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/settings"
	"github.com/opensearch-project/notifications-sub002/internal/throttle"
	"github.com/opensearch-project/notifications-sub002/internal/util"
)

// StatusError is a request-level failure with an HTTP-like status code.
// Channel-level failures never surface as errors; they live in the
// per-channel statuses instead.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string { return e.Message }

// MessageSender delivers a message to one destination. Satisfied by
// transport.Sender.
type MessageSender interface {
	Send(ctx context.Context, dest model.Destination, msg *model.MessageContent, refID string) model.DestinationMessageResponse
}

// SendRequest is one notification send: the event source metadata, the
// payload, and the channel config IDs to deliver to.
type SendRequest struct {
	Source    model.EventSource
	Message   *model.MessageContent
	ConfigIDs []string
}

// SendResponse carries the persisted event ID, the per-channel statuses,
// and the folded overall status code.
type SendResponse struct {
	EventID    string
	StatusCode int
	Statuses   []model.EventStatus
}

// Dispatcher runs the send pipeline. One instance serves all requests.
type Dispatcher struct {
	configs    ConfigStore
	events     EventStore
	sender     MessageSender
	accountant *throttle.Accountant
	holder     *settings.Holder
	logger     *zap.Logger
}

// NewDispatcher wires the pipeline.
func NewDispatcher(logger *zap.Logger, holder *settings.Holder, configs ConfigStore, events EventStore, sender MessageSender, accountant *throttle.Accountant) *Dispatcher {
	return &Dispatcher{
		configs:    configs,
		events:     events,
		sender:     sender,
		accountant: accountant,
		holder:     holder,
		logger:     logger.Named("dispatcher"),
	}
}

// Send runs one request through the pipeline.
func (d *Dispatcher) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	start := time.Now()
	resp, err := d.send(ctx, req)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	requestTotal.WithLabelValues(outcome).Inc()
	requestDuration.Observe(time.Since(start).Seconds())
	return resp, err
}

func (d *Dispatcher) send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	if req.Message == nil {
		return nil, &model.ValidationError{Reason: "message is null or empty"}
	}
	if len(req.ConfigIDs) == 0 {
		return nil, &model.ValidationError{Reason: "config id list is null or empty"}
	}

	ids := util.UniqueStrings(req.ConfigIDs)
	docs, err := d.configs.GetConfigs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving configs: %w", err)
	}
	if missing := missingIDs(ids, docs); len(missing) > 0 {
		return nil, &StatusError{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("NotificationConfig %v not found", missing),
		}
	}
	channelFanout.Observe(float64(len(docs)))

	children, err := d.resolveChildren(ctx, docs)
	if err != nil {
		return nil, err
	}

	proposed, proposedEmails := countProposed(docs, children)
	if !d.accountant.IsMessageQuotaAvailable(proposed) {
		d.logger.Warn("Send request rejected by quota",
			zap.Int("proposed_messages", proposed))
		return nil, &StatusError{
			StatusCode: http.StatusTooManyRequests,
			Message:    "Message quota not available",
		}
	}

	statuses := make([]model.EventStatus, len(docs))
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc model.ConfigDocInfo) {
			defer wg.Done()
			// A panic in one channel's delivery must not take down the
			// other in-flight channels or the caller.
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("Channel send panicked",
						zap.String("config_id", doc.ID),
						zap.Any("panic", r))
					statuses[i] = model.EventStatus{
						ConfigID:   doc.ID,
						ConfigName: doc.Config.Name,
						ConfigType: doc.Config.ConfigType,
						Status: model.DeliveryStatus{
							StatusCode: http.StatusInternalServerError,
							StatusText: fmt.Sprintf("Failed to send message: %v", r),
						},
					}
				}
			}()
			statuses[i] = d.sendToChannel(ctx, doc, children, req)
		}(i, doc)
	}
	wg.Wait()

	d.accountant.IncrementCounters(proposed, proposedEmails)

	now := time.Now()
	event := &model.NotificationEvent{
		Source:     req.Source,
		StatusList: statuses,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	eventID, err := d.events.CreateEvent(ctx, event)
	if err != nil {
		d.logger.Error("Persisting notification event failed", zap.Error(err))
		return nil, &StatusError{
			StatusCode: http.StatusInsufficientStorage,
			Message:    "Indexing not acknowledged",
		}
	}

	return &SendResponse{
		EventID:    eventID,
		StatusCode: model.OverallStatusCode(statuses),
		Statuses:   statuses,
	}, nil
}

// resolveChildren batch-fetches the email account and group configs
// referenced by email channels. Missing children are not an error here;
// the owning channel reports them during fan-out.
func (d *Dispatcher) resolveChildren(ctx context.Context, docs []model.ConfigDocInfo) (map[string]model.NotificationConfig, error) {
	var childIDs []string
	for _, doc := range docs {
		email := doc.Config.Email
		if doc.Config.ConfigType != model.ConfigTypeEmail || email == nil {
			continue
		}
		childIDs = append(childIDs, email.SenderAccountID)
		childIDs = append(childIDs, email.EmailGroupIDs...)
	}
	if len(childIDs) == 0 {
		return nil, nil
	}

	childDocs, err := d.configs.GetConfigs(ctx, util.UniqueStrings(childIDs))
	if err != nil {
		return nil, fmt.Errorf("resolving email child configs: %w", err)
	}
	children := make(map[string]model.NotificationConfig, len(childDocs))
	for _, doc := range childDocs {
		children[doc.ID] = doc.Config
	}
	return children, nil
}

// countProposed returns the total deliveries this request would attempt
// and how many of those are emails. Email channels count one delivery per
// resolved recipient.
func countProposed(docs []model.ConfigDocInfo, children map[string]model.NotificationConfig) (int, int) {
	proposed := 0
	proposedEmails := 0
	for _, doc := range docs {
		if doc.Config.ConfigType == model.ConfigTypeEmail && doc.Config.Email != nil {
			n := len(resolveRecipients(doc.Config.Email, children))
			proposed += n
			proposedEmails += n
			continue
		}
		proposed++
	}
	return proposed, proposedEmails
}

// resolveRecipients unions the explicit recipient list with every resolved
// email group's recipients, deduplicated in first-seen order. Unresolved
// groups contribute nothing; the channel send reports them.
func resolveRecipients(email *model.EmailChannel, children map[string]model.NotificationConfig) []string {
	recipients := append([]string(nil), email.Recipients...)
	for _, groupID := range email.EmailGroupIDs {
		child, ok := children[groupID]
		if !ok || child.EmailGroup == nil {
			continue
		}
		recipients = append(recipients, child.EmailGroup.Recipients...)
	}
	return util.UniqueStrings(recipients)
}

// sendToChannel delivers to one channel config and returns its status.
// Eligibility is decided here so ineligible channels never reach a
// transport.
func (d *Dispatcher) sendToChannel(ctx context.Context, doc model.ConfigDocInfo, children map[string]model.NotificationConfig, req *SendRequest) model.EventStatus {
	status := model.EventStatus{
		ConfigID:   doc.ID,
		ConfigName: doc.Config.Name,
		ConfigType: doc.Config.ConfigType,
	}

	cfg := d.holder.Current()
	if !cfg.IsConfigTypeAllowed(string(doc.Config.ConfigType)) {
		status.Status = model.DeliveryStatus{
			StatusCode: http.StatusForbidden,
			StatusText: fmt.Sprintf("Config type %q is not allowed", doc.Config.ConfigType),
		}
		return status
	}
	if !doc.Config.IsEnabled {
		status.Status = model.DeliveryStatus{
			StatusCode: http.StatusLocked,
			StatusText: "The channel is muted",
		}
		return status
	}
	if !doc.Config.HasFeature(req.Source.Feature) {
		status.Status = model.DeliveryStatus{
			StatusCode: http.StatusForbidden,
			StatusText: fmt.Sprintf("Feature %q is not enabled for this channel", req.Source.Feature),
		}
		return status
	}

	if doc.Config.ConfigType == model.ConfigTypeEmail {
		return d.sendEmail(ctx, status, doc, children, req)
	}

	dest, err := destinationForConfig(doc.Config)
	if err != nil {
		status.Status = model.DeliveryStatus{StatusCode: http.StatusBadRequest, StatusText: err.Error()}
		return status
	}
	resp := d.sender.Send(ctx, dest, req.Message, req.Source.ReferenceID)
	status.Status = model.DeliveryStatus{StatusCode: resp.StatusCode, StatusText: resp.StatusText}
	return status
}

// sendEmail fans out to every resolved recipient concurrently and folds
// the per-recipient statuses into the channel status.
func (d *Dispatcher) sendEmail(ctx context.Context, status model.EventStatus, doc model.ConfigDocInfo, children map[string]model.NotificationConfig, req *SendRequest) model.EventStatus {
	email := doc.Config.Email
	if email == nil {
		status.Status = model.DeliveryStatus{
			StatusCode: http.StatusBadRequest,
			StatusText: "Email channel data is missing",
		}
		return status
	}

	account, ok := children[email.SenderAccountID]
	if !ok {
		status.Status = model.DeliveryStatus{
			StatusCode: http.StatusNotFound,
			StatusText: fmt.Sprintf("NotificationConfig %q not found", email.SenderAccountID),
		}
		return status
	}
	for _, groupID := range email.EmailGroupIDs {
		if _, ok := children[groupID]; !ok {
			status.Status = model.DeliveryStatus{
				StatusCode: http.StatusNotFound,
				StatusText: fmt.Sprintf("NotificationConfig %q not found", groupID),
			}
			return status
		}
	}

	recipients := resolveRecipients(email, children)
	if len(recipients) == 0 {
		status.Status = model.AggregateRecipientStatuses(nil)
		return status
	}

	recipientStatuses := make([]model.EmailRecipientStatus, len(recipients))
	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("Recipient send panicked",
						zap.String("config_id", doc.ID),
						zap.String("recipient", recipient),
						zap.Any("panic", r))
					recipientStatuses[i] = model.EmailRecipientStatus{
						Recipient: recipient,
						Status: model.DeliveryStatus{
							StatusCode: http.StatusInternalServerError,
							StatusText: fmt.Sprintf("Failed to send message: %v", r),
						},
					}
				}
			}()
			recipientStatuses[i] = model.EmailRecipientStatus{
				Recipient: recipient,
				Status:    d.sendToRecipient(ctx, account, recipient, req),
			}
		}(i, recipient)
	}
	wg.Wait()

	status.Recipients = recipientStatuses
	status.Status = model.AggregateRecipientStatuses(recipientStatuses)
	return status
}

func (d *Dispatcher) sendToRecipient(ctx context.Context, account model.NotificationConfig, recipient string, req *SendRequest) model.DeliveryStatus {
	var dest model.Destination
	var err error
	switch {
	case account.ConfigType == model.ConfigTypeSMTPAccount && account.SMTPAccount != nil:
		acc := account.SMTPAccount
		dest, err = model.NewSMTPDestination(account.Name, acc.Host, acc.Port, acc.Method, acc.FromAddress, recipient)
	case account.ConfigType == model.ConfigTypeSESAccount && account.SESAccount != nil:
		acc := account.SESAccount
		dest, err = model.NewSESDestination(acc.FromAddress, recipient, acc.Region, acc.RoleARN)
	default:
		return model.DeliveryStatus{
			StatusCode: http.StatusBadRequest,
			StatusText: fmt.Sprintf("Config type %q is not a valid email sender account", account.ConfigType),
		}
	}
	if err != nil {
		return model.DeliveryStatus{StatusCode: http.StatusBadRequest, StatusText: err.Error()}
	}

	resp := d.sender.Send(ctx, dest, req.Message, req.Source.ReferenceID)
	return model.DeliveryStatus{StatusCode: resp.StatusCode, StatusText: resp.StatusText}
}

// destinationForConfig builds the transport destination for a
// single-target channel config.
func destinationForConfig(config model.NotificationConfig) (model.Destination, error) {
	switch config.ConfigType {
	case model.ConfigTypeSlack:
		if config.Slack == nil {
			return nil, fmt.Errorf("slack channel data is missing")
		}
		return model.NewSlackDestination(config.Slack.URL)
	case model.ConfigTypeChime:
		if config.Chime == nil {
			return nil, fmt.Errorf("chime channel data is missing")
		}
		return model.NewChimeDestination(config.Chime.URL)
	case model.ConfigTypeMicrosoftTeams:
		if config.MicrosoftTeams == nil {
			return nil, fmt.Errorf("microsoft_teams channel data is missing")
		}
		return model.NewMicrosoftTeamsDestination(config.MicrosoftTeams.URL)
	case model.ConfigTypeWebhook:
		if config.Webhook == nil {
			return nil, fmt.Errorf("webhook channel data is missing")
		}
		return model.NewCustomWebhookDestination(config.Webhook.URL, config.Webhook.HeaderParams, config.Webhook.Method)
	case model.ConfigTypeSNS:
		if config.SNS == nil {
			return nil, fmt.Errorf("sns channel data is missing")
		}
		return model.NewSNSDestination(config.SNS.TopicARN, config.SNS.RoleARN)
	default:
		return nil, fmt.Errorf("config type %q cannot be delivered to directly", config.ConfigType)
	}
}

func missingIDs(ids []string, docs []model.ConfigDocInfo) []string {
	found := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		found[doc.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
