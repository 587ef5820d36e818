package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/settings"
	"github.com/opensearch-project/notifications-sub002/internal/testutil"
	"github.com/opensearch-project/notifications-sub002/internal/throttle"
)

type fakeSender struct {
	mu      sync.Mutex
	calls   []model.Destination
	respond func(dest model.Destination) model.DestinationMessageResponse
}

func (f *fakeSender) Send(_ context.Context, dest model.Destination, _ *model.MessageContent, _ string) model.DestinationMessageResponse {
	f.mu.Lock()
	f.calls = append(f.calls, dest)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(dest)
	}
	return model.DestinationMessageResponse{StatusCode: http.StatusOK, StatusText: "Success"}
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	dispatcher *Dispatcher
	configs    *MemoryConfigStore
	events     *MemoryEventStore
	sender     *fakeSender
	accountant *throttle.Accountant
}

func newFixture(t *testing.T, mutate func(*settings.Settings)) *fixture {
	t.Helper()
	cfg := settings.Default()
	if mutate != nil {
		mutate(cfg)
	}
	holder, err := settings.NewHolder(cfg)
	require.NoError(t, err)

	f := &fixture{
		configs:    NewMemoryConfigStore(),
		events:     NewMemoryEventStore(),
		sender:     &fakeSender{},
		accountant: throttle.New(holder),
	}
	f.dispatcher = NewDispatcher(zap.NewNop(), holder, f.configs, f.events, f.sender, f.accountant)
	return f
}

func slackConfig(enabled bool, features ...model.Feature) model.NotificationConfig {
	cfg := testutil.MakeSlackConfig("https://hooks.slack.com/services/T/B/X", features...)
	cfg.IsEnabled = enabled
	return cfg
}

func newRequest(t *testing.T, configIDs ...string) *SendRequest {
	t.Helper()
	return &SendRequest{
		Source: model.EventSource{
			Title:       "the title",
			ReferenceID: "alert-1",
			Feature:     model.FeatureAlerting,
		},
		Message:   testutil.MakeMessage(t, "the title", "the body"),
		ConfigIDs: configIDs,
	}
}

func TestSend_SingleChannelSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-1", slackConfig(true))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.EventID)
	require.Len(t, resp.Statuses, 1)
	assert.Equal(t, "cfg-1", resp.Statuses[0].ConfigID)
	assert.Equal(t, "Success", resp.Statuses[0].Status.StatusText)
	assert.Equal(t, 1, f.sender.callCount())

	event, ok := f.events.Get(resp.EventID)
	require.True(t, ok)
	assert.Equal(t, "alert-1", event.Source.ReferenceID)
	assert.Len(t, event.StatusList, 1)
}

func TestSend_ValidationFailures(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.dispatcher.Send(context.Background(), &SendRequest{ConfigIDs: []string{"x"}})
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))

	req := newRequest(t)
	_, err = f.dispatcher.Send(context.Background(), req)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
}

func TestSend_MissingConfigFailsWholeRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-1", slackConfig(true))

	_, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1", "cfg-missing"))
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Message, "cfg-missing")
	assert.Equal(t, 0, f.sender.callCount())
	assert.Equal(t, 0, f.events.Len())
}

func TestSend_MutedChannelNoTransportCall(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-1", slackConfig(false))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusLocked, resp.StatusCode)
	require.Len(t, resp.Statuses, 1)
	assert.Equal(t, "The channel is muted", resp.Statuses[0].Status.StatusText)
	assert.Equal(t, 0, f.sender.callCount())
	// The event is still persisted with the muted status.
	assert.Equal(t, 1, f.events.Len())
}

func TestSend_FeatureMismatchForbidden(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-1", slackConfig(true, model.FeatureReports))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, f.sender.callCount())
}

func TestSend_DisallowedConfigTypeForbidden(t *testing.T) {
	f := newFixture(t, func(cfg *settings.Settings) {
		cfg.AllowedConfigTypes = []string{"chime"}
	})
	f.configs.Put("cfg-1", slackConfig(true))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, f.sender.callCount())
}

func TestSend_QuotaRejectedBeforeIO(t *testing.T) {
	f := newFixture(t, func(cfg *settings.Settings) {
		cfg.Throttle.MaxMessages = 1
	})
	f.configs.Put("cfg-1", slackConfig(true))
	f.configs.Put("cfg-2", slackConfig(true))

	_, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1", "cfg-2"))
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "Message quota not available", statusErr.Message)
	assert.Equal(t, 0, f.sender.callCount())
	assert.Equal(t, 0, f.events.Len())
	assert.Equal(t, 0, f.accountant.Counters().Requests)
}

func emailFixtureConfigs(f *fixture) {
	f.configs.Put("account-1", testutil.MakeSMTPAccountConfig("smtp.example.com", 587, "from@example.com"))
	f.configs.Put("group-1", testutil.MakeEmailGroupConfig("b@example.com", "c@example.com"))
	f.configs.Put("email-1", testutil.MakeEmailConfig("account-1",
		[]string{"a@example.com", "b@example.com"}, "group-1"))
}

func TestSend_EmailFanOutDedupAndPartialFailure(t *testing.T) {
	f := newFixture(t, nil)
	emailFixtureConfigs(f)

	f.sender.respond = func(dest model.Destination) model.DestinationMessageResponse {
		smtp, ok := dest.(model.SMTPDestination)
		if ok && smtp.Recipient == "c@example.com" {
			return model.DestinationMessageResponse{StatusCode: http.StatusInternalServerError, StatusText: "Failed"}
		}
		return model.DestinationMessageResponse{StatusCode: http.StatusOK, StatusText: "Success"}
	}

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "email-1"))
	require.NoError(t, err)

	// a, b from the explicit list and c from the group; b deduplicated.
	assert.Equal(t, 3, f.sender.callCount())

	require.Len(t, resp.Statuses, 1)
	channel := resp.Statuses[0]
	assert.Equal(t, http.StatusMultiStatus, channel.Status.StatusCode)
	assert.Equal(t, "Errors", channel.Status.StatusText)

	require.Len(t, channel.Recipients, 3)
	byRecipient := make(map[string]model.DeliveryStatus, 3)
	for _, r := range channel.Recipients {
		byRecipient[r.Recipient] = r.Status
	}
	assert.Equal(t, http.StatusOK, byRecipient["a@example.com"].StatusCode)
	assert.Equal(t, http.StatusOK, byRecipient["b@example.com"].StatusCode)
	assert.Equal(t, http.StatusInternalServerError, byRecipient["c@example.com"].StatusCode)

	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
}

func TestSend_EmailUniformRecipientsKeepStatus(t *testing.T) {
	f := newFixture(t, nil)
	emailFixtureConfigs(f)

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "email-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Success", resp.Statuses[0].Status.StatusText)
}

func TestSend_MissingEmailGroupIsChannelFailure(t *testing.T) {
	f := newFixture(t, nil)
	emailFixtureConfigs(f)
	f.configs.Put("email-1", testutil.MakeEmailConfig("account-1",
		[]string{"a@example.com"}, "group-gone"))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "email-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Statuses[0].Status.StatusText, "group-gone")
	assert.Equal(t, 0, f.sender.callCount())
}

func TestSend_EventStoreFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-1", slackConfig(true))
	f.events.FailWith(errors.New("index unavailable"))

	_, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1"))
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInsufficientStorage, statusErr.StatusCode)
	assert.Equal(t, "Indexing not acknowledged", statusErr.Message)
	// Delivery happened before persistence failed.
	assert.Equal(t, 1, f.sender.callCount())
}

func TestSend_CountersIncrementedOncePerRequest(t *testing.T) {
	f := newFixture(t, nil)
	emailFixtureConfigs(f)
	f.configs.Put("slack-1", slackConfig(true))

	_, err := f.dispatcher.Send(context.Background(), newRequest(t, "slack-1", "email-1"))
	require.NoError(t, err)

	snap := f.accountant.Counters()
	assert.Equal(t, 1, snap.Requests)
	assert.Equal(t, 4, snap.Messages) // 1 slack + 3 email recipients
	assert.Equal(t, 3, snap.Emails)
}

func TestSend_DivergentChannelsFoldTo207(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-ok", slackConfig(true))
	f.configs.Put("cfg-muted", slackConfig(false))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-ok", "cfg-muted"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	assert.Len(t, resp.Statuses, 2)
}

func TestSend_WebhookChannelDestination(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("hook-1", testutil.MakeWebhookConfig("https://example.com/hook",
		map[string]string{"X-Token": "abc"}, http.MethodPut))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "hook-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, f.sender.callCount())
	hook, ok := f.sender.calls[0].(model.CustomWebhookDestination)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/hook", hook.URL)
	assert.Equal(t, http.MethodPut, hook.Method)
	assert.Equal(t, "abc", hook.HeaderParams["X-Token"])
}

func TestSend_PanickingChannelSendIsIsolated(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-ok", slackConfig(true))
	f.configs.Put("hook-bad", testutil.MakeWebhookConfig("https://example.com/hook", nil, http.MethodPost))

	f.sender.respond = func(dest model.Destination) model.DestinationMessageResponse {
		if _, ok := dest.(model.CustomWebhookDestination); ok {
			panic("transport bug")
		}
		return model.DestinationMessageResponse{StatusCode: http.StatusOK, StatusText: "Success"}
	}

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-ok", "hook-bad"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	require.Len(t, resp.Statuses, 2)
	byID := make(map[string]model.EventStatus, 2)
	for _, s := range resp.Statuses {
		byID[s.ConfigID] = s
	}
	assert.Equal(t, http.StatusOK, byID["cfg-ok"].Status.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, byID["hook-bad"].Status.StatusCode)
	assert.Contains(t, byID["hook-bad"].Status.StatusText, "transport bug")
	// The event is still persisted with both statuses.
	assert.Equal(t, 1, f.events.Len())
}

func TestSend_PanickingRecipientSendIsIsolated(t *testing.T) {
	f := newFixture(t, nil)
	emailFixtureConfigs(f)

	f.sender.respond = func(dest model.Destination) model.DestinationMessageResponse {
		smtp, ok := dest.(model.SMTPDestination)
		if ok && smtp.Recipient == "c@example.com" {
			panic("smtp bug")
		}
		return model.DestinationMessageResponse{StatusCode: http.StatusOK, StatusText: "Success"}
	}

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "email-1"))
	require.NoError(t, err)

	require.Len(t, resp.Statuses, 1)
	channel := resp.Statuses[0]
	assert.Equal(t, http.StatusMultiStatus, channel.Status.StatusCode)

	require.Len(t, channel.Recipients, 3)
	byRecipient := make(map[string]model.DeliveryStatus, 3)
	for _, r := range channel.Recipients {
		byRecipient[r.Recipient] = r.Status
	}
	assert.Equal(t, http.StatusOK, byRecipient["a@example.com"].StatusCode)
	assert.Equal(t, http.StatusOK, byRecipient["b@example.com"].StatusCode)
	assert.Equal(t, http.StatusInternalServerError, byRecipient["c@example.com"].StatusCode)
	assert.Contains(t, byRecipient["c@example.com"].StatusText, "smtp bug")
}

func TestSend_DuplicateConfigIDsDeduplicated(t *testing.T) {
	f := newFixture(t, nil)
	f.configs.Put("cfg-1", slackConfig(true))

	resp, err := f.dispatcher.Send(context.Background(), newRequest(t, "cfg-1", "cfg-1"))
	require.NoError(t, err)

	assert.Len(t, resp.Statuses, 1)
	assert.Equal(t, 1, f.sender.callCount())
}
