// Package testutil provides shared test helpers for the notifications
// engine. Import this in test files to avoid duplicating channel config
// and message builders.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opensearch-project/notifications-sub002/internal/model"
)

// MakeMessage builds a valid MessageContent, failing the test on error.
func MakeMessage(t *testing.T, title, text string) *model.MessageContent {
	t.Helper()
	msg, err := model.NewMessageContent(title, text)
	require.NoError(t, err)
	return msg
}

// MakeSlackConfig builds an enabled Slack channel config accepting the
// given features (alerting when none are given).
func MakeSlackConfig(url string, features ...model.Feature) model.NotificationConfig {
	if len(features) == 0 {
		features = []model.Feature{model.FeatureAlerting}
	}
	return model.NotificationConfig{
		Name:       "slack-test",
		ConfigType: model.ConfigTypeSlack,
		IsEnabled:  true,
		Features:   features,
		Slack:      &model.SlackChannel{URL: url},
	}
}

// MakeWebhookConfig builds an enabled custom webhook channel config.
func MakeWebhookConfig(url string, headers map[string]string, method string) model.NotificationConfig {
	return model.NotificationConfig{
		Name:       "webhook-test",
		ConfigType: model.ConfigTypeWebhook,
		IsEnabled:  true,
		Features:   []model.Feature{model.FeatureAlerting},
		Webhook:    &model.WebhookChannel{URL: url, HeaderParams: headers, Method: method},
	}
}

// MakeSMTPAccountConfig builds an SMTP sender account config.
func MakeSMTPAccountConfig(host string, port int, from string) model.NotificationConfig {
	return model.NotificationConfig{
		Name:       "smtp-test",
		ConfigType: model.ConfigTypeSMTPAccount,
		IsEnabled:  true,
		SMTPAccount: &model.SMTPAccount{
			Host:        host,
			Port:        port,
			Method:      model.MethodStartTLS,
			FromAddress: from,
		},
	}
}

// MakeEmailConfig builds an enabled email channel config wired to the
// given sender account and group IDs.
func MakeEmailConfig(accountID string, recipients []string, groupIDs ...string) model.NotificationConfig {
	return model.NotificationConfig{
		Name:       "email-test",
		ConfigType: model.ConfigTypeEmail,
		IsEnabled:  true,
		Features:   []model.Feature{model.FeatureAlerting},
		Email: &model.EmailChannel{
			SenderAccountID: accountID,
			Recipients:      recipients,
			EmailGroupIDs:   groupIDs,
		},
	}
}

// MakeEmailGroupConfig builds an email group config.
func MakeEmailGroupConfig(recipients ...string) model.NotificationConfig {
	return model.NotificationConfig{
		Name:       "group-test",
		ConfigType: model.ConfigTypeEmailGroup,
		IsEnabled:  true,
		EmailGroup: &model.EmailGroup{Recipients: recipients},
	}
}
