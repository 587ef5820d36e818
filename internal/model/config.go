package model

import "slices"

// Feature identifies the plugin surface a notification originates from.
// A channel only accepts events whose feature is in its allowed set.
type Feature string

const (
	FeatureAlerting        Feature = "alerting"
	FeatureIndexManagement Feature = "index_management"
	FeatureReports         Feature = "reports"
)

// SlackChannel holds the configuration data of a slack channel config.
type SlackChannel struct {
	URL string `koanf:"url" yaml:"url"`
}

// ChimeChannel holds the configuration data of a chime channel config.
type ChimeChannel struct {
	URL string `koanf:"url" yaml:"url"`
}

// MicrosoftTeamsChannel holds the configuration data of a teams channel
// config.
type MicrosoftTeamsChannel struct {
	URL string `koanf:"url" yaml:"url"`
}

// WebhookChannel holds the configuration data of a custom webhook config.
type WebhookChannel struct {
	URL          string            `koanf:"url" yaml:"url"`
	HeaderParams map[string]string `koanf:"header_params" yaml:"header_params"`
	Method       string            `koanf:"method" yaml:"method"`
}

// EmailChannel is the compound email channel: delivery requires resolving
// the sender account config and any recipient group configs by ID.
type EmailChannel struct {
	SenderAccountID string   `koanf:"email_account_id" yaml:"email_account_id"`
	Recipients      []string `koanf:"recipient_list" yaml:"recipient_list"`
	EmailGroupIDs   []string `koanf:"email_group_id_list" yaml:"email_group_id_list"`
}

// SMTPAccount holds the sender-side SMTP connection parameters. The
// credentials live in secure settings keyed by the account config name.
type SMTPAccount struct {
	Host        string           `koanf:"host" yaml:"host"`
	Port        int              `koanf:"port" yaml:"port"`
	Method      EncryptionMethod `koanf:"method" yaml:"method"`
	FromAddress string           `koanf:"from_address" yaml:"from_address"`
}

// SESAccount holds the sender-side SES parameters.
type SESAccount struct {
	Region      string `koanf:"region" yaml:"region"`
	RoleARN     string `koanf:"role_arn" yaml:"role_arn"`
	FromAddress string `koanf:"from_address" yaml:"from_address"`
}

// EmailGroup is a named list of recipient addresses.
type EmailGroup struct {
	Recipients []string `koanf:"recipient_list" yaml:"recipient_list"`
}

// SNSChannel holds the configuration data of an SNS channel config.
type SNSChannel struct {
	TopicARN string `koanf:"topic_arn" yaml:"topic_arn"`
	RoleARN  string `koanf:"role_arn" yaml:"role_arn"`
}

// NotificationConfig is one stored channel configuration. Exactly one of
// the data pointers matching ConfigType is set.
type NotificationConfig struct {
	Name       string     `koanf:"name" yaml:"name"`
	ConfigType ConfigType `koanf:"config_type" yaml:"config_type"`
	IsEnabled  bool       `koanf:"is_enabled" yaml:"is_enabled"`
	Features   []Feature  `koanf:"features" yaml:"features"`

	Slack          *SlackChannel          `koanf:"slack" yaml:"slack,omitempty"`
	Chime          *ChimeChannel          `koanf:"chime" yaml:"chime,omitempty"`
	MicrosoftTeams *MicrosoftTeamsChannel `koanf:"microsoft_teams" yaml:"microsoft_teams,omitempty"`
	Webhook        *WebhookChannel        `koanf:"webhook" yaml:"webhook,omitempty"`
	Email          *EmailChannel          `koanf:"email" yaml:"email,omitempty"`
	SNS            *SNSChannel            `koanf:"sns" yaml:"sns,omitempty"`
	SMTPAccount    *SMTPAccount           `koanf:"smtp_account" yaml:"smtp_account,omitempty"`
	SESAccount     *SESAccount            `koanf:"ses_account" yaml:"ses_account,omitempty"`
	EmailGroup     *EmailGroup            `koanf:"email_group" yaml:"email_group,omitempty"`
}

// HasFeature reports whether the channel accepts events from feature.
func (c *NotificationConfig) HasFeature(feature Feature) bool {
	return slices.Contains(c.Features, feature)
}

// ConfigDocInfo pairs a stored channel configuration with its document ID.
// The dispatcher consumes these read-only; they are fetched fresh per send.
type ConfigDocInfo struct {
	ID     string
	Config NotificationConfig
}
