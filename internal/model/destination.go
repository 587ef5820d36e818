package model

import (
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
)

// ConfigType identifies a channel configuration variant.
type ConfigType string

// Channel configuration types recognized by the engine. The string values
// are the wire tags used in stored configuration documents.
const (
	ConfigTypeNone           ConfigType = "none"
	ConfigTypeSlack          ConfigType = "slack"
	ConfigTypeChime          ConfigType = "chime"
	ConfigTypeMicrosoftTeams ConfigType = "microsoft_teams"
	ConfigTypeWebhook        ConfigType = "webhook"
	ConfigTypeEmail          ConfigType = "email"
	ConfigTypeSNS            ConfigType = "sns"
	ConfigTypeSESAccount     ConfigType = "ses_account"
	ConfigTypeSMTPAccount    ConfigType = "smtp_account"
	ConfigTypeEmailGroup     ConfigType = "email_group"
)

// AllConfigTypes lists every recognized config type. Exhaustiveness tests
// over the destination switch walk this slice.
var AllConfigTypes = []ConfigType{
	ConfigTypeNone,
	ConfigTypeSlack,
	ConfigTypeChime,
	ConfigTypeMicrosoftTeams,
	ConfigTypeWebhook,
	ConfigTypeEmail,
	ConfigTypeSNS,
	ConfigTypeSESAccount,
	ConfigTypeSMTPAccount,
	ConfigTypeEmailGroup,
}

// EncryptionMethod selects the SMTP transport security mode.
type EncryptionMethod string

const (
	MethodSSL      EncryptionMethod = "ssl"
	MethodStartTLS EncryptionMethod = "start_tls"
	MethodNone     EncryptionMethod = "none"
)

// Destination is the sealed union of delivery targets. Only the variants in
// this package implement it, so a type switch over all of them is
// exhaustive by construction.
type Destination interface {
	// ConfigType returns the channel type this destination delivers to.
	ConfigType() ConfigType

	sealedDestination()
}

// SlackDestination posts to a Slack incoming webhook.
type SlackDestination struct {
	URL string
}

// ChimeDestination posts to an Amazon Chime webhook.
type ChimeDestination struct {
	URL string
}

// MicrosoftTeamsDestination posts to a Microsoft Teams incoming webhook.
type MicrosoftTeamsDestination struct {
	URL string
}

// CustomWebhookDestination posts/puts/patches to an arbitrary HTTP
// endpoint. When HeaderParams is non-empty it is used verbatim; an empty
// map gets a default JSON Content-Type.
type CustomWebhookDestination struct {
	URL          string
	HeaderParams map[string]string
	Method       string
}

// SMTPDestination delivers one email via a configured SMTP account.
type SMTPDestination struct {
	AccountName string
	Host        string
	Port        int
	Method      EncryptionMethod
	FromAddress string
	Recipient   string
}

// SESDestination delivers one email via the Amazon SES raw-email API.
type SESDestination struct {
	FromAddress string
	Recipient   string
	Region      string
	RoleARN     string
}

// SNSDestination publishes to an Amazon SNS topic.
type SNSDestination struct {
	TopicARN string
	RoleARN  string
}

func (SlackDestination) ConfigType() ConfigType          { return ConfigTypeSlack }
func (ChimeDestination) ConfigType() ConfigType          { return ConfigTypeChime }
func (MicrosoftTeamsDestination) ConfigType() ConfigType { return ConfigTypeMicrosoftTeams }
func (CustomWebhookDestination) ConfigType() ConfigType  { return ConfigTypeWebhook }
func (SMTPDestination) ConfigType() ConfigType           { return ConfigTypeSMTPAccount }
func (SESDestination) ConfigType() ConfigType            { return ConfigTypeSESAccount }
func (SNSDestination) ConfigType() ConfigType            { return ConfigTypeSNS }

func (SlackDestination) sealedDestination()          {}
func (ChimeDestination) sealedDestination()          {}
func (MicrosoftTeamsDestination) sealedDestination() {}
func (CustomWebhookDestination) sealedDestination()  {}
func (SMTPDestination) sealedDestination()           {}
func (SESDestination) sealedDestination()            {}
func (SNSDestination) sealedDestination()            {}

// NewSlackDestination validates the webhook URL and builds the destination.
func NewSlackDestination(rawURL string) (SlackDestination, error) {
	if err := ValidateURL(rawURL); err != nil {
		return SlackDestination{}, err
	}
	return SlackDestination{URL: rawURL}, nil
}

// NewChimeDestination validates the webhook URL and builds the destination.
func NewChimeDestination(rawURL string) (ChimeDestination, error) {
	if err := ValidateURL(rawURL); err != nil {
		return ChimeDestination{}, err
	}
	return ChimeDestination{URL: rawURL}, nil
}

// NewMicrosoftTeamsDestination validates the webhook URL and builds the
// destination.
func NewMicrosoftTeamsDestination(rawURL string) (MicrosoftTeamsDestination, error) {
	if err := ValidateURL(rawURL); err != nil {
		return MicrosoftTeamsDestination{}, err
	}
	return MicrosoftTeamsDestination{URL: rawURL}, nil
}

// NewCustomWebhookDestination validates the URL and HTTP method. An empty
// method defaults to POST.
func NewCustomWebhookDestination(rawURL string, headerParams map[string]string, method string) (CustomWebhookDestination, error) {
	if err := ValidateURL(rawURL); err != nil {
		return CustomWebhookDestination{}, err
	}
	if method == "" {
		method = http.MethodPost
	}
	if err := ValidateMethod(method); err != nil {
		return CustomWebhookDestination{}, err
	}
	return CustomWebhookDestination{URL: rawURL, HeaderParams: headerParams, Method: method}, nil
}

// NewSMTPDestination validates host, port, security method and both
// addresses before building the destination.
func NewSMTPDestination(accountName, host string, port int, method EncryptionMethod, fromAddress, recipient string) (SMTPDestination, error) {
	if host == "" {
		return SMTPDestination{}, &ValidationError{Reason: "host is null or empty"}
	}
	if port <= 0 {
		return SMTPDestination{}, &ValidationError{Reason: fmt.Sprintf("invalid port %d", port)}
	}
	switch method {
	case MethodSSL, MethodStartTLS, MethodNone:
	default:
		return SMTPDestination{}, &ValidationError{Reason: fmt.Sprintf("invalid method %q supplied", method)}
	}
	if err := ValidateEmail(fromAddress); err != nil {
		return SMTPDestination{}, err
	}
	if err := ValidateEmail(recipient); err != nil {
		return SMTPDestination{}, err
	}
	return SMTPDestination{
		AccountName: accountName,
		Host:        host,
		Port:        port,
		Method:      method,
		FromAddress: fromAddress,
		Recipient:   recipient,
	}, nil
}

// NewSESDestination validates both addresses and the region before
// building the destination.
func NewSESDestination(fromAddress, recipient, region, roleARN string) (SESDestination, error) {
	if err := ValidateEmail(fromAddress); err != nil {
		return SESDestination{}, err
	}
	if err := ValidateEmail(recipient); err != nil {
		return SESDestination{}, err
	}
	if region == "" {
		return SESDestination{}, &ValidationError{Reason: "aws region is null or empty"}
	}
	return SESDestination{FromAddress: fromAddress, Recipient: recipient, Region: region, RoleARN: roleARN}, nil
}

// NewSNSDestination validates the topic ARN before building the
// destination.
func NewSNSDestination(topicARN, roleARN string) (SNSDestination, error) {
	if !strings.HasPrefix(topicARN, "arn:") {
		return SNSDestination{}, &ValidationError{Reason: fmt.Sprintf("invalid topic ARN %q", topicARN)}
	}
	return SNSDestination{TopicARN: topicARN, RoleARN: roleARN}, nil
}

// Region returns the region segment of the topic ARN
// (arn:partition:sns:region:account:topic), or "" when absent.
func (d SNSDestination) RegionFromARN() string {
	parts := strings.Split(d.TopicARN, ":")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

// ValidateURL checks that the given string is a well-formed absolute
// http(s) URL with a host. Only http and https are supported.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Reason: "url is null or empty"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("invalid URL %q", rawURL)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Reason: fmt.Sprintf("URL %q must use http or https scheme", rawURL)}
	}
	if u.Host == "" {
		return &ValidationError{Reason: fmt.Sprintf("URL %q must include a host", rawURL)}
	}
	return nil
}

// ValidateEmail checks that the given string parses as an RFC 5322 address.
func ValidateEmail(address string) error {
	if address == "" {
		return &ValidationError{Reason: "fromAddress and recipient should be provided"}
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("invalid email address %q", address)}
	}
	return nil
}

// ValidateMethod checks that method is one of POST, PUT or PATCH.
func ValidateMethod(method string) error {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return nil
	default:
		return &ValidationError{Reason: "invalid method supplied, only POST, PUT and PATCH are allowed"}
	}
}
