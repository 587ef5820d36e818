package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/opensearch-project/notifications-sub002/internal/client"
	"github.com/opensearch-project/notifications-sub002/internal/model"
)

const userAgent = "notifications-core/v1"

// validResponseStatus is the set of webhook response codes treated as a
// successful hand-off to the remote endpoint.
var validResponseStatus = map[int]struct{}{
	http.StatusOK:                   {},
	http.StatusCreated:              {},
	http.StatusAccepted:             {},
	http.StatusNonAuthoritativeInfo: {},
	http.StatusNoContent:            {},
	http.StatusResetContent:         {},
	http.StatusPartialContent:       {},
	http.StatusMultiStatus:          {},
}

// WebhookTransport delivers to Slack, Chime, Microsoft Teams and custom
// webhook destinations over the shared pooled HTTP client.
type WebhookTransport struct {
	httpClient *http.Client
	denyList   *client.DenyList
	logger     *zap.Logger
}

// NewWebhookTransport wires the transport. denyList may be nil when no
// hosts are blocked.
func NewWebhookTransport(logger *zap.Logger, httpClient *http.Client, denyList *client.DenyList) *WebhookTransport {
	return &WebhookTransport{
		httpClient: httpClient,
		denyList:   denyList,
		logger:     logger.Named("webhook-transport"),
	}
}

// Send posts the message to the destination webhook. The destination must
// be one of the webhook-family variants. refID identifies the caller's
// source object in logs.
func (t *WebhookTransport) Send(ctx context.Context, dest model.Destination, msg *model.MessageContent, refID string) model.DestinationMessageResponse {
	rawURL, err := destinationURL(dest)
	if err != nil {
		return model.DestinationMessageResponse{StatusCode: http.StatusBadRequest, StatusText: err.Error()}
	}

	if t.denyList != nil && t.denyList.IsURLDenied(ctx, rawURL) {
		host := hostOf(rawURL)
		t.logger.Warn("Webhook host is in the deny list, refusing to send",
			zap.String("host", host))
		return model.DestinationMessageResponse{
			StatusCode: http.StatusForbidden,
			StatusText: fmt.Sprintf("Host %q is not allowed", host),
		}
	}

	body, err := buildRequestBody(dest, msg)
	if err != nil {
		return model.DestinationMessageResponse{StatusCode: http.StatusBadRequest, StatusText: err.Error()}
	}

	resp, err := t.doSend(ctx, dest, rawURL, body)
	if err != nil {
		// One retry for transient transport failures.
		resp, err = t.doSend(ctx, dest, rawURL, body)
	}
	if err != nil {
		t.logger.Error("Webhook send failed",
			zap.String("config_type", string(dest.ConfigType())),
			zap.String("reference_id", refID),
			zap.Error(err))
		return model.DestinationMessageResponse{
			StatusCode: http.StatusServiceUnavailable,
			StatusText: fmt.Sprintf("Failed to send message: %v", err),
		}
	}
	return resp
}

func (t *WebhookTransport) doSend(ctx context.Context, dest model.Destination, rawURL, body string) (model.DestinationMessageResponse, error) {
	method := http.MethodPost
	if custom, ok := dest.(model.CustomWebhookDestination); ok {
		method = custom.Method
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(body))
	if err != nil {
		return model.DestinationMessageResponse{}, fmt.Errorf("create request: %w", err)
	}
	for key, value := range buildHeaders(dest) {
		req.Header.Set(key, value)
	}

	httpResp, err := t.httpClient.Do(req)
	if err != nil {
		return model.DestinationMessageResponse{}, err
	}
	defer httpResp.Body.Close()

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return model.DestinationMessageResponse{}, fmt.Errorf("read response: %w", err)
	}

	// An endpoint answering with an empty entity still delivered; normalize
	// so callers always get a JSON-ish text.
	responseText := strings.TrimSpace(string(responseBody))
	if responseText == "" {
		responseText = "{}"
	}

	if _, ok := validResponseStatus[httpResp.StatusCode]; !ok {
		t.logger.Warn("Webhook returned unexpected status",
			zap.Int("status", httpResp.StatusCode),
			zap.String("config_type", string(dest.ConfigType())))
	}
	return model.DestinationMessageResponse{
		StatusCode: httpResp.StatusCode,
		StatusText: responseText,
	}, nil
}

// buildRequestBody serializes the message for the destination's payload
// schema. Slack and Teams take {"text": ...}, Chime takes {"Content": ...},
// and custom webhooks receive the text description untouched.
func buildRequestBody(dest model.Destination, msg *model.MessageContent) (string, error) {
	var payload any
	switch dest.(type) {
	case model.SlackDestination, model.MicrosoftTeamsDestination:
		payload = map[string]string{"text": msg.MessageWithTitle()}
	case model.ChimeDestination:
		payload = map[string]string{"Content": msg.MessageWithTitle()}
	case model.CustomWebhookDestination:
		return msg.TextDescription, nil
	default:
		return "", fmt.Errorf("destination %q is not a webhook", dest.ConfigType())
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// buildHeaders returns the headers for the request. Custom webhook headers
// are used verbatim when present; everything else gets the JSON default.
func buildHeaders(dest model.Destination) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"User-Agent":   userAgent,
	}
	if custom, ok := dest.(model.CustomWebhookDestination); ok && len(custom.HeaderParams) > 0 {
		headers = make(map[string]string, len(custom.HeaderParams))
		for key, value := range custom.HeaderParams {
			headers[key] = value
		}
	}
	return headers
}

func destinationURL(dest model.Destination) (string, error) {
	switch d := dest.(type) {
	case model.SlackDestination:
		return d.URL, nil
	case model.ChimeDestination:
		return d.URL, nil
	case model.MicrosoftTeamsDestination:
		return d.URL, nil
	case model.CustomWebhookDestination:
		return d.URL, nil
	default:
		return "", fmt.Errorf("destination %q is not a webhook", dest.ConfigType())
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
