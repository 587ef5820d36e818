package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/textproto"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/sanitize"
	"github.com/opensearch-project/notifications-sub002/internal/settings"
)

// SMTPTransport delivers one email to one recipient over a configured SMTP
// account. A fresh dialer is built per send so account settings and
// credentials are always current.
type SMTPTransport struct {
	holder    *settings.Holder
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger

	// send is swapped in tests to avoid a live SMTP server.
	send func(d *gomail.Dialer, m *gomail.Message) error
}

// NewSMTPTransport wires the transport against the settings holder.
func NewSMTPTransport(logger *zap.Logger, holder *settings.Holder, sanitizer *sanitize.Sanitizer) *SMTPTransport {
	return &SMTPTransport{
		holder:    holder,
		sanitizer: sanitizer,
		logger:    logger.Named("smtp-transport"),
		send: func(d *gomail.Dialer, m *gomail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

// Send assembles and submits the email. The size check runs before any
// MIME work so oversized messages are rejected without I/O.
func (t *SMTPTransport) Send(_ context.Context, dest model.SMTPDestination, msg *model.MessageContent, refID string) model.DestinationMessageResponse {
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

	dialer := &gomail.Dialer{
		Host: dest.Host,
		Port: dest.Port,
	}
	if creds, ok := cfg.AccountCredentials(dest.AccountName); ok {
		dialer.Username = creds.Username
		dialer.Password = creds.Password
	}
	switch dest.Method {
	case model.MethodSSL:
		dialer.SSL = true
	case model.MethodStartTLS, model.MethodNone:
		// gomail upgrades to STARTTLS opportunistically when the server
		// advertises it.
	}

	if err := t.send(dialer, m); err != nil {
		t.logger.Error("SMTP send failed",
			zap.String("host", dest.Host),
			zap.Int("port", dest.Port),
			zap.String("reference_id", refID),
			zap.Error(err))
		return classifySMTPError(err, dest)
	}
	return model.DestinationMessageResponse{StatusCode: http.StatusOK, StatusText: "Success"}
}

// classifySMTPError maps an SMTP failure to a deterministic status:
// authentication rejections to 401, permanent send failures to 502,
// connection problems to 503, everything else to 424.
func classifySMTPError(err error, dest model.SMTPDestination) model.DestinationMessageResponse {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535, 538:
			return model.DestinationMessageResponse{
				StatusCode: http.StatusUnauthorized,
				StatusText: fmt.Sprintf("Authentication failed: %v", err),
			}
		case 550, 551, 552, 553, 554:
			return model.DestinationMessageResponse{
				StatusCode: http.StatusBadGateway,
				StatusText: fmt.Sprintf("sendEmail Error, SendFailed: %v", err),
			}
		}
		return model.DestinationMessageResponse{
			StatusCode: http.StatusFailedDependency,
			StatusText: fmt.Sprintf("sendEmail Error: %v", err),
		}
	}

	var netErr net.Error
	var opErr *net.OpError
	if errors.As(err, &opErr) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return model.DestinationMessageResponse{
			StatusCode: http.StatusServiceUnavailable,
			StatusText: fmt.Sprintf("Failed to connect to %s:%d: %v", dest.Host, dest.Port, err),
		}
	}

	return model.DestinationMessageResponse{
		StatusCode: http.StatusFailedDependency,
		StatusText: fmt.Sprintf("sendEmail Error: %v", err),
	}
}
