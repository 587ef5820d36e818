package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/sanitize"
	"github.com/opensearch-project/notifications-sub002/internal/settings"
)

func newTestHolder(t *testing.T, mutate func(*settings.Settings)) *settings.Holder {
	t.Helper()
	cfg := settings.Default()
	if mutate != nil {
		mutate(cfg)
	}
	h, err := settings.NewHolder(cfg)
	require.NoError(t, err)
	return h
}

func mustSMTPDestination(t *testing.T) model.SMTPDestination {
	t.Helper()
	d, err := model.NewSMTPDestination("ops", "smtp.example.com", 587, model.MethodStartTLS,
		"from@example.com", "to@example.com")
	require.NoError(t, err)
	return d
}

func TestSMTPSend_Success(t *testing.T) {
	var gotDialer *gomail.Dialer
	tr := NewSMTPTransport(zap.NewNop(), newTestHolder(t, nil), sanitize.New(nil, nil))
	tr.send = func(d *gomail.Dialer, m *gomail.Message) error {
		gotDialer = d
		return nil
	}

	resp := tr.Send(context.Background(), mustSMTPDestination(t), mustMessage(t, "subject", "body"), "ref-1")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Success", resp.StatusText)
	require.NotNil(t, gotDialer)
	assert.Equal(t, "smtp.example.com", gotDialer.Host)
	assert.Equal(t, 587, gotDialer.Port)
	assert.False(t, gotDialer.SSL)
	assert.Empty(t, gotDialer.Username)
}

func TestSMTPSend_SSLMethodAndCredentials(t *testing.T) {
	var gotDialer *gomail.Dialer
	holder := newTestHolder(t, func(cfg *settings.Settings) {
		cfg.Accounts = map[string]settings.Credentials{
			"ops": {Username: "user", Password: "secret"},
		}
	})
	tr := NewSMTPTransport(zap.NewNop(), holder, sanitize.New(nil, nil))
	tr.send = func(d *gomail.Dialer, m *gomail.Message) error {
		gotDialer = d
		return nil
	}

	dest, err := model.NewSMTPDestination("ops", "smtp.example.com", 465, model.MethodSSL,
		"from@example.com", "to@example.com")
	require.NoError(t, err)

	resp := tr.Send(context.Background(), dest, mustMessage(t, "subject", "body"), "ref-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, gotDialer)
	assert.True(t, gotDialer.SSL)
	assert.Equal(t, "user", gotDialer.Username)
	assert.Equal(t, "secret", gotDialer.Password)
}

func TestSMTPSend_LegacyCredentialFallback(t *testing.T) {
	var gotDialer *gomail.Dialer
	holder := newTestHolder(t, func(cfg *settings.Settings) {
		cfg.LegacyAccounts = map[string]settings.Credentials{
			"ops": {Username: "legacy-user", Password: "legacy-pass"},
		}
	})
	tr := NewSMTPTransport(zap.NewNop(), holder, sanitize.New(nil, nil))
	tr.send = func(d *gomail.Dialer, m *gomail.Message) error {
		gotDialer = d
		return nil
	}

	tr.Send(context.Background(), mustSMTPDestination(t), mustMessage(t, "s", "b"), "ref-1")
	require.NotNil(t, gotDialer)
	assert.Equal(t, "legacy-user", gotDialer.Username)
}

func TestSMTPSend_OversizedRejectedBeforeIO(t *testing.T) {
	holder := newTestHolder(t, func(cfg *settings.Settings) {
		cfg.Email.SizeLimit = 10000
	})
	tr := NewSMTPTransport(zap.NewNop(), holder, sanitize.New(nil, nil))
	sendCalled := false
	tr.send = func(d *gomail.Dialer, m *gomail.Message) error {
		sendCalled = true
		return nil
	}

	msg := mustMessage(t, "subject", strings.Repeat("x", 20000))
	resp := tr.Send(context.Background(), mustSMTPDestination(t), msg, "ref-1")

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "Email size larger than 10000", resp.StatusText)
	assert.False(t, sendCalled)
}

func TestClassifySMTPError(t *testing.T) {
	dest := model.SMTPDestination{Host: "smtp.example.com", Port: 587}

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"auth rejected 535", &textproto.Error{Code: 535, Msg: "bad credentials"}, http.StatusUnauthorized},
		{"auth required 530", &textproto.Error{Code: 530, Msg: "auth required"}, http.StatusUnauthorized},
		{"mailbox unavailable 550", &textproto.Error{Code: 550, Msg: "no such user"}, http.StatusBadGateway},
		{"transaction failed 554", &textproto.Error{Code: 554, Msg: "rejected"}, http.StatusBadGateway},
		{"other smtp code", &textproto.Error{Code: 450, Msg: "try later"}, http.StatusFailedDependency},
		{"connection refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusFailedDependency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := classifySMTPError(tt.err, dest)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}
