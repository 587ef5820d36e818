package transport

import (
	"encoding/base64"
	"fmt"
	"io"

	gomail "gopkg.in/gomail.v2"

	"github.com/opensearch-project/notifications-sub002/internal/model"
	"github.com/opensearch-project/notifications-sub002/internal/sanitize"
)

// buildMIMEMessage assembles the multipart email for SMTP and SES sends:
// plain-text body, optional sanitized HTML alternative, optional
// attachment. sanitizer may be nil to skip HTML sanitization.
func buildMIMEMessage(from, recipient string, msg *model.MessageContent, sanitizer *sanitize.Sanitizer) (*gomail.Message, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", msg.Title)
	m.SetBody("text/plain", msg.TextDescription)

	if msg.HTMLDescription != "" {
		html := msg.HTMLDescription
		if sanitizer != nil {
			html = sanitizer.Sanitize(html)
		}
		m.AddAlternative("text/html", html)
	}

	if att := msg.Attachment; att != nil {
		data := []byte(att.FileData)
		if att.FileEncoding == model.FileEncodingBase64 {
			decoded, err := base64.StdEncoding.DecodeString(att.FileData)
			if err != nil {
				return nil, fmt.Errorf("decoding attachment %q: %w", att.FileName, err)
			}
			data = decoded
		}

		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if att.FileContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.FileContentType},
			}))
		}
		m.Attach(att.FileName, settings...)
	}

	return m, nil
}
