package model

import "fmt"

// Attachment encodings accepted in a message payload.
const (
	FileEncodingText   = "text"
	FileEncodingBase64 = "base64"
)

// Attachment is an optional file carried with an email notification.
// FileData holds the raw text or the base64-encoded bytes depending on
// FileEncoding.
type Attachment struct {
	FileName        string
	FileData        string
	FileContentType string
	FileEncoding    string
}

// MessageContent is the channel-independent notification payload. Title and
// TextDescription are mandatory; HTMLDescription and Attachment only apply
// to email destinations.
type MessageContent struct {
	Title           string
	TextDescription string
	HTMLDescription string
	Attachment      *Attachment
}

// NewMessageContent builds a MessageContent, failing fast when the
// mandatory fields are empty.
func NewMessageContent(title, textDescription string) (*MessageContent, error) {
	if title == "" {
		return nil, &ValidationError{Reason: "title is null or empty"}
	}
	if textDescription == "" {
		return nil, &ValidationError{Reason: "text message part is null or empty"}
	}
	return &MessageContent{Title: title, TextDescription: textDescription}, nil
}

// WithHTML returns a copy carrying an HTML body alternative.
func (m *MessageContent) WithHTML(html string) *MessageContent {
	c := *m
	c.HTMLDescription = html
	return &c
}

// WithAttachment returns a copy carrying an attachment. The encoding must
// be FileEncodingText or FileEncodingBase64.
func (m *MessageContent) WithAttachment(a Attachment) (*MessageContent, error) {
	if a.FileEncoding != FileEncodingText && a.FileEncoding != FileEncodingBase64 {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported attachment encoding %q", a.FileEncoding)}
	}
	if a.FileName == "" {
		return nil, &ValidationError{Reason: "attachment file name is null or empty"}
	}
	c := *m
	c.Attachment = &a
	return &c, nil
}

// MessageWithTitle joins the title and the text body with a blank line.
// This is the exact payload value sent to Slack, Chime and Teams webhooks.
func (m *MessageContent) MessageWithTitle() string {
	return m.Title + "\n\n" + m.TextDescription
}

// IsMessageSizeOverLimit estimates the assembled email size and reports
// whether it exceeds sizeLimit. The estimate is an upper bound, not an
// exact byte count: minHeaderLength approximates the MIME header overhead
// for the message and again for the attachment part.
func IsMessageSizeOverLimit(m *MessageContent, sizeLimit, minHeaderLength int) bool {
	approxAttachmentLength := 0
	if m.Attachment != nil && m.Attachment.FileData != "" {
		approxAttachmentLength = minHeaderLength + len(m.Attachment.FileData) + len(m.Attachment.FileName)
	}
	approxEmailLength := minHeaderLength +
		len(m.Title) +
		len(m.TextDescription) +
		len(m.HTMLDescription) +
		approxAttachmentLength
	return approxEmailLength > sizeLimit
}
