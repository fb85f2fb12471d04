package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
)

// Inline is a MIME part referenced from the HTML body as cid:<ContentID>
type Inline struct {
	ContentID   string
	ContentType string
	Filename    string
	Data        []byte
}

// Message is an HTML email with optional inline images
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Inline  []Inline
	Date    time.Time
}

// Bytes renders the message as RFC 5322 text. Without inline parts the body
// is a single text/html part; otherwise multipart/related.
func (m *Message) Bytes() ([]byte, error) {
	if m.From == "" || len(m.To) == 0 {
		return nil, fmt.Errorf("message needs a sender and at least one recipient")
	}

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	var buf bytes.Buffer
	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", strings.Join(m.To, ", "))
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")

	if len(m.Inline) == 0 {
		writeHeader(&buf, "Content-Type", "text/html; charset=UTF-8")
		writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQuotedPrintable(&buf, m.HTML); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/related; boundary=%q; type=\"text/html\"", mw.Boundary()))
	buf.WriteString("\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create html part: %w", err)
	}
	if err := writeQuotedPrintable(htmlPart, m.HTML); err != nil {
		return nil, err
	}

	for _, in := range m.Inline {
		header := textproto.MIMEHeader{
			"Content-Type":              {in.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-ID":                {"<" + in.ContentID + ">"},
			"Content-Disposition":       {fmt.Sprintf("inline; filename=%q", in.Filename)},
		}
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create inline part %s: %w", in.ContentID, err)
		}
		if err := writeBase64Lines(part, in.Data); err != nil {
			return nil, fmt.Errorf("failed to write inline part %s: %w", in.ContentID, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func writeQuotedPrintable(w io.Writer, s string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(s)); err != nil {
		return fmt.Errorf("failed to encode html body: %w", err)
	}
	return qp.Close()
}

// writeBase64Lines wraps encoded data at 76 columns
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := io.WriteString(w, encoded[:76]+"\r\n"); err != nil {
			return fmt.Errorf("failed to encode attachment: %w", err)
		}
		encoded = encoded[76:]
	}
	if _, err := io.WriteString(w, encoded+"\r\n"); err != nil {
		return fmt.Errorf("failed to encode attachment: %w", err)
	}
	return nil
}
