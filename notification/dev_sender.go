package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DevSender writes each message to dir as an HTML file plus JSON metadata
// instead of talking to a relay.
type DevSender struct {
	dir  string
	from string
}

var _ Mailer = (*DevSender)(nil)

func NewDevSender(dir, from string) *DevSender {
	return &DevSender{dir: dir, from: from}
}

type devMetadata struct {
	Timestamp string   `json:"timestamp"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	ReplyTo   []string `json:"reply_to,omitempty"`
	Subject   string   `json:"subject"`
	Tag       string   `json:"tag,omitempty"`
}

func (d *DevSender) Verify(_ context.Context) error {
	return os.MkdirAll(d.dir, 0o755)
}

func (d *DevSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	now := time.Now()
	name := msg.Tag
	if name == "" {
		name = msg.Subject
	}
	// The random suffix keeps concurrent sends with the same tag apart.
	base := fmt.Sprintf("%s_%s_%s", now.Format("2006_01_02_150405.000000"), sanitizeFilename(name), uuid.NewString()[:8])

	body := msg.HTML
	if len(body) == 0 {
		body = msg.Text
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), body, 0o644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}

	meta, err := json.MarshalIndent(devMetadata{
		Timestamp: now.Format(time.RFC3339),
		From:      d.from,
		To:        msg.To,
		ReplyTo:   msg.ReplyTo,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

func (d *DevSender) Close() {}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
