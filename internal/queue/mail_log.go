package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MailLog appends delivered mail to <Dir>/mail.log.  It stands in for an
// SMTP transport and doubles as an Outbox when no broker is configured.
type MailLog struct {
	Dir string

	mu sync.Mutex
}

func NewMailLog(dir string) *MailLog { return &MailLog{Dir: dir} }

// Path is the log file location.
func (l *MailLog) Path() string { return filepath.Join(l.Dir, "mail.log") }

// Publish writes msg straight to the log.
func (l *MailLog) Publish(_ context.Context, msg MailMessage) error {
	return l.Write(msg)
}

// Write appends one line per message.
func (l *MailLog) Write(msg MailMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir mail log: %w", err)
	}
	f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()

	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	line := fmt.Sprintf("[%s] Mail %s | from=%q | to=%q | subject=%q | url=%q | text=%q\n",
		at.Format(time.RFC3339), msg.Kind, msg.From, msg.To, msg.Subject, msg.URL, msg.Text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}
