package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ANSI escape codes for console output.
const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
)

// ConsoleSender prints notifications to a writer, usually stdout. It is the
// always-on fallback channel so alerts remain visible when no remote channel
// is configured.
type ConsoleSender struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	now   func() time.Time
}

// NewConsoleSender creates a ConsoleSender writing to stdout with ANSI colors
// enabled.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{out: os.Stdout, color: true, now: time.Now}
}

// NewConsoleSenderTo creates a ConsoleSender writing to the given writer
// without colors. Used in tests and when output is piped.
func NewConsoleSenderTo(w io.Writer) *ConsoleSender {
	return &ConsoleSender{out: w, color: false, now: time.Now}
}

// Send writes the notification framed by separator bars with a timestamp
// header. The mutex keeps frames from interleaving when wallets are checked
// concurrently.
func (c *ConsoleSender) Send(_ context.Context, title, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bar := strings.Repeat("=", 60)
	ts := c.now().Format("2006-01-02 15:04:05")

	var b strings.Builder
	if c.color {
		fmt.Fprintf(&b, "%s%s%s\n", ansiGray, bar, ansiReset)
		fmt.Fprintf(&b, "%s%s%s%s  %s[%s]%s\n", ansiBold, ansiCyan, title, ansiReset, ansiGray, ts, ansiReset)
	} else {
		fmt.Fprintf(&b, "%s\n", bar)
		fmt.Fprintf(&b, "%s  [%s]\n", title, ts)
	}
	fmt.Fprintf(&b, "%s\n", strings.TrimRight(message, "\n"))
	if c.color {
		fmt.Fprintf(&b, "%s%s%s\n", ansiGray, bar, ansiReset)
	} else {
		fmt.Fprintf(&b, "%s\n", bar)
	}

	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return fmt.Errorf("console: write: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (c *ConsoleSender) Name() string {
	return "console"
}
