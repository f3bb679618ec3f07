package tracer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ReadNotifications decodes newline-delimited JSON notifications from r and
// forwards each one to hook until EOF or context cancellation. This is the
// adapter between an out-of-process execution engine and the session hook.
func ReadNotifications(ctx context.Context, r io.Reader, hook Hook) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var n Notification
		if err := json.Unmarshal(line, &n); err != nil {
			return fmt.Errorf("decode notification: %w", err)
		}
		hook(n)
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read notification stream: %w", err)
	}
	return nil
}
