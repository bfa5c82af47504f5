package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifySignature = "susssasa{sv}i"
)

// Freedesktop urgency levels, sent as the "urgency" byte hint.
const (
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// notification is one Notify call. A zero ReplaceID asks the server for a
// new notification.
type notification struct {
	AppName   string
	ReplaceID uint32
	Summary   string
	Body      string
	TimeoutMS int
	Urgency   byte
}

// args renders the call for busctl. Normal urgency sends no hints.
func (n notification) args() []string {
	args := []string{
		n.AppName,
		strconv.FormatUint(uint64(n.ReplaceID), 10),
		"", // icon
		n.Summary,
		n.Body,
		"0", // actions
	}
	if n.Urgency > urgencyNormal {
		args = append(args, "1", "urgency", "y", strconv.Itoa(int(n.Urgency)))
	} else {
		args = append(args, "0")
	}
	return append(args, strconv.Itoa(n.TimeoutMS))
}

// desktopNotify sends n over the session bus and returns the ID the server
// assigned.
func desktopNotify(ctx context.Context, n notification) (uint32, error) {
	out, err := busctl(ctx, "Notify", notifySignature, n.args()...)
	if err != nil {
		return 0, fmt.Errorf("desktop notify: %w", err)
	}

	fields := strings.Fields(out)
	if len(fields) != 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify: invalid response %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify: parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

// desktopDismiss closes the notification with id.
func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("desktop dismiss: %w", err)
	}
	return nil
}

func busctl(ctx context.Context, method string, signature string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notifyService, notifyPath, notifyService, method, signature}, args...)
	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", err
		}
		return "", fmt.Errorf("%w (%s)", err, trimmed)
	}
	return trimmed, nil
}
