// Package notify provides OS notifications for deck events.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/gigurra/ferrite/cmd/common/config"
)

// Notifier sends rate-limited OS notifications for deck events.
// A nil Notifier is valid and sends nothing.
type Notifier struct {
	cooldown time.Duration
	deliver  func(title, body string) error

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

// FromConfig builds a notifier from the notification config.
// Returns nil when notifications are disabled.
func FromConfig(cfg *config.NotificationConfig) *Notifier {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Notifier{
		cooldown: time.Duration(cfg.CooldownSeconds) * time.Second,
		deliver: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
		lastSent: map[string]time.Time{},
		now:      time.Now,
	}
}

// Overheated announces that the deck motor tripped the thermal latch.
func (n *Notifier) Overheated(mixtapeTitle string) {
	n.send("overheat", "ferrite: overheated",
		fmt.Sprintf("%s needs to cool down before scrubbing again", orMixtape(mixtapeTitle)))
}

// SideEnded announces that playback ran off the end of a side.
func (n *Notifier) SideEnded(mixtapeTitle, side string) {
	n.send("side-end", "ferrite: end of side",
		fmt.Sprintf("%s side %s finished, flip the tape", orMixtape(mixtapeTitle), side))
}

// send delivers one notification unless the event is still in cooldown.
func (n *Notifier) send(event, title, body string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	last, seen := n.lastSent[event]
	if seen && n.now().Sub(last) < n.cooldown {
		n.mu.Unlock()
		return
	}
	n.lastSent[event] = n.now()
	n.mu.Unlock()

	if err := n.deliver(title, body); err != nil {
		slog.Debug("notification failed", "event", event, "error", err)
	}
}

func orMixtape(title string) string {
	if title == "" {
		return "mixtape"
	}
	return title
}
