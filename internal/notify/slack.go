// Package notify posts session lifecycle notifications to Slack.
package notify

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/hectormr206/orchestra/internal/events"
)

// SlackNotifier posts a message to one channel whenever a session enters
// completed, failed, rejected or max-iterations, or hits an error.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier builds a notifier posting to channel using a bot token.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

// Notify inspects ev and posts a message for the events worth paging a
// human about: entry into completed, failed, rejected or max-iterations
// (the phase-start event, which carries the phase being entered), and errors.
func (n *SlackNotifier) Notify(ev events.KernelEvent) error {
	var text string
	switch ev.Type {
	case events.KernelPhaseStart:
		if !isTerminalPhaseName(ev.Phase) {
			return nil
		}
		text = fmt.Sprintf(":checkered_flag: session `%s` finished in phase *%s*", ev.SessionID, ev.Phase)
	case events.KernelError:
		text = fmt.Sprintf(":rotating_light: session `%s` error: %s", ev.SessionID, ev.Message)
	default:
		return nil
	}

	_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(text, false))
	return err
}

func isTerminalPhaseName(phase string) bool {
	switch phase {
	case "completed", "failed", "rejected", "max-iterations":
		return true
	default:
		return false
	}
}
