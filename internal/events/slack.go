package events

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier posts triage events to a Slack channel. Delivery is
// best-effort and asynchronous; a failed post never affects the pipeline.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
	}
}

// Publish posts the event message on its own goroutine.
func (n *SlackNotifier) Publish(e Event) {
	go func() {
		message := formatEvent(e)
		_, _, err := n.client.PostMessage(
			n.channel,
			slack.MsgOptionText(message, false),
		)
		if err != nil {
			log.Printf("Failed to post %s event to Slack: %v", e.Type, err)
		}
	}()
}

func formatEvent(e Event) string {
	emoji := bandEmoji(e.Band)
	switch e.Type {
	case TypeComplaintMerged:
		return fmt.Sprintf(
			`%s *Duplicate report folded in*
:link: *Report:* %s
:open_file_folder: *Issue:* %s
:office: *Department:* %s
:1234: *Reports:* %d
:vertical_traffic_light: *Priority:* %.1f (%s)`,
			emoji, e.ComplaintUUID, e.RootUUID, e.Department, e.ReportCount, e.Priority, strings.ToUpper(e.Band))
	case TypePriorityChanged:
		return fmt.Sprintf(
			`%s *Priority changed*
:open_file_folder: *Issue:* %s
:office: *Department:* %s
:vertical_traffic_light: *Priority:* %.1f (%s)`,
			emoji, e.ComplaintUUID, e.Department, e.Priority, strings.ToUpper(e.Band))
	default:
		return fmt.Sprintf(
			`%s *New complaint registered*
:open_file_folder: *Issue:* %s
:office: *Department:* %s
:vertical_traffic_light: *Priority:* %.1f (%s)`,
			emoji, e.ComplaintUUID, e.Department, e.Priority, strings.ToUpper(e.Band))
	}
}

func bandEmoji(band string) string {
	switch band {
	case "critical":
		return ":red_circle:"
	case "high":
		return ":large_orange_circle:"
	case "medium":
		return ":large_yellow_circle:"
	default:
		return ":large_blue_circle:"
	}
}
