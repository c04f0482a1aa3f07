package sparkify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// ErrSlack is returned by SlackNotifier when Slack refuses a message.
var ErrSlack = errors.New("slack error")

// Notifier notifies results for each handler run.
type Notifier interface {
	Notify(context.Context, *Result) error
}

// Result is a result of a handler run over a location or a single object.
type Result struct {
	Handler  *Handler
	Location string
	Files    int
	Error    error
}

// SlackNotifier is a notifier for Slack.
type SlackNotifier struct {
	Channel   string
	IconEmoji string
	Username  string
	Token     string

	// HTTPClient is used to call the Slack API. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type slackMessage struct {
	Channel   string `json:"channel"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
}

type slackResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// Notify notifies results to Slack channel.
func (n *SlackNotifier) Notify(ctx context.Context, r *Result) error {
	var text string
	if r.Error == nil {
		text = fmt.Sprintf("%s handler successfully loaded %d files from %s", r.Handler.Name, r.Files, r.Location)
	} else {
		text = fmt.Sprintf("%s handler failed to load %s after %d files: %s", r.Handler.Name, r.Location, r.Files, r.Error)
	}

	m := &slackMessage{
		Channel:   n.Channel,
		IconEmoji: n.IconEmoji,
		Text:      text,
		Username:  n.Username,
	}

	res, err := n.postMessage(ctx, m)
	if err != nil {
		return xerrors.Errorf("failed to notify %s result: %w", r.Handler.Name, err)
	}

	log.Ctx(ctx).Debug().
		Str("channel", res.Channel).
		Str("ts", res.TS).
		Msgf("%s result posted to slack", r.Handler.Name)

	return nil
}

func (n *SlackNotifier) postMessage(ctx context.Context, m *slackMessage) (*slackResponse, error) {
	reqJSON, err := json.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slackPostMessageURL, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, xerrors.Errorf("failed to build http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.Token)

	c := n.HTTPClient
	if c == nil {
		c = http.DefaultClient
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, xerrors.Errorf("status code %d (%s): %w", resp.StatusCode, body, ErrSlack)
	}

	var res slackResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, xerrors.Errorf("failed to decode response body: %w", err)
	}

	if !res.OK {
		return nil, xerrors.Errorf("%s rejected the message: %w", res.Error, ErrSlack)
	}

	return &res, nil
}
