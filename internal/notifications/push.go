package notifications

import (
	"context"
	"fmt"
)

// PushMessage is an inbound push payload, shaped like an FCM data+notification
// message.
type PushMessage struct {
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data struct {
		Tag         string `json:"tag"`
		URL         string `json:"url"`
		ClickAction string `json:"clickAction"`
	} `json:"data"`
}

// Build converts the payload into a Notification, filling blanks with the
// service defaults.
func (p PushMessage) Build(d Display) Notification {
	title := p.Notification.Title
	if title == "" {
		title = defaultTitle
	}
	body := p.Notification.Body
	if body == "" {
		body = defaultPushBody
	}
	tag := p.Data.Tag
	if tag == "" {
		tag = defaultPushTag
	}
	url := p.Data.URL
	if url == "" {
		url = p.Data.ClickAction
	}
	return d.build(title, body, tag, url)
}

// Push displays an inbound push message. Push messages bypass the dedup
// store; duplicate suppression is the pusher's concern.
func (e *Engine) Push(ctx context.Context, msg PushMessage) (Notification, error) {
	n := msg.Build(e.display)
	if err := e.sender.Send(ctx, n); err != nil {
		return n, fmt.Errorf("push %q: %w", n.Tag, err)
	}
	e.logger.Info("Push notification displayed", "tag", n.Tag, "title", n.Title)
	return n, nil
}
