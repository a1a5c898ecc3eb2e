package xclient

import (
	"context"
	"errors"
)

type messageCreate struct {
	Event struct {
		Type          string `json:"type"`
		MessageCreate struct {
			Target struct {
				RecipientID string `json:"recipient_id"`
			} `json:"target"`
			MessageData struct {
				Text string `json:"text"`
			} `json:"message_data"`
		} `json:"message_create"`
	} `json:"event"`
}

// SendDirectMessage sends text to recipientID.
func (c *Client) SendDirectMessage(ctx context.Context, recipientID, text string) error {
	if recipientID == "" {
		return errors.New("empty recipient id")
	}
	var body messageCreate
	body.Event.Type = "message_create"
	body.Event.MessageCreate.Target.RecipientID = recipientID
	body.Event.MessageCreate.MessageData.Text = text
	_, err := c.postJSON(ctx, "/direct_messages/events/new.json", body, nil)
	return err
}
