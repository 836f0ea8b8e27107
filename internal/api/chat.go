package api

import (
	"context"
	"sort"
	"strconv"
)

// AddChatMessage appends one message to a consultation's chat log
func (c *Client) AddChatMessage(ctx context.Context, consultationID int64, sender, message, messageType string) (*ChatMessage, error) {
	payload := map[string]interface{}{
		"consultation_id": consultationID,
		"sender":          sender,
		"message":         message,
		"message_type":    messageType,
	}

	var msg ChatMessage
	url := c.consultationsURL(strconv.FormatInt(consultationID, 10), "chat")
	if err := c.sendJSON(ctx, "POST", url, payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetChatMessages fetches the chat log for a consultation, ordered by
// timestamp ascending. The backend already orders; the sort is kept so the
// append-only reading order holds even if a server version does not.
func (c *Client) GetChatMessages(ctx context.Context, consultationID int64) ([]ChatMessage, error) {
	var messages []ChatMessage
	url := c.consultationsURL(strconv.FormatInt(consultationID, 10), "chat")
	if err := c.getJSON(ctx, url, &messages); err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}
