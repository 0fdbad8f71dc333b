package botapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
)

// Client is the Ingestor's handle on the Bot's file-relay API.
type Client struct {
	http *httpclient.Client
}

// NewClient wraps an already-configured httpclient.Client.
func NewClient(h *httpclient.Client) *Client {
	return &Client{http: h}
}

// SendFile relays fileData through the bot session, to recipientID
// when non-zero (otherwise the bot's default owner chat).
func (c *Client) SendFile(ctx context.Context, fileData []byte, fileName, caption string, recipientID int64) (int, error) {
	req := sendFileRequest{
		FileData:    base64.StdEncoding.EncodeToString(fileData),
		FileName:    fileName,
		Caption:     caption,
		RecipientID: recipientID,
	}

	var out struct {
		sendFileResponse
		Message string `json:"message"`
	}
	status, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/send_file", req, &out, 0)
	if err != nil {
		return 0, fmt.Errorf("botapi: send file: %w", err)
	}
	if status >= http.StatusBadRequest {
		return 0, fmt.Errorf("botapi: send file failed (%d): %s", status, out.Message)
	}
	return out.MessageID, nil
}
