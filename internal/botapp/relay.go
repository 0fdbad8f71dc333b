package botapp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/msgqueue"
)

// fileRelay implements botapi.FileSender: it's the Bot process's side
// of the Ingestor's file-relay HTTP call (§3 "file relay"), since only
// the bot account, not the userbot session, can be trusted to message
// the owner directly. Grounded on the teacher's sendDocument pattern.
type fileRelay struct {
	bot     *tgbotapi.BotAPI
	queue   *msgqueue.Store
	ownerID int64
}

// relayPayload is what gets queued for retry when a send fails. It
// carries the file bytes themselves (base64-encoded, matching the HTTP
// request body's own encoding) since the queue entry is the only
// remaining copy once the HTTP handler has already returned.
type relayPayload struct {
	FileData    string `json:"file_data"`
	FileName    string `json:"file_name"`
	Caption     string `json:"caption"`
	RecipientID int64  `json:"recipient_id"`
}

// SendFile sends fileData as a document to recipientID, defaulting to
// the configured owner when recipientID is zero. On failure the
// request is queued for a later retry rather than dropped, since the
// ingestor has already accepted the file and won't resend it.
func (r *fileRelay) SendFile(ctx context.Context, fileData []byte, fileName, caption string, recipientID int64) (int, error) {
	if recipientID == 0 {
		recipientID = r.ownerID
	}

	doc := tgbotapi.NewDocument(recipientID, tgbotapi.FileBytes{Name: fileName, Bytes: fileData})
	doc.Caption = caption

	sent, err := r.bot.Send(doc)
	if err != nil {
		r.enqueueRetry(fileData, fileName, caption, recipientID)
		return 0, fmt.Errorf("botapp: relay file %q: %w", fileName, err)
	}
	return sent.MessageID, nil
}

func (r *fileRelay) enqueueRetry(fileData []byte, fileName, caption string, recipientID int64) {
	if r.queue == nil {
		return
	}
	payload, err := json.Marshal(relayPayload{
		FileData:    base64.StdEncoding.EncodeToString(fileData),
		FileName:    fileName,
		Caption:     caption,
		RecipientID: recipientID,
	})
	if err != nil {
		return
	}
	if _, err := r.queue.Enqueue("bot", "bot", "retry_send_file", payload); err != nil {
		logging.Warnf("botapp: queue retry for %q failed: %v", fileName, err)
	}
}
