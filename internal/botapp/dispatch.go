package botapp

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ZhiShengYuan/SearchGram/internal/commands"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/search"
)

const pollTimeoutSeconds = 60

type incomingKey struct{}

func withIncoming(ctx context.Context, msg *tgbotapi.Message) context.Context {
	return context.WithValue(ctx, incomingKey{}, msg)
}

func incomingFromContext(ctx context.Context) (*tgbotapi.Message, bool) {
	msg, ok := ctx.Value(incomingKey{}).(*tgbotapi.Message)
	return msg, ok
}

// runUpdateLoop long-polls for updates until ctx is cancelled,
// dispatching messages to the command router and callback queries to
// the pagination handler (§4.4 steps 8-9).
func (a *App) runUpdateLoop(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			a.handleUpdate(ctx, update)
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		a.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		a.handleCallback(ctx, update.CallbackQuery)
	}
}

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	inv := commands.ParseInvocation(msg.From.ID, msg.Chat.ID, a.access.IsOwner(msg.From.ID), msg.Text)
	reqCtx := withIncoming(ctx, msg)

	matched, err := a.router.Dispatch(reqCtx, inv)
	if matched {
		if notOwner, ok := err.(*commands.ErrNotOwner); ok {
			a.handleOwnerDenied(inv.ChatID, notOwner)
			return
		}
		if err != nil {
			logging.Warnf("botapp: command /%s failed: %v", inv.Command, err)
		}
		return
	}

	ct := chatType(msg.Chat.Type, msg.From.IsBot)

	if inv.Command != "" {
		if q, ok := search.ParseChatTypeShortcut(inv.Command, inv.Argument); ok {
			if err := a.runSearch(reqCtx, inv, q); err != nil {
				logging.Warnf("botapp: shortcut search failed: %v", err)
			}
		}
		// Unrecognized commands are ignored rather than replied to, so
		// group chats aren't spammed by every bot's unrelated slash commands.
		return
	}

	// Free text is only treated as an implicit fuzzy search outside
	// group/supergroup chats; those require the explicit /search form.
	if isGroupish(ct) {
		return
	}

	q, perr := search.ParseCommand(inv.Text)
	if perr != nil {
		a.replyText(inv.ChatID, perr.Error())
		return
	}
	if err := a.runSearch(reqCtx, inv, q); err != nil {
		logging.Warnf("botapp: free-text search failed: %v", err)
	}
}

// handleCallback processes a pagination button press: "n|<page>" or
// "p|<page>" callback data against the message it's attached to (§4.4
// step 8). Any interaction cancels the pending auto-delete and
// reschedules it after the new page renders.
func (a *App) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := a.bot.Request(ack); err != nil {
		logging.Warnf("botapp: acknowledge callback failed: %v", err)
	}

	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	page, ok := parseCallbackPage(cb.Data)
	if !ok {
		return
	}

	q, ok := a.pageQuery(chatID, messageID)
	if !ok {
		// The query behind this message isn't remembered anymore (bot
		// restart, or the entry was already forgotten); nothing to re-run.
		return
	}
	q.Page = page

	a.autoDel.Cancel(chatID, messageID)

	ct := chatType(cb.Message.Chat.Type, false)
	sinv := search.Invocation{
		UserID:    cb.From.ID,
		Username:  cb.From.UserName,
		FirstName: cb.From.FirstName,
		ChatID:    chatID,
		ChatType:  ct,
		Text:      cb.Message.Text,
	}

	result, err := a.search.Run(ctx, sinv, q)
	if err != nil {
		logging.Warnf("botapp: pagination search failed: %v", err)
		return
	}
	if err := a.updatePage(chatID, messageID, ct, result.Page); err != nil {
		logging.Warnf("botapp: update page failed: %v", err)
	}
}

func parseCallbackPage(data string) (int, bool) {
	parts := strings.SplitN(data, "|", 2)
	if len(parts) != 2 {
		return 0, false
	}
	if parts[0] != "n" && parts[0] != "p" {
		return 0, false
	}
	page := 0
	for _, r := range parts[1] {
		if r < '0' || r > '9' {
			return 0, false
		}
		page = page*10 + int(r-'0')
	}
	if page < 1 {
		return 0, false
	}
	return page, true
}
