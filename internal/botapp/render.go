package botapp

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/search"
)

// deliverPage sends page to chatID, as a file attachment when oversize
// (§4.4 step 9), attaching the pagination keyboard otherwise (step 8).
// In group/supergroup chats, a keyboard-bearing reply is scheduled for
// deletion in 120s (§4.4 "Auto-delete of paginated messages"). q is the
// query that produced page; it's remembered against the sent message so
// a later pagination button press can re-run the same search at a
// different page.
func (a *App) deliverPage(chatID int64, chatType document.ChatType, page search.Page, q search.Query) error {
	if page.Oversize {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "results.txt", Bytes: []byte(page.Body)})
		_, err := a.bot.Send(doc)
		return err
	}

	msg := tgbotapi.NewMessage(chatID, page.Body)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if page.Keyboard != nil {
		msg.ReplyMarkup = *page.Keyboard
	}

	sent, err := a.bot.Send(msg)
	if err != nil {
		return err
	}

	if page.Keyboard != nil {
		a.rememberPageQuery(chatID, sent.MessageID, q)
		if isGroupish(chatType) {
			a.scheduleAutoDelete(chatID, sent.MessageID)
		}
	}
	return nil
}

// updatePage edits the message a pagination button was attached to in
// place with a fresh page, rescheduling auto-delete under the same key.
func (a *App) updatePage(chatID int64, messageID int, chatType document.ChatType, page search.Page) error {
	if page.Oversize {
		// An edited page can't be turned into a file attachment in place;
		// fall back to sending a fresh document.
		a.forgetPageQuery(chatID, messageID)
		return a.deliverPage(chatID, chatType, page, search.Query{})
	}

	var edit tgbotapi.EditMessageTextConfig
	if page.Keyboard != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, page.Body, *page.Keyboard)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, page.Body)
	}
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := a.bot.Send(edit); err != nil {
		return fmt.Errorf("botapp: edit page: %w", err)
	}

	if page.Keyboard != nil && isGroupish(chatType) {
		a.scheduleAutoDelete(chatID, messageID)
	}
	return nil
}

func (a *App) scheduleAutoDelete(chatID int64, messageID int) {
	a.autoDel.Schedule(chatID, messageID, func() {
		_, err := a.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
		if err != nil {
			logging.Warnf("botapp: auto-delete message %d in chat %d failed: %v", messageID, chatID, err)
		}
		a.forgetPageQuery(chatID, messageID)
	})
}

func isGroupish(ct document.ChatType) bool {
	return ct == document.ChatGroup || ct == document.ChatSupergroup
}

// replyText sends a plain text reply with no keyboard or auto-delete,
// used for errors and operator command acknowledgements.
func (a *App) replyText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.bot.Send(msg); err != nil {
		logging.Warnf("botapp: reply to chat %d failed: %v", chatID, err)
	}
}
