package botapp

import "github.com/ZhiShengYuan/SearchGram/internal/search"

// pageKey identifies a sent or edited result page by the message it was
// rendered into. Pagination callbacks arrive with only the chat/message
// IDs and the raw button data, so the query that produced the page
// (keyword, chat-type/user filters, mode) has to be remembered
// separately rather than re-derived from the rendered message text.
type pageKey struct {
	chatID    int64
	messageID int
}

// rememberPageQuery records the query behind a just-sent paginated
// message, keyed by the message it was rendered into. Only multi-page
// results carry a keyboard, so only those need remembering; a message
// edited in place keeps the same messageID, so the entry stays valid
// across "next"/"prev" presses without needing to be rewritten.
func (a *App) rememberPageQuery(chatID int64, messageID int, q search.Query) {
	a.pagesMu.Lock()
	defer a.pagesMu.Unlock()
	if a.pages == nil {
		a.pages = make(map[pageKey]search.Query)
	}
	a.pages[pageKey{chatID: chatID, messageID: messageID}] = q
}

func (a *App) pageQuery(chatID int64, messageID int) (search.Query, bool) {
	a.pagesMu.Lock()
	defer a.pagesMu.Unlock()
	q, ok := a.pages[pageKey{chatID: chatID, messageID: messageID}]
	return q, ok
}

func (a *App) forgetPageQuery(chatID int64, messageID int) {
	a.pagesMu.Lock()
	defer a.pagesMu.Unlock()
	delete(a.pages, pageKey{chatID: chatID, messageID: messageID})
}
