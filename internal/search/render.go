package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
)

// maxMessageBody is the point past which a rendered page is sent as a
// file attachment instead of inline text (§4.4 step 9).
const maxMessageBody = 4096

// renderLocation is the fixed UTC+8 offset dates are rendered in.
var renderLocation = time.FixedZone("UTC+8", 8*60*60)

// Page is a rendered search result page, ready to hand to a bot sender.
type Page struct {
	Body       string
	Keyboard   *tgbotapi.InlineKeyboardMarkup
	Oversize   bool
	TotalHits  int
	TotalPages int
}

// RenderPage formats a search response into a markdown body plus
// pagination keyboard (§4.4 steps 7-9).
func RenderPage(resp searchclient.SearchResponse) Page {
	var b strings.Builder
	for _, hit := range resp.Hits {
		b.WriteString(renderHit(hit))
		b.WriteString("\n")
	}
	body := strings.TrimRight(b.String(), "\n")
	if body == "" {
		body = "No results found."
	}

	page := Page{
		Body:       body,
		TotalHits:  resp.TotalHits,
		TotalPages: resp.TotalPages,
	}
	if resp.TotalPages > 1 {
		page.Keyboard = navigationKeyboard(resp.Page, resp.TotalPages)
	}
	if utf8.RuneCountInString(page.Body) > maxMessageBody {
		page.Oversize = true
	}
	return page
}

func renderHit(hit document.Message) string {
	sender := senderLabel(hit.FromUser)
	chatLink := deepLink(hit)
	date := time.Unix(hit.Date, 0).In(renderLocation).Format(time.RFC3339)
	text := hit.Text
	if text == "" {
		text = hit.Caption
	}
	msgLink := messageLink(hit)

	return fmt.Sprintf("%s -> [%s](%s) on %s: %s [👀](%s)",
		sender, chatTitle(hit.Chat), chatLink, date, text, msgLink)
}

func senderLabel(u document.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return strconv.FormatInt(u.ID, 10)
}

func chatTitle(c document.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return "@" + c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// deepLink builds a tg:// link to the chat, preferring the chat
// username, falling back to the sender, and finally to a raw chat id
// with the -100 channel prefix stripped (§4.4 step 7).
func deepLink(hit document.Message) string {
	if hit.Chat.Username != "" {
		return "tg://resolve?domain=" + hit.Chat.Username
	}
	if hit.FromUser.ID != 0 {
		return fmt.Sprintf("tg://user?id=%d", hit.FromUser.ID)
	}
	return fmt.Sprintf("tg://privatepost?channel=%d&post=%d", stripChannelPrefix(hit.Chat.ID), hit.MessageID)
}

// messageLink is the jump-to-message link used for the 👀 marker.
func messageLink(hit document.Message) string {
	if hit.Chat.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", hit.Chat.Username, hit.MessageID)
	}
	return fmt.Sprintf("https://t.me/c/%d/%d", stripChannelPrefix(hit.Chat.ID), hit.MessageID)
}

// stripChannelPrefix removes the "-100" prefix Bot API adds to channel
// and supergroup ids, recovering the bare internal chat id.
func stripChannelPrefix(chatID int64) int64 {
	s := strconv.FormatInt(chatID, 10)
	s = strings.TrimPrefix(s, "-100")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return chatID
	}
	return v
}

// navigationKeyboard builds the Prev/Next row per §4.4 step 8.
func navigationKeyboard(page, totalPages int) *tgbotapi.InlineKeyboardMarkup {
	limit := totalPages
	if limit > MaxPage {
		limit = MaxPage
	}

	var row []tgbotapi.InlineKeyboardButton
	switch {
	case page <= 1:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next", fmt.Sprintf("n|%d", page+1)))
	case page >= limit:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Prev", fmt.Sprintf("p|%d", page-1)))
	default:
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("Prev", fmt.Sprintf("p|%d", page-1)),
			tgbotapi.NewInlineKeyboardButtonData("Next", fmt.Sprintf("n|%d", page+1)),
		)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}
