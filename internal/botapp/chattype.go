package botapp

import "github.com/ZhiShengYuan/SearchGram/internal/document"

// chatType maps a go-telegram-bot-api chat's Type/IsBot fields to the
// search engine's ChatType enum. Bot API chats never report "bot"
// themselves (that distinction only exists from the MTProto side, see
// document.ClassifyChat); a private chat with a bot account is
// detected from the From user's IsBot flag on the incoming message.
func chatType(tgType string, fromIsBot bool) document.ChatType {
	switch tgType {
	case "group":
		return document.ChatGroup
	case "supergroup":
		return document.ChatSupergroup
	case "channel":
		return document.ChatChannel
	case "private":
		if fromIsBot {
			return document.ChatBot
		}
		return document.ChatPrivate
	default:
		return document.ChatPrivate
	}
}
