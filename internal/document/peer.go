package document

import "github.com/gotd/td/tg"

// PeerID normalizes a tg.PeerClass down to its numeric id (user, chat,
// or channel). Returns 0 for peer kinds the search pipeline never
// needs to key on. Adapted from the teacher's tgutil.GetPeerID.
func PeerID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return p.ChatID
	case *tg.PeerChannel:
		return p.ChannelID
	default:
		return 0
	}
}

// ClassifyChat derives the search engine's ChatType from the resolved
// peer entity. isBot additionally distinguishes a private chat with a
// bot account from an ordinary private chat, since MTProto represents
// both as a tg.User.
func ClassifyChat(peer tg.PeerClass, isBot bool) ChatType {
	switch p := peer.(type) {
	case *tg.PeerUser:
		if isBot {
			return ChatBot
		}
		_ = p
		return ChatPrivate
	case *tg.PeerChat:
		return ChatGroup
	case *tg.PeerChannel:
		return ChatSupergroup
	default:
		return ChatPrivate
	}
}
