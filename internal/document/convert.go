package document

import (
	"time"

	"github.com/gotd/td/tg"
)

// ChatInfo is what the caller already knows about a chat beyond its
// bare id — typically resolved from tg.Entities or a peer cache, since
// a lone tg.Message only carries the chat's numeric id.
type ChatInfo struct {
	Type     ChatType
	Title    string
	Username string
}

// FromUpstreamMessage projects a gotd/td message into the document
// this system stores. entities supplies the chat/sender metadata that
// accompanies the update (tg.Entities.Users/Chats/Channels); chatInfo
// is the caller's best resolution of the containing chat (from a peer
// cache when the update's own entities don't carry it, e.g. older
// history pages). observedAt stamps Timestamp; Date comes from the
// upstream message itself.
func FromUpstreamMessage(msg *tg.Message, entities tg.Entities, chatInfo ChatInfo, observedAt time.Time) Message {
	chatID := PeerID(msg.PeerID)

	doc := Message{
		ChatID:    chatID,
		MessageID: msg.ID,
		Text:      msg.Message,
		Chat: Chat{
			ID:       chatID,
			Type:     chatInfo.Type,
			Title:    chatInfo.Title,
			Username: chatInfo.Username,
		},
		Date:      int64(msg.Date),
		Timestamp: observedAt.Unix(),
		Entities:  convertEntities(msg.Entities, entities),
	}

	if fromID, ok := msg.GetFromID(); ok {
		doc.FromUser = resolveSender(fromID, entities)
	} else if chatInfo.Type == ChatPrivate || chatInfo.Type == ChatBot {
		// In a private chat, the message author is the chat's other party.
		if u, ok := entities.Users[chatID]; ok {
			doc.FromUser = userFromUpstream(u)
		}
	}

	return doc
}

func resolveSender(peer tg.PeerClass, entities tg.Entities) User {
	id := PeerID(peer)
	if u, ok := entities.Users[id]; ok {
		return userFromUpstream(u)
	}
	return User{ID: id}
}

func userFromUpstream(u *tg.User) User {
	return User{
		ID:        u.ID,
		IsBot:     u.Bot,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

func convertEntities(raw []tg.MessageEntityClass, entities tg.Entities) []Entity {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Entity, 0, len(raw))
	for _, e := range raw {
		switch v := e.(type) {
		case *tg.MessageEntityMention:
			out = append(out, Entity{Type: EntityMention, Offset: v.Offset, Length: v.Length})
		case *tg.MessageEntityHashtag:
			out = append(out, Entity{Type: EntityHashtag, Offset: v.Offset, Length: v.Length})
		case *tg.MessageEntityMentionName:
			ent := Entity{Type: EntityTextMention, Offset: v.Offset, Length: v.Length, UserID: v.UserID}
			if u, ok := entities.Users[v.UserID]; ok {
				converted := userFromUpstream(u)
				ent.User = &converted
			}
			out = append(out, ent)
		case *tg.MessageEntityURL:
			out = append(out, Entity{Type: EntityURL, Offset: v.Offset, Length: v.Length})
		case *tg.MessageEntityBotCommand:
			out = append(out, Entity{Type: EntityBotCommand, Offset: v.Offset, Length: v.Length})
		}
	}
	return out
}
