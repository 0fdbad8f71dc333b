// Package access implements the bot's access-control and scope
// decisions (§4.5): which chats may invoke search commands at all, and
// which chat ids a given invoker's search is scoped to. New code,
// shaped like the teacher's internal/infra/config.Config — an
// RWMutex-guarded read-only snapshot built once from config.Bot and
// consulted by every command handler, rather than re-evaluated from
// raw config fields scattered through the pipeline.
package access

import (
	"sync"

	"github.com/ZhiShengYuan/SearchGram/internal/config"
	"github.com/ZhiShengYuan/SearchGram/internal/document"
)

// Controller answers access-mode and scope questions for the bot's
// configured owner/admin/allowed-user/allowed-group sets. It never
// mutates after construction, so reads take no lock; it exists mainly
// to give the snapshot a named, testable home.
type Controller struct {
	mu sync.RWMutex

	ownerID              int64
	modes                map[config.AccessMode]struct{}
	allowedGroups        map[int64]struct{}
	allowedUsers         map[int64]struct{}
	admins               map[int64]struct{}
	userGroupPermissions map[int64][]int64
}

// New builds a Controller from the bot's loaded configuration.
func New(ownerID int64, bot config.Bot) *Controller {
	modes := make(map[config.AccessMode]struct{}, len(bot.Modes))
	for _, m := range bot.Modes {
		modes[m] = struct{}{}
	}
	groups := toSet(bot.AllowedGroups)
	users := toSet(bot.AllowedUsers)
	admins := toSet(bot.Admins)

	perms := make(map[int64][]int64, len(bot.UserGroupPermissions))
	for uid, gids := range bot.UserGroupPermissions {
		cp := make([]int64, len(gids))
		copy(cp, gids)
		perms[uid] = cp
	}

	return &Controller{
		ownerID:              ownerID,
		modes:                modes,
		allowedGroups:        groups,
		allowedUsers:         users,
		admins:               admins,
		userGroupPermissions: perms,
	}
}

func toSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// IsOwner reports whether userID is the bot's configured owner.
func (c *Controller) IsOwner(userID int64) bool {
	return userID == c.ownerID
}

// IsAdmin reports whether userID is in the configured admins set.
func (c *Controller) IsAdmin(userID int64) bool {
	_, ok := c.admins[userID]
	return ok
}

func (c *Controller) hasMode(m config.AccessMode) bool {
	_, ok := c.modes[m]
	return ok
}

// Allowed decides whether userID may invoke a search command from
// chatType/chatID at all (§4.5's access-mode rule).
func (c *Controller) Allowed(userID int64, chatID int64, chatType document.ChatType) bool {
	if c.IsOwner(userID) {
		return true
	}
	if c.hasMode(config.AccessPublic) {
		return true
	}
	if chatType == document.ChatPrivate && c.hasMode(config.AccessPrivate) {
		if len(c.modes) == 1 {
			// private is the sole mode: only the owner may use it.
			return false
		}
		_, ok := c.allowedUsers[userID]
		return ok
	}
	if (chatType == document.ChatGroup || chatType == document.ChatSupergroup) && c.hasMode(config.AccessGroup) {
		_, ok := c.allowedGroups[chatID]
		return ok
	}
	return false
}

// Scope reports the set of chat ids userID's search is restricted to.
// A nil slice with global=true means unrestricted (global scope: owner or
// admin). An empty, non-nil slice means the user has no search scope
// at all.
func (c *Controller) Scope(userID int64) (chatIDs []int64, global bool) {
	if c.IsOwner(userID) || c.IsAdmin(userID) {
		return nil, true
	}
	return c.userGroupPermissions[userID], false
}

// PrivacyFilterOff reports whether the invoker's view should bypass
// the privacy opt-out filter: only the owner, and only in a private
// chat (§4.5: "privacy filter off in private chat").
func (c *Controller) PrivacyFilterOff(userID int64, chatType document.ChatType) bool {
	return c.IsOwner(userID) && chatType == document.ChatPrivate
}

// IsOperator reports whether userID may run owner-only operator
// commands. Per §4.5, admin status grants global search scope but
// operator commands remain owner-only.
func (c *Controller) IsOperator(userID int64) bool {
	return c.IsOwner(userID)
}
