package access

import (
	"testing"

	"github.com/ZhiShengYuan/SearchGram/internal/config"
	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/stretchr/testify/assert"
)

func TestOwnerAlwaysAllowed(t *testing.T) {
	c := New(1, config.Bot{Modes: []config.AccessMode{config.AccessPrivate}})
	assert.True(t, c.Allowed(1, 1, document.ChatPrivate))
}

func TestPublicModeAllowsAnyone(t *testing.T) {
	c := New(1, config.Bot{Modes: []config.AccessMode{config.AccessPublic}})
	assert.True(t, c.Allowed(999, 500, document.ChatGroup))
}

func TestPrivateModeSoleModeRestrictsToOwner(t *testing.T) {
	c := New(1, config.Bot{
		Modes:        []config.AccessMode{config.AccessPrivate},
		AllowedUsers: []int64{2},
	})
	assert.False(t, c.Allowed(2, 2, document.ChatPrivate))
}

func TestPrivateModeWithAllowedUsers(t *testing.T) {
	c := New(1, config.Bot{
		Modes:        []config.AccessMode{config.AccessPrivate, config.AccessGroup},
		AllowedUsers: []int64{2},
	})
	assert.True(t, c.Allowed(2, 2, document.ChatPrivate))
	assert.False(t, c.Allowed(3, 3, document.ChatPrivate))
}

func TestGroupModeChecksAllowedGroups(t *testing.T) {
	c := New(1, config.Bot{
		Modes:         []config.AccessMode{config.AccessGroup},
		AllowedGroups: []int64{100},
	})
	assert.True(t, c.Allowed(2, 100, document.ChatGroup))
	assert.True(t, c.Allowed(2, 100, document.ChatSupergroup))
	assert.False(t, c.Allowed(2, 200, document.ChatGroup))
}

func TestScopeGlobalForOwnerAndAdmin(t *testing.T) {
	c := New(1, config.Bot{Admins: []int64{2}})

	ids, global := c.Scope(1)
	assert.True(t, global)
	assert.Nil(t, ids)

	ids, global = c.Scope(2)
	assert.True(t, global)
	assert.Nil(t, ids)
}

func TestScopeRestrictedForRegularUser(t *testing.T) {
	c := New(1, config.Bot{
		UserGroupPermissions: map[int64][]int64{3: {10, 20}},
	})

	ids, global := c.Scope(3)
	assert.False(t, global)
	assert.Equal(t, []int64{10, 20}, ids)

	ids, global = c.Scope(4)
	assert.False(t, global)
	assert.Empty(t, ids)
}

func TestPrivacyFilterOffOnlyForOwnerInPrivateChat(t *testing.T) {
	c := New(1, config.Bot{})
	assert.True(t, c.PrivacyFilterOff(1, document.ChatPrivate))
	assert.False(t, c.PrivacyFilterOff(1, document.ChatGroup))
	assert.False(t, c.PrivacyFilterOff(2, document.ChatPrivate))
}

func TestIsOperatorOwnerOnly(t *testing.T) {
	c := New(1, config.Bot{Admins: []int64{2}})
	assert.True(t, c.IsOperator(1))
	assert.False(t, c.IsOperator(2))
}
