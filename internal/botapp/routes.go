package botapp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/commands"
	"github.com/ZhiShengYuan/SearchGram/internal/search"
)

// registerRoutes wires every named command onto a.router. Free text and
// the "/<chattype> ..." shortcut forms aren't named routes; they're
// handled directly in handleMessage's router-miss fallback (§4.4).
func (a *App) registerRoutes() {
	a.router.ByCommand("search", false, a.cmdSearch)
	a.router.ByCommand("mystats", false, a.cmdMyStats)
	a.router.ByCommand("block_me", false, a.cmdBlockMe)
	a.router.ByCommand("unblock_me", false, a.cmdUnblockMe)
	a.router.ByCommand("privacy_status", false, a.cmdPrivacyStatus)

	a.router.ByCommand("sync", true, a.cmdSync)
	a.router.ByCommand("sync_status", true, a.cmdSyncStatus)
	a.router.ByCommand("sync_pause", true, a.cmdSyncPause)
	a.router.ByCommand("sync_resume", true, a.cmdSyncResume)

	a.router.ByCommand("clear_index", true, a.cmdClearIndex)
	a.router.ByCommand("dedup", true, a.cmdDedup)
	a.router.ByCommand("delete_commands", true, a.cmdDeleteCommands)
}

func (a *App) cmdSearch(ctx context.Context, inv commands.Invocation) error {
	q, err := search.ParseCommand(inv.Argument)
	if err != nil {
		a.replyText(inv.ChatID, err.Error())
		return nil
	}
	return a.runSearch(ctx, inv, q)
}

// runSearch executes the parsed query through the pipeline and delivers
// the rendered page, or an appropriate reply/silence on denial.
func (a *App) runSearch(ctx context.Context, inv commands.Invocation, q search.Query) error {
	msg, ok := incomingFromContext(ctx)
	if !ok {
		return nil
	}

	sinv := search.Invocation{
		UserID:    inv.UserID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		ChatID:    inv.ChatID,
		ChatType:  chatType(msg.Chat.Type, msg.From.IsBot),
		Text:      inv.Text,
	}

	result, err := a.search.Run(ctx, sinv, q)
	if err != nil {
		var denial *search.Denial
		if asDenial(err, &denial) {
			if !denial.InGroup {
				a.replyText(inv.ChatID, "you are not allowed to search from here.")
			}
			return nil
		}
		a.replyText(inv.ChatID, "search failed, try again shortly.")
		return nil
	}

	return a.deliverPage(inv.ChatID, sinv.ChatType, result.Page, q)
}

func asDenial(err error, target **search.Denial) bool {
	d, ok := err.(*search.Denial)
	if ok {
		*target = d
	}
	return ok
}

func (a *App) cmdMyStats(ctx context.Context, inv commands.Invocation) error {
	window := parseStatsWindow(inv.Argument)
	stats, err := a.search.MyStats(ctx, inv.UserID, inv.ChatID, window)
	if err != nil {
		a.replyText(inv.ChatID, "could not fetch stats right now.")
		return nil
	}
	a.replyText(inv.ChatID, fmt.Sprintf(
		"your messages: %d\ngroup total: %d\nshare: %.1f%%",
		stats.UserMessageCount, stats.GroupMessageTotal, stats.UserRatio*100,
	))
	return nil
}

// parseStatsWindow parses the optional leading "/mystats [window] [at]"
// argument, e.g. "7d" or "24h". A malformed or absent window falls back
// to the pipeline's default. The trailing "at" anchor isn't
// implemented (see DESIGN.md); it's accepted and ignored.
func parseStatsWindow(argument string) time.Duration {
	fields := strings.Fields(argument)
	if len(fields) == 0 {
		return 0
	}
	return parseDayHourDuration(fields[0])
}

func parseDayHourDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0
		}
		return time.Duration(n) * 24 * time.Hour
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func (a *App) cmdBlockMe(ctx context.Context, inv commands.Invocation) error {
	changed, err := a.privacy.Block(inv.UserID)
	if err != nil {
		a.replyText(inv.ChatID, "could not update your privacy setting.")
		return nil
	}
	if changed {
		a.replyText(inv.ChatID, "you are now hidden from search results.")
	} else {
		a.replyText(inv.ChatID, "you were already hidden from search results.")
	}
	return nil
}

func (a *App) cmdUnblockMe(ctx context.Context, inv commands.Invocation) error {
	changed, err := a.privacy.Unblock(inv.UserID)
	if err != nil {
		a.replyText(inv.ChatID, "could not update your privacy setting.")
		return nil
	}
	if changed {
		a.replyText(inv.ChatID, "you are visible in search results again.")
	} else {
		a.replyText(inv.ChatID, "you were already visible in search results.")
	}
	return nil
}

func (a *App) cmdPrivacyStatus(ctx context.Context, inv commands.Invocation) error {
	if a.privacy.IsBlocked(inv.UserID) {
		a.replyText(inv.ChatID, "your messages are currently hidden from search results.")
	} else {
		a.replyText(inv.ChatID, "your messages are currently visible in search results.")
	}
	return nil
}

func (a *App) cmdSync(ctx context.Context, inv commands.Invocation) error {
	if a.sync == nil {
		a.replyText(inv.ChatID, "sync control is not configured.")
		return nil
	}
	chatID, ok := parseTargetChatID(inv.Argument, inv.ChatID)
	if !ok {
		a.replyText(inv.ChatID, "usage: /sync [chat_id]")
		return nil
	}
	resp, err := a.sync.RequestSync(ctx, chatID, inv.UserID)
	if err != nil {
		a.replyText(inv.ChatID, err.Error())
		return nil
	}
	a.replyText(inv.ChatID, fmt.Sprintf("sync requested for chat %d: %s", resp.ChatID, resp.Message))
	return nil
}

func (a *App) cmdSyncStatus(ctx context.Context, inv commands.Invocation) error {
	if a.sync == nil {
		a.replyText(inv.ChatID, "sync control is not configured.")
		return nil
	}
	var chatID int64
	if strings.TrimSpace(inv.Argument) != "" {
		chatID, _ = strconv.ParseInt(strings.TrimSpace(inv.Argument), 10, 64)
	}
	status, err := a.sync.Status(ctx, chatID)
	if err != nil {
		a.replyText(inv.ChatID, err.Error())
		return nil
	}
	var b strings.Builder
	for _, c := range status.Chats {
		fmt.Fprintf(&b, "%d: %s (%d/%d)\n", c.ChatID, c.Status, c.SyncedCount, c.TotalCount)
	}
	if b.Len() == 0 {
		a.replyText(inv.ChatID, "no sync records.")
		return nil
	}
	a.replyText(inv.ChatID, b.String())
	return nil
}

func (a *App) cmdSyncPause(ctx context.Context, inv commands.Invocation) error {
	return a.syncToggle(ctx, inv, a.sync.Pause, "paused")
}

func (a *App) cmdSyncResume(ctx context.Context, inv commands.Invocation) error {
	return a.syncToggle(ctx, inv, a.sync.Resume, "resumed")
}

func (a *App) syncToggle(ctx context.Context, inv commands.Invocation, fn func(context.Context, int64) error, verb string) error {
	if a.sync == nil {
		a.replyText(inv.ChatID, "sync control is not configured.")
		return nil
	}
	chatID, ok := parseTargetChatID(inv.Argument, inv.ChatID)
	if !ok {
		a.replyText(inv.ChatID, "usage: /sync_"+verb+" [chat_id]")
		return nil
	}
	if err := fn(ctx, chatID); err != nil {
		a.replyText(inv.ChatID, err.Error())
		return nil
	}
	a.replyText(inv.ChatID, fmt.Sprintf("chat %d %s.", chatID, verb))
	return nil
}

func parseTargetChatID(argument string, fallback int64) (int64, bool) {
	argument = strings.TrimSpace(argument)
	if argument == "" {
		return fallback, true
	}
	id, err := strconv.ParseInt(argument, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (a *App) cmdClearIndex(ctx context.Context, inv commands.Invocation) error {
	if _, err := a.search.Clear(ctx); err != nil {
		a.replyText(inv.ChatID, "clear failed: "+err.Error())
		return nil
	}
	a.replyText(inv.ChatID, "index cleared.")
	return nil
}

func (a *App) cmdDedup(ctx context.Context, inv commands.Invocation) error {
	resp, err := a.search.Dedup(ctx)
	if err != nil {
		a.replyText(inv.ChatID, "dedup failed: "+err.Error())
		return nil
	}
	a.replyText(inv.ChatID, fmt.Sprintf("found %d duplicates, removed %d.", resp.DuplicatesFound, resp.DuplicatesRemoved))
	return nil
}

func (a *App) cmdDeleteCommands(ctx context.Context, inv commands.Invocation) error {
	resp, err := a.search.DeleteCommands(ctx)
	if err != nil {
		a.replyText(inv.ChatID, "delete failed: "+err.Error())
		return nil
	}
	a.replyText(inv.ChatID, fmt.Sprintf("deleted %d command messages.", resp.DeletedCount))
	return nil
}

// handleOwnerDenied replies with a fixed message when an owner-only
// route is invoked by a non-owner, per commands.ErrNotOwner.
func (a *App) handleOwnerDenied(chatID int64, err *commands.ErrNotOwner) {
	a.replyText(chatID, "that command is owner-only.")
}
