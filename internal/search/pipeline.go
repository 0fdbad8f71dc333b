package search

import (
	"context"
	"fmt"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/access"
	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/privacy"
	"github.com/ZhiShengYuan/SearchGram/internal/querylog"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
)

// Invocation describes the chat message that triggered a search.
type Invocation struct {
	UserID    int64
	Username  string
	FirstName string
	ChatID    int64
	ChatType  document.ChatType
	Text      string
}

// Denial is returned when the access check in step 1 rejects the
// invocation. InGroup tells the caller whether to reply with an error
// (private chat) or drop the message silently (group chat), per §4.4.
type Denial struct {
	InGroup bool
}

func (d *Denial) Error() string {
	return "access denied"
}

// Pipeline wires the search query pipeline's dependencies (§4.4).
type Pipeline struct {
	access  *access.Controller
	privacy *privacy.Store
	client  *searchclient.Client
	logs    *querylog.Store
}

// New builds a Pipeline from its already-constructed dependencies.
func New(ac *access.Controller, pv *privacy.Store, sc *searchclient.Client, logs *querylog.Store) *Pipeline {
	return &Pipeline{access: ac, privacy: pv, client: sc, logs: logs}
}

// Result is a fully processed, ready-to-render search outcome.
type Result struct {
	Page Page
}

// Run executes the pipeline on an already parsed q: access check, scope, privacy
// flag, search invocation, post-filter, render, and query logging
// (§4.4 steps 1-7, 10; rendering happens via Page so callers can attach
// navigation/auto-delete before sending).
func (p *Pipeline) Run(ctx context.Context, inv Invocation, q Query) (Result, error) {
	start := time.Now()

	if !p.access.Allowed(inv.UserID, inv.ChatID, inv.ChatType) {
		inGroup := inv.ChatType == document.ChatGroup || inv.ChatType == document.ChatSupergroup
		return Result{}, &Denial{InGroup: inGroup}
	}

	req := searchclient.SearchRequest{
		Keyword:    q.Keyword,
		Page:       q.Page,
		PageSize:   DefaultPageSize,
		ExactMatch: q.Mode == ModeExact,
		ChatType:   string(q.ChatType),
		Username:   q.UserFilter,
	}

	var postFilterGroups map[int64]struct{}
	if inv.ChatType == document.ChatGroup || inv.ChatType == document.ChatSupergroup {
		req.ChatID = inv.ChatID
	} else {
		chatIDs, global := p.access.Scope(inv.UserID)
		if !global {
			// chatIDs may be empty (no user_group_permissions entry at
			// all); the filter still has to apply as an empty set rather
			// than be skipped, or unscoped global hits would pass
			// straight through to a non-owner, non-admin user (§4.5,
			// §8 permission containment).
			postFilterGroups = make(map[int64]struct{}, len(chatIDs))
			for _, id := range chatIDs {
				postFilterGroups[id] = struct{}{}
			}
		}
	}

	applyPrivacy := !p.access.PrivacyFilterOff(inv.UserID, inv.ChatType)
	var blocked map[int64]struct{}
	if applyPrivacy && p.privacy != nil {
		blocked = p.privacy.Snapshot()
		ids := make([]int64, 0, len(blocked))
		for id := range blocked {
			ids = append(ids, id)
		}
		req.BlockedUsers = ids
	}

	resp, err := p.client.Search(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	if postFilterGroups != nil {
		filterByGroup(resp, postFilterGroups)
	}
	if applyPrivacy && len(blocked) > 0 {
		kept, removed := privacy.Filter(resp.Hits, blocked)
		resp.Hits = kept
		resp.TotalHits -= removed
		resp.TotalPages = pageCount(resp.TotalHits, DefaultPageSize)
	}

	if p.logs != nil {
		_ = p.logs.LogQuery(ctx, querylog.Entry{
			UserID:           inv.UserID,
			Username:         inv.Username,
			FirstName:        inv.FirstName,
			ChatID:           inv.ChatID,
			ChatType:         string(inv.ChatType),
			Query:            q.Keyword,
			SearchType:       string(q.Mode),
			SearchUser:       q.UserFilter,
			ResultsCount:     resp.TotalHits,
			PageNumber:       q.Page,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		})
	}

	return Result{Page: RenderPage(*resp)}, nil
}

// Clear wipes the entire search index. Owner-only operator command.
func (p *Pipeline) Clear(ctx context.Context) (*searchclient.ClearResponse, error) {
	return p.client.Clear(ctx)
}

// Dedup removes duplicate documents from the index. Owner-only operator command.
func (p *Pipeline) Dedup(ctx context.Context) (*searchclient.DedupResponse, error) {
	return p.client.Dedup(ctx)
}

// DeleteCommands removes indexed bot-command messages from the index.
// Owner-only operator command.
func (p *Pipeline) DeleteCommands(ctx context.Context) (*searchclient.DeletedCountResponse, error) {
	return p.client.DeleteCommands(ctx)
}

func filterByGroup(resp *searchclient.SearchResponse, allowed map[int64]struct{}) {
	kept := make([]document.Message, 0, len(resp.Hits))
	removed := 0
	for _, hit := range resp.Hits {
		if _, ok := allowed[hit.ChatID]; ok {
			kept = append(kept, hit)
		} else {
			removed++
		}
	}
	resp.Hits = kept
	resp.TotalHits -= removed
	resp.TotalPages = pageCount(resp.TotalHits, DefaultPageSize)
}

func pageCount(totalHits, pageSize int) int {
	if totalHits <= 0 {
		return 0
	}
	return (totalHits + pageSize - 1) / pageSize
}
