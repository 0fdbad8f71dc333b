package privacy

import "github.com/ZhiShengYuan/SearchGram/internal/document"

// Filter drops every message whose sender (or, for channel posts with
// no sender user, whose chat id) is in blocked. It returns the
// surviving hits and how many were removed, so the caller can
// decrement totalHits / recompute totalPages (§4.5).
func Filter(hits []document.Message, blocked map[int64]struct{}) ([]document.Message, int) {
	if len(blocked) == 0 {
		return hits, 0
	}

	kept := make([]document.Message, 0, len(hits))
	removed := 0
	for _, hit := range hits {
		if isBlockedSender(hit, blocked) {
			removed++
			continue
		}
		kept = append(kept, hit)
	}
	return kept, removed
}

func isBlockedSender(hit document.Message, blocked map[int64]struct{}) bool {
	if hit.FromUser.ID != 0 {
		_, blockedUser := blocked[hit.FromUser.ID]
		return blockedUser
	}
	if hit.Chat.Type == document.ChatChannel {
		_, blockedChannel := blocked[hit.Chat.ID]
		return blockedChannel
	}
	return false
}
