package search

import (
	"context"
	"fmt"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
)

// defaultStatsWindow is used when /mystats is invoked with no window argument.
const defaultStatsWindow = 7 * 24 * time.Hour

// MyStats answers "/mystats [window] [at]" for the invoker in groupID
// with the search engine's message-count stats over the window ending
// now. The local query log is not consulted.
func (p *Pipeline) MyStats(ctx context.Context, userID, groupID int64, window time.Duration) (searchclient.UserStatsResponse, error) {
	if window <= 0 {
		window = defaultStatsWindow
	}
	now := time.Now()
	from := now.Add(-window)

	resp, err := p.client.UserStats(ctx, searchclient.UserStatsRequest{
		GroupID:       groupID,
		UserID:        userID,
		FromTimestamp: from.Unix(),
		ToTimestamp:   now.Unix(),
	})
	if err != nil {
		return searchclient.UserStatsResponse{}, fmt.Errorf("mystats: %w", err)
	}
	return *resp, nil
}
