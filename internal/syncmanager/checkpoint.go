package syncmanager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/fsutil"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

// checkpointFile is the on-disk shape of the checkpoint (§6): a
// timestamp plus every tracked chat's progress record.
type checkpointFile struct {
	LastUpdated int64      `json:"last_updated"`
	Chats       []Progress `json:"chats"`
}

// loadCheckpoint reads path, coercing any non-completed status to
// pending so the worker picks it back up, and optionally pruning
// completed records. A missing file is treated as an empty checkpoint.
func loadCheckpoint(path string, pruneCompleted bool) (map[int64]*Progress, error) {
	clean := filepath.Clean(path)

	data, err := os.ReadFile(clean)
	if os.IsNotExist(err) {
		return map[int64]*Progress{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("syncmanager: read checkpoint: %w", err)
	}

	var cp checkpointFile
	if err := json.Unmarshal(data, &cp); err != nil {
		logging.Warnf("syncmanager: checkpoint %s is corrupt, starting fresh: %v", clean, err)
		return map[int64]*Progress{}, nil
	}

	out := make(map[int64]*Progress, len(cp.Chats))
	for i := range cp.Chats {
		p := cp.Chats[i]
		switch p.Status {
		case StatusCompleted:
			if pruneCompleted {
				continue
			}
		default:
			p.Status = StatusPending
		}
		rec := p
		out[rec.ChatID] = &rec
	}
	return out, nil
}

// persistCheckpoint writes the full progress map atomically via
// tempfile + rename, so the file on disk is always either the
// previous or the new valid state.
func persistCheckpoint(path string, chats map[int64]*Progress) error {
	if err := fsutil.EnsureDir(path); err != nil {
		return fmt.Errorf("syncmanager: ensure checkpoint dir: %w", err)
	}

	cp := checkpointFile{
		LastUpdated: time.Now().Unix(),
		Chats:       make([]Progress, 0, len(chats)),
	}
	for _, p := range chats {
		cp.Chats = append(cp.Chats, *p)
	}
	sort.Slice(cp.Chats, func(i, j int) bool { return cp.Chats[i].ChatID < cp.Chats[j].ChatID })

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("syncmanager: encode checkpoint: %w", err)
	}

	if err := fsutil.AtomicWriteFile(path, data); err != nil {
		return fmt.Errorf("syncmanager: write checkpoint: %w", err)
	}
	return nil
}
