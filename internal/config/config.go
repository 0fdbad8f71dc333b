// Package config loads SearchGram's single JSON configuration file and
// exposes a validated, immutable snapshot. The wire format (§6 of the
// spec) is a dotted-key document, which github.com/spf13/viper reads
// and exposes natively — the teacher's flat .env loader
// (internal/infra/config) is restructured around it instead of hand
// parsing the document.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Telegram holds the MTProto/bot credentials and connection options.
type Telegram struct {
	AppID    int
	AppHash  string
	BotToken string
	OwnerID  int64
	Proxy    string
	IPv6     bool
	TestDC   bool

	// PhoneNumber/LoginCode/Password drive the ingestor's one-time,
	// non-interactive auth.Flow login (§9: no terminal UI). Only
	// consulted the first time the session file is empty.
	PhoneNumber string
	LoginCode   string
	Password    string

	SessionFile   string
	StateFile     string
	PeerCacheFile string
}

// SearchEngineHTTP controls the search client's outbound HTTP behavior.
type SearchEngineHTTP struct {
	TimeoutSeconds int
	MaxRetries     int
}

// SearchEngineBatch controls the Buffered Indexer's flush triggers.
type SearchEngineBatch struct {
	Enabled       bool
	Size          int
	FlushInterval int // seconds
}

// SearchEngine groups the search backend's connection settings.
type SearchEngine struct {
	Engine string
	HTTP   SearchEngineHTTP
	Batch  SearchEngineBatch
}

// AccessMode is one of the bot's configured access modes (§4.5).
type AccessMode string

const (
	AccessPrivate AccessMode = "private"
	AccessGroup   AccessMode = "group"
	AccessPublic  AccessMode = "public"
)

// Bot groups the access-control configuration consumed by internal/access.
type Bot struct {
	Modes                []AccessMode
	AllowedGroups        []int64
	AllowedUsers         []int64
	Admins               []int64
	UserGroupPermissions map[int64][]int64
}

// Privacy groups the opt-out file location.
type Privacy struct {
	StorageFile string
}

// Database groups the query-log database settings.
type Database struct {
	Path    string
	Enabled bool
}

// Sync groups the Sync Manager's behavior.
type Sync struct {
	Enabled             bool
	CheckpointFile      string
	BatchSize           int
	RetryOnError        bool
	MaxRetries          int
	ResumeOnRestart     bool
	DelayBetweenBatches int // seconds
	ClearCompleted      bool
}

// Services groups the base URLs each process uses to reach the others.
type Services struct {
	BotBaseURL     string
	UserbotBaseURL string
	SearchBaseURL  string
}

// Queue groups the bbolt-backed inter-service mailbox's location and
// its periodic reaper's schedule (§3 "Ownership").
type Queue struct {
	DBPath          string
	ReapIntervalSec int
	MaxAgeSec       int
}

// Auth groups the JWT control-plane settings.
type Auth struct {
	UseJWT           bool
	Issuer           string
	Audience         string
	PublicKeyPath    string
	PrivateKeyPath   string
	PublicKeyInline  string
	PrivateKeyInline string
	TokenTTLSeconds  int
}

// HTTP groups the three servers' listen addresses.
type HTTP struct {
	Listen       string
	BotPort      int
	UserbotPort  int
	SearchPort   int
}

// Config is the fully validated, read-only configuration snapshot.
// Per §9's design note, this is the one process-wide singleton the
// rewrite keeps: it is read-only after Load returns.
type Config struct {
	LogLevel     string
	Telegram     Telegram
	SearchEngine SearchEngine
	Bot          Bot
	Privacy      Privacy
	Database     Database
	Sync         Sync
	Services     Services
	Queue        Queue
	Auth         Auth
	HTTP         HTTP
}

// Load reads path (a JSON document) and returns a validated Config.
// Unlike the teacher's config.Load, this is not a package-level
// singleton initializer: callers own the returned value and pass it
// explicitly, per §9's "no global mutable singletons" note.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("telegram.ipv6", false)
	v.SetDefault("telegram.session_file", "data/session.json")
	v.SetDefault("telegram.state_file", "data/updates_state.json")
	v.SetDefault("telegram.peer_cache_file", "data/peers.bbolt")
	v.SetDefault("search_engine.http.timeout", 30)
	v.SetDefault("search_engine.http.max_retries", 3)
	v.SetDefault("search_engine.batch.enabled", true)
	v.SetDefault("search_engine.batch.size", 50)
	v.SetDefault("search_engine.batch.flush_interval", 10)
	v.SetDefault("database.enabled", true)
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.batch_size", 100)
	v.SetDefault("sync.retry_on_error", true)
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.resume_on_restart", true)
	v.SetDefault("sync.delay_between_batches", 1)
	v.SetDefault("sync.clear_completed", false)
	v.SetDefault("queue.db_path", "data/queue.bbolt")
	v.SetDefault("queue.reap_interval", 3600)
	v.SetDefault("queue.max_age", 86400)
	v.SetDefault("auth.use_jwt", true)
	v.SetDefault("auth.token_ttl", 300)
	v.SetDefault("http.bot_port", 8081)
	v.SetDefault("http.userbot_port", 8082)
	v.SetDefault("http.search_port", 8080)
	v.SetDefault("http.listen", "0.0.0.0")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		LogLevel: v.GetString("log_level"),
		Telegram: Telegram{
			AppID:         v.GetInt("telegram.app_id"),
			AppHash:       v.GetString("telegram.app_hash"),
			BotToken:      v.GetString("telegram.bot_token"),
			OwnerID:       v.GetInt64("telegram.owner_id"),
			Proxy:         v.GetString("telegram.proxy"),
			IPv6:          v.GetBool("telegram.ipv6"),
			TestDC:        v.GetBool("telegram.test_dc"),
			PhoneNumber:   v.GetString("telegram.phone_number"),
			LoginCode:     v.GetString("telegram.login_code"),
			Password:      v.GetString("telegram.password"),
			SessionFile:   v.GetString("telegram.session_file"),
			StateFile:     v.GetString("telegram.state_file"),
			PeerCacheFile: v.GetString("telegram.peer_cache_file"),
		},
		SearchEngine: SearchEngine{
			Engine: v.GetString("search_engine.engine"),
			HTTP: SearchEngineHTTP{
				TimeoutSeconds: v.GetInt("search_engine.http.timeout"),
				MaxRetries:     v.GetInt("search_engine.http.max_retries"),
			},
			Batch: SearchEngineBatch{
				Enabled:       v.GetBool("search_engine.batch.enabled"),
				Size:          v.GetInt("search_engine.batch.size"),
				FlushInterval: v.GetInt("search_engine.batch.flush_interval"),
			},
		},
		Bot: Bot{
			Modes:                parseAccessModes(v.Get("bot.mode")),
			AllowedGroups:        toInt64Slice(v.Get("bot.allowed_groups")),
			AllowedUsers:         toInt64Slice(v.Get("bot.allowed_users")),
			Admins:               toInt64Slice(v.Get("bot.admins")),
			UserGroupPermissions: toPermissionMap(v.Get("bot.user_group_permissions")),
		},
		Privacy: Privacy{StorageFile: v.GetString("privacy.storage_file")},
		Queue: Queue{
			DBPath:          v.GetString("queue.db_path"),
			ReapIntervalSec: v.GetInt("queue.reap_interval"),
			MaxAgeSec:       v.GetInt("queue.max_age"),
		},
		Database: Database{
			Path:    v.GetString("database.path"),
			Enabled: v.GetBool("database.enabled"),
		},
		Sync: Sync{
			Enabled:             v.GetBool("sync.enabled"),
			CheckpointFile:      v.GetString("sync.checkpoint_file"),
			BatchSize:           v.GetInt("sync.batch_size"),
			RetryOnError:        v.GetBool("sync.retry_on_error"),
			MaxRetries:          v.GetInt("sync.max_retries"),
			ResumeOnRestart:     v.GetBool("sync.resume_on_restart"),
			DelayBetweenBatches: v.GetInt("sync.delay_between_batches"),
			ClearCompleted:      v.GetBool("sync.clear_completed"),
		},
		Services: Services{
			BotBaseURL:     v.GetString("services.bot.base_url"),
			UserbotBaseURL: v.GetString("services.userbot.base_url"),
			SearchBaseURL:  v.GetString("services.search.base_url"),
		},
		Auth: Auth{
			UseJWT:           v.GetBool("auth.use_jwt"),
			Issuer:           v.GetString("auth.issuer"),
			Audience:         v.GetString("auth.audience"),
			PublicKeyPath:    v.GetString("auth.public_key_path"),
			PrivateKeyPath:   v.GetString("auth.private_key_path"),
			PublicKeyInline:  v.GetString("auth.public_key_inline"),
			PrivateKeyInline: v.GetString("auth.private_key_inline"),
			TokenTTLSeconds:  v.GetInt("auth.token_ttl"),
		},
		HTTP: HTTP{
			Listen:      v.GetString("http.listen"),
			BotPort:     v.GetInt("http.bot_port"),
			UserbotPort: v.GetInt("http.userbot_port"),
			SearchPort:  v.GetInt("http.search_port"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.AppID == 0 {
		return errors.New("config: telegram.app_id must be set")
	}
	if strings.TrimSpace(c.Telegram.AppHash) == "" {
		return errors.New("config: telegram.app_hash must be set")
	}
	if strings.TrimSpace(c.Services.SearchBaseURL) == "" {
		return errors.New("config: services.search.base_url must be set")
	}
	if c.SearchEngine.Batch.Size <= 0 {
		return errors.New("config: search_engine.batch.size must be > 0")
	}
	if c.Sync.BatchSize <= 0 {
		return errors.New("config: sync.batch_size must be > 0")
	}
	return nil
}

func parseAccessModes(raw any) []AccessMode {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []AccessMode{AccessMode(v)}
	case []any:
		modes := make([]AccessMode, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				modes = append(modes, AccessMode(s))
			}
		}
		return modes
	default:
		return nil
	}
}

func toInt64Slice(raw any) []int64 {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case int64:
			out = append(out, n)
		case int:
			out = append(out, int64(n))
		case float64:
			out = append(out, int64(n))
		case string:
			if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
				out = append(out, parsed)
			}
		}
	}
	return out
}

func toPermissionMap(raw any) map[int64][]int64 {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[int64][]int64, len(obj))
	for key, val := range obj {
		uid, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[uid] = toInt64Slice(val)
	}
	return out
}
