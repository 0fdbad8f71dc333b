// Package botapp assembles the Bot process (§2, process B): the bot
// account session that serves interactive search commands, renders
// paginated results, relays files on the ingestor's behalf, and issues
// sync-control commands to the Ingestor's HTTP API. Grounded on the
// teacher's internal/app (App/Runner split, construct-once-and-pass-
// explicitly per §9) and sequenced through internal/lifecycle.Manager
// exactly like internal/ingestapp.
package botapp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ZhiShengYuan/SearchGram/internal/access"
	"github.com/ZhiShengYuan/SearchGram/internal/auth"
	"github.com/ZhiShengYuan/SearchGram/internal/botapi"
	"github.com/ZhiShengYuan/SearchGram/internal/commands"
	"github.com/ZhiShengYuan/SearchGram/internal/config"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/ZhiShengYuan/SearchGram/internal/lifecycle"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/msgqueue"
	"github.com/ZhiShengYuan/SearchGram/internal/privacy"
	"github.com/ZhiShengYuan/SearchGram/internal/querylog"
	"github.com/ZhiShengYuan/SearchGram/internal/search"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
	"github.com/ZhiShengYuan/SearchGram/internal/syncapi"
)

// App holds every constructed dependency of the Bot process.
type App struct {
	cfg *config.Config
	lc  *lifecycle.Manager

	bot     *tgbotapi.BotAPI
	access  *access.Controller
	privacy *privacy.Store
	logs    *querylog.Store
	search  *search.Pipeline
	autoDel *search.AutoDeleter
	router  *commands.Router
	sync    *syncapi.Client
	relay   *botapi.Server
	queue   *msgqueue.Store

	pagesMu sync.Mutex
	pages   map[pageKey]search.Query
}

// New builds an App from cfg. No goroutines or network calls happen
// here; everything starts in Run.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg, lc: lifecycle.New(context.Background()), pages: make(map[pageKey]search.Query)}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("botapp: build bot client: %w", err)
	}
	a.bot = bot

	a.access = access.New(cfg.Telegram.OwnerID, cfg.Bot)

	pv, err := privacy.Open(cfg.Privacy.StorageFile)
	if err != nil {
		return nil, fmt.Errorf("botapp: open privacy store: %w", err)
	}
	a.privacy = pv

	if cfg.Database.Enabled {
		logs, err := querylog.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("botapp: open query log: %w", err)
		}
		a.logs = logs
	}

	var signer *auth.Signer
	if cfg.Auth.UseJWT {
		var signErr error
		signer, signErr = newIssuerSigner(cfg, auth.IssuerBot)
		if signErr != nil {
			return nil, signErr
		}
	}
	searchHTTP := httpclient.New(cfg.Services.SearchBaseURL, signer, cfg.Auth.Audience)
	searchC := searchclient.New(searchHTTP)
	a.search = search.New(a.access, a.privacy, searchC, a.logs)
	a.autoDel = search.NewAutoDeleter()

	if cfg.Services.UserbotBaseURL != "" {
		syncHTTP := httpclient.New(cfg.Services.UserbotBaseURL, signer, cfg.Auth.Audience)
		a.sync = syncapi.NewClient(syncHTTP)
	}

	queue, err := msgqueue.Open(cfg.Queue.DBPath)
	if err != nil {
		return nil, fmt.Errorf("botapp: open message queue: %w", err)
	}
	a.queue = queue

	if cfg.Services.BotBaseURL != "" {
		verifier, err := newVerifier(cfg, auth.IssuerUserbot)
		if err != nil {
			return nil, err
		}
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Listen, cfg.HTTP.BotPort)
		a.relay = botapi.NewServer(addr, verifier, &fileRelay{bot: a.bot, queue: a.queue, ownerID: cfg.Telegram.OwnerID})
	}

	a.router = commands.NewRouter()
	a.registerRoutes()

	a.registerNodes()
	return a, nil
}

func newIssuerSigner(cfg *config.Config, issuer auth.Issuer) (*auth.Signer, error) {
	key, err := auth.LoadPrivateKey(firstNonEmpty(cfg.Auth.PrivateKeyInline, cfg.Auth.PrivateKeyPath))
	if err != nil {
		return nil, fmt.Errorf("botapp: load private key: %w", err)
	}
	return auth.NewSigner(issuer, key, time.Duration(cfg.Auth.TokenTTLSeconds)*time.Second), nil
}

func newVerifier(cfg *config.Config, allowed ...auth.Issuer) (*auth.Verifier, error) {
	key, err := auth.LoadPublicKey(firstNonEmpty(cfg.Auth.PublicKeyInline, cfg.Auth.PublicKeyPath))
	if err != nil {
		return nil, fmt.Errorf("botapp: load public key: %w", err)
	}
	return auth.NewVerifier(key, cfg.Auth.Audience, allowed...), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// registerNodes sequences the bounded-lifetime subsystems through the
// lifecycle manager; the long-polling update loop is run separately in
// Run, mirroring internal/ingestapp's split between bounded services
// and the blocking MTProto run loop.
func (a *App) registerNodes() {
	if a.relay != nil {
		_ = a.lc.Register("file-relay", "", nil, func(ctx context.Context) (context.Context, error) {
			go func() {
				if err := a.relay.Start(); err != nil {
					logging.Errorf("botapp: file-relay server: %v", err)
				}
			}()
			return nil, nil
		}, func(ctx context.Context) error {
			return a.relay.Shutdown(ctx)
		})
	}

	_ = a.lc.Register("queue-reaper", "", nil, func(ctx context.Context) (context.Context, error) {
		go a.runQueueReaper(ctx)
		return nil, nil
	}, func(ctx context.Context) error {
		return a.queue.Close()
	})

	_ = a.lc.Register("auto-deleter", "", nil, func(ctx context.Context) (context.Context, error) {
		return nil, nil
	}, func(ctx context.Context) error {
		a.autoDel.StopAll()
		return nil
	})

	if a.logs != nil {
		_ = a.lc.Register("query-log", "", nil, func(ctx context.Context) (context.Context, error) {
			return nil, nil
		}, func(ctx context.Context) error {
			return a.logs.Close()
		})
	}

	_ = a.lc.Register("privacy-store", "", nil, func(ctx context.Context) (context.Context, error) {
		return nil, nil
	}, func(ctx context.Context) error {
		return nil
	})
}

// runQueueReaper periodically retries queued "bot"-addressed messages
// (currently just failed file relays) and then deletes anything left
// stale beyond the configured age, mirroring the teacher's
// runNotificationCacheCleaner.
func (a *App) runQueueReaper(ctx context.Context) {
	interval := time.Duration(a.cfg.Queue.ReapIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	maxAge := time.Duration(a.cfg.Queue.MaxAgeSec) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.retryQueuedSends()

			n, err := a.queue.Reap(maxAge)
			if err != nil {
				logging.Warnf("botapp: queue reap failed: %v", err)
				continue
			}
			if n > 0 {
				logging.Infof("botapp: reaped %d stale queued messages", n)
			}
		}
	}
}

// retryQueuedSends resends any file relay that failed on its first
// attempt (queued by fileRelay.SendFile) and acknowledges it on success,
// leaving it in place for the next tick (and eventually the reaper) on
// repeated failure.
func (a *App) retryQueuedSends() {
	msgs, err := a.queue.Dequeue("bot")
	if err != nil {
		logging.Warnf("botapp: dequeue retry messages failed: %v", err)
		return
	}
	for _, msg := range msgs {
		if msg.Type != "retry_send_file" {
			continue
		}
		var payload relayPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			_ = a.queue.Ack(msg.ID)
			continue
		}
		fileData, err := base64.StdEncoding.DecodeString(payload.FileData)
		if err != nil {
			_ = a.queue.Ack(msg.ID)
			continue
		}
		doc := tgbotapi.NewDocument(payload.RecipientID, tgbotapi.FileBytes{Name: payload.FileName, Bytes: fileData})
		doc.Caption = payload.Caption
		if _, err := a.bot.Send(doc); err != nil {
			logging.Warnf("botapp: retry relay of %q still failing: %v", payload.FileName, err)
			continue
		}
		_ = a.queue.Ack(msg.ID)
	}
}

// Run starts every lifecycle node, then runs the bot's long-polling
// update loop until ctx is cancelled, shutting everything back down in
// reverse order on return.
func (a *App) Run(ctx context.Context) error {
	if err := a.lc.StartAll(); err != nil {
		return fmt.Errorf("botapp: start services: %w", err)
	}
	defer func() {
		if err := a.lc.Shutdown(); err != nil {
			logging.Errorf("botapp: shutdown: %v", err)
		}
	}()

	logging.Infof("botapp: logged in as @%s", a.bot.Self.UserName)
	return a.runUpdateLoop(ctx)
}
