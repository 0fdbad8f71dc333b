// Package ingestapp assembles the Ingestor process (§2, process I):
// the MTProto userbot that observes live updates and walks chat
// history, pushing every message into the Buffered Indexer and
// exposing the Sync Manager over HTTP. Grounded on the teacher's
// internal/app (App/Runner split) and internal/domain/updates, but
// construct-once-and-pass-explicitly throughout (§9) instead of the
// teacher's package-level config.Env()/logger singletons, and
// sequenced through internal/lifecycle.Manager instead of the
// teacher's hand-rolled startAllServices/stopAllServices ordering.
package ingestapp

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/telegram"
	gotdauth "github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	tgupdates "github.com/gotd/td/telegram/updates"
	updhook "github.com/gotd/td/telegram/updates/hook"
	"github.com/gotd/td/tg"

	"github.com/ZhiShengYuan/SearchGram/internal/auth"
	"github.com/ZhiShengYuan/SearchGram/internal/concurrency"
	"github.com/ZhiShengYuan/SearchGram/internal/config"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/ZhiShengYuan/SearchGram/internal/indexer"
	"github.com/ZhiShengYuan/SearchGram/internal/ingestapp/peercache"
	"github.com/ZhiShengYuan/SearchGram/internal/ingestapp/session"
	"github.com/ZhiShengYuan/SearchGram/internal/lifecycle"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
	"github.com/ZhiShengYuan/SearchGram/internal/syncapi"
	"github.com/ZhiShengYuan/SearchGram/internal/syncmanager"
)

const editDebounceMS = 1500

// App holds every constructed dependency of the Ingestor process.
type App struct {
	cfg *config.Config

	lc        *lifecycle.Manager
	peers     *peercache.Cache
	idx       *indexer.Indexer
	debouncer *concurrency.Debouncer
	sync      *syncmanager.Manager
	syncSrv   *syncapi.Server

	tgClient *telegram.Client
	waiter   *floodwait.Waiter
	updMgr   *tgupdates.Manager
	handlers *Handlers
}

// New builds an App from cfg. No goroutines or network calls happen
// here; everything starts in Run.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg, lc: lifecycle.New(context.Background())}

	peers, err := peercache.Open(cfg.Telegram.PeerCacheFile)
	if err != nil {
		return nil, fmt.Errorf("ingestapp: open peer cache: %w", err)
	}
	a.peers = peers

	var signer *auth.Signer
	if cfg.Auth.UseJWT {
		var signErr error
		signer, signErr = newIssuerSigner(cfg, auth.IssuerUserbot)
		if signErr != nil {
			return nil, signErr
		}
	}
	searchHTTP := httpclient.New(cfg.Services.SearchBaseURL, signer, cfg.Auth.Audience)
	search := searchclient.New(searchHTTP)

	batchInterval := time.Duration(cfg.SearchEngine.Batch.FlushInterval) * time.Second
	a.idx = indexer.New(search, cfg.SearchEngine.Batch.Size, batchInterval)

	a.debouncer = concurrency.NewDebouncer(editDebounceMS)
	a.handlers = NewHandlers(a.idx, a.peers, search, a.debouncer)

	if err := a.buildTelegramClient(); err != nil {
		return nil, err
	}

	if cfg.Sync.Enabled {
		fetcher := newHistoryFetcher(a.tgClient.API(), a.peers)
		mgr, err := syncmanager.New(fetcher, a.idx, syncmanager.Options{
			CheckpointFile:      cfg.Sync.CheckpointFile,
			BatchSize:           cfg.Sync.BatchSize,
			RetryOnError:        cfg.Sync.RetryOnError,
			MaxRetries:          cfg.Sync.MaxRetries,
			ResumeOnRestart:     cfg.Sync.ResumeOnRestart,
			ClearCompleted:      cfg.Sync.ClearCompleted,
			DelayBetweenBatches: time.Duration(cfg.Sync.DelayBetweenBatches) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("ingestapp: init sync manager: %w", err)
		}
		a.sync = mgr

		verifier, err := newVerifier(cfg, auth.IssuerBot)
		if err != nil {
			return nil, err
		}
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Listen, cfg.HTTP.UserbotPort)
		a.syncSrv = syncapi.NewServer(addr, verifier, a.sync)
	}

	a.registerNodes()
	return a, nil
}

func newIssuerSigner(cfg *config.Config, issuer auth.Issuer) (*auth.Signer, error) {
	key, err := auth.LoadPrivateKey(firstNonEmpty(cfg.Auth.PrivateKeyInline, cfg.Auth.PrivateKeyPath))
	if err != nil {
		return nil, fmt.Errorf("ingestapp: load private key: %w", err)
	}
	return auth.NewSigner(issuer, key, time.Duration(cfg.Auth.TokenTTLSeconds)*time.Second), nil
}

func newVerifier(cfg *config.Config, allowed ...auth.Issuer) (*auth.Verifier, error) {
	key, err := auth.LoadPublicKey(firstNonEmpty(cfg.Auth.PublicKeyInline, cfg.Auth.PublicKeyPath))
	if err != nil {
		return nil, fmt.Errorf("ingestapp: load public key: %w", err)
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

func (a *App) buildTelegramClient() error {
	dispatcher := tg.NewUpdateDispatcher()
	a.handlers.Register(dispatcher)

	a.updMgr = tgupdates.New(tgupdates.Config{
		Handler: dispatcher,
		Storage: session.NewStateStorage(a.cfg.Telegram.StateFile),
	})

	a.waiter = floodwait.NewWaiter()

	options := telegram.Options{
		SessionStorage: &session.FileStorage{Path: a.cfg.Telegram.SessionFile},
		UpdateHandler:  a.updMgr,
		Middlewares: []telegram.Middleware{
			a.waiter,
			updhook.UpdateHook(a.updMgr.Handle),
		},
		Device: telegram.DeviceConfig{
			DeviceModel:   "SearchGram-Ingestor",
			SystemVersion: "linux",
			AppVersion:    "1.0.0",
		},
	}
	if a.cfg.Telegram.TestDC {
		options.DCList = dcs.Test()
	}

	client, err := telegram.NewClient(a.cfg.Telegram.AppID, a.cfg.Telegram.AppHash, options)
	if err != nil {
		return fmt.Errorf("ingestapp: build telegram client: %w", err)
	}
	a.tgClient = client
	return nil
}

// registerNodes sequences the bounded-lifetime subsystems through the
// lifecycle manager (§9): the MTProto connection and update stream
// have their own long-lived run loop, started separately in Run.
func (a *App) registerNodes() {
	_ = a.lc.Register("debouncer", "", nil, func(ctx context.Context) (context.Context, error) {
		a.debouncer.Start(ctx)
		return nil, nil
	}, func(ctx context.Context) error {
		a.debouncer.Stop()
		return nil
	})

	if a.sync != nil {
		_ = a.lc.Register("sync-worker", "", nil, func(ctx context.Context) (context.Context, error) {
			a.sync.StartWorker()
			return nil, nil
		}, func(ctx context.Context) error {
			a.sync.StopWorker()
			return nil
		})
	}

	if a.syncSrv != nil {
		_ = a.lc.Register("sync-api", "", nil, func(ctx context.Context) (context.Context, error) {
			go func() {
				if err := a.syncSrv.Start(); err != nil {
					logging.Errorf("ingestapp: sync-api server: %v", err)
				}
			}()
			return nil, nil
		}, func(ctx context.Context) error {
			return a.syncSrv.Shutdown(ctx)
		})
	}

	_ = a.lc.Register("indexer", "", nil, func(ctx context.Context) (context.Context, error) {
		return nil, nil
	}, func(ctx context.Context) error {
		return a.idx.Shutdown()
	})

	_ = a.lc.Register("peer-cache", "", nil, func(ctx context.Context) (context.Context, error) {
		return nil, nil
	}, func(ctx context.Context) error {
		return a.peers.Close()
	})
}

// Run starts every lifecycle node, then runs the MTProto client's
// blocking update loop until ctx is cancelled, mirroring the teacher's
// Runner.Run (waiter.Run wrapping client.Run wrapping the auth/login
// and updates-manager dance), then shuts everything back down in
// reverse order.
func (a *App) Run(ctx context.Context) error {
	if err := a.lc.StartAll(); err != nil {
		return fmt.Errorf("ingestapp: start services: %w", err)
	}
	defer func() {
		if err := a.lc.Shutdown(); err != nil {
			logging.Errorf("ingestapp: shutdown: %v", err)
		}
	}()

	return a.waiter.Run(ctx, func(ctx context.Context) error {
		return a.tgClient.Run(ctx, func(ctx context.Context) error {
			self, err := a.login(ctx)
			if err != nil {
				return err
			}
			logging.Infof("ingestapp: logged in as %s (id=%d)", self.Username, self.ID)

			updatesCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- a.updMgr.Run(updatesCtx, a.tgClient.API(), self.ID, tgupdates.AuthOptions{Forget: false})
			}()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-errCh:
				return err
			}
		})
	})
}

func (a *App) login(ctx context.Context) (*tg.User, error) {
	flow := gotdauth.NewFlow(&configAuthenticator{
		phone:    a.cfg.Telegram.PhoneNumber,
		code:     a.cfg.Telegram.LoginCode,
		password: a.cfg.Telegram.Password,
	}, gotdauth.SendCodeOptions{})

	if err := a.tgClient.Auth().IfNecessary(ctx, flow); err != nil {
		return nil, errors.Wrap(err, "auth")
	}
	return a.tgClient.Self(ctx)
}
