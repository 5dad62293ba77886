package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaybroker/broker/internal/approval"
	"github.com/relaybroker/broker/internal/attachments"
	"github.com/relaybroker/broker/internal/commands"
	"github.com/relaybroker/broker/internal/config"
	"github.com/relaybroker/broker/internal/emergency"
	"github.com/relaybroker/broker/internal/handlers"
	"github.com/relaybroker/broker/internal/lifecycle"
	"github.com/relaybroker/broker/internal/logging"
	"github.com/relaybroker/broker/internal/notify"
	"github.com/relaybroker/broker/internal/orchestrator"
	"github.com/relaybroker/broker/internal/paths"
	"github.com/relaybroker/broker/internal/ratelimit"
	"github.com/relaybroker/broker/internal/registry"
	"github.com/relaybroker/broker/internal/router"
	"github.com/relaybroker/broker/internal/store"
	"github.com/relaybroker/broker/internal/transport"
	"github.com/relaybroker/broker/internal/transport/telegrambot"
)

const (
	approvalSweepInterval = time.Minute
	inboundQueueSize      = 256
)

var healthPort int

func init() {
	serveCmd.Flags().IntVar(&healthPort, "health-port", 8080, "port for the health check HTTP endpoint")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broker daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.New("serve")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	cfgStore, err := config.NewStore()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := cfgStore.Get()
	if cfg.TelegramToken == "" {
		return fmt.Errorf("no telegram token configured; set BROKER_TELEGRAM_TOKEN")
	}
	if cfg.AuthorizedThreadID == "" {
		return fmt.Errorf("no authorized thread id configured; set BROKER_AUTHORIZED_THREAD_ID")
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	life := lifecycle.New(db)
	ledger := approval.NewLedger()
	em := emergency.New(db)

	attachStore, err := attachments.New(cfg.AttachmentsDir)
	if err != nil {
		return fmt.Errorf("init attachments store: %w", err)
	}

	if err := paths.EnsureDir(cfg.CustomCommandsDir); err != nil {
		return fmt.Errorf("create custom commands dir: %w", err)
	}
	catalog := commands.New(db, cfg.CustomCommandsDir)
	if err := catalog.Scan(); err != nil {
		log.Warnf("initial custom command scan failed: %v", err)
	}
	go func() {
		if err := catalog.Watch(ctx); err != nil {
			log.Errorf("custom command watcher stopped: %v", err)
		}
	}()

	// Crash recovery runs automatically at boot, per spec.md §4.1;
	// `brokerd recover` exposes the same operation on demand.
	if recovered, err := life.Recover(); err != nil {
		log.Errorf("boot recovery failed: %v", err)
	} else if len(recovered) > 0 {
		log.Printf("recovered %d session(s) from a previous crash: %v", len(recovered), recovered)
	}

	provider := telegrambot.New(cfg.TelegramToken)
	limiterCfg := ratelimit.Config{
		BurstSize:      cfg.RateLimit.BurstSize,
		RateLimit:      cfg.RateLimit.RateLimit,
		CooldownPeriod: time.Duration(cfg.RateLimit.CooldownPeriodSeconds) * time.Second,
	}
	var tr *transport.Transport
	var notifier *notify.Manager
	tr = transport.New(provider, limiterCfg, func(ctx context.Context) error {
		return sendCatchupSummaries(ctx, life, notifier, tr)
	})
	notifier = notify.New(db, tr)
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}
	defer tr.Disconnect()
	go tr.RunConnectionMonitor(ctx)

	orch := orchestrator.New(tr, ledger, em, life, attachStore, time.Duration(cfg.BatchIntervalMillis)*time.Millisecond)
	orch.SetNotifier(notifier)
	reg := registry.New(db, life, orch, cfg.AssistantCommand)

	codeHandler := &handlers.Code{}
	orch.SetCodeDisplay(codeHandler)
	chain := []router.Handler{
		&handlers.Approval{Ledger: ledger},
		&handlers.Emergency{Manager: em},
		&handlers.Notify{DB: db},
		&handlers.Custom{Catalog: catalog, Invoker: reg},
		&handlers.Thread{DB: db},
		codeHandler,
		&handlers.Session{Manager: reg, Life: life},
	}
	fallback := handlers.NewFallback(reg)

	authorized := func(threadID string) bool { return threadID == cfg.AuthorizedThreadID }
	rt := router.New(tr, authorized, chain, fallback)

	inbound := make(chan transport.Event, inboundQueueSize)
	go func() {
		for ev := range tr.Receive() {
			select {
			case inbound <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		// Single consumer: inbound messages for a single thread are
		// routed in receipt order (spec.md §5 "Ordering guarantees").
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-inbound:
				rt.Dispatch(ctx, ev.Recipient, ev.Text)
			}
		}
	}()

	stopSweep := make(chan struct{})
	go ledger.SweepLoop(stopSweep, approvalSweepInterval)

	stopHealth := startHealthServer(db, healthPort)

	log.Printf("brokerd serving (authorized thread %s)", cfg.AuthorizedThreadID)
	<-ctx.Done()
	log.Println("shutting down")
	close(stopSweep)
	_ = stopHealth(context.Background())
	return nil
}

// sendCatchupSummaries generates a catch-up message for every ACTIVE
// session and routes it through the notification pipeline as a
// "reconnection" event, invoked while the transport is SYNCING after a
// reconnect (spec.md §4.1/§4.6/§4.9).
func sendCatchupSummaries(ctx context.Context, life *lifecycle.Manager, notifier *notify.Manager, fallback interface {
	SendMessage(ctx context.Context, threadID, text string) error
}) error {
	sessions, err := life.List()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if s.Status != lifecycle.StatusActive {
			continue
		}
		summary, err := life.GenerateCatchupSummary(s.ID)
		if err != nil {
			continue
		}
		if _, err := notifier.Notify(ctx, "reconnection", summary, s.ThreadID, s.ID); err != nil {
			_ = fallback.SendMessage(ctx, s.ThreadID, "🔄 "+summary)
		}
	}
	return nil
}

type healthStatus struct {
	OK          bool `json:"ok"`
	DBReachable bool `json:"db_reachable"`
}

// startHealthServer runs a trivial net/http health endpoint reporting
// process + DB status (spec.md §1 "trivial plumbing"), returning a
// shutdown function.
func startHealthServer(db *store.DB, port int) func(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{OK: true, DBReachable: db.Ping() == nil}
		w.Header().Set("Content-Type", "application/json")
		if !status.DBReachable {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.New("health").Errorf("health server stopped: %v", err)
		}
	}()
	return srv.Shutdown
}
