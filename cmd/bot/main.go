package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/quangdle/polymarket-trading-bot/internal/audit"
	"github.com/quangdle/polymarket-trading-bot/internal/bot"
	"github.com/quangdle/polymarket-trading-bot/internal/config"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange/polymarket"
	"github.com/quangdle/polymarket-trading-bot/internal/executor"
	"github.com/quangdle/polymarket-trading-bot/internal/logger"
	"github.com/quangdle/polymarket-trading-bot/internal/monitoring"
	"github.com/quangdle/polymarket-trading-bot/internal/notifications"
	"github.com/quangdle/polymarket-trading-bot/internal/position"
	"github.com/quangdle/polymarket-trading-bot/internal/risk"
	"github.com/quangdle/polymarket-trading-bot/internal/scheduler"
	"github.com/quangdle/polymarket-trading-bot/internal/state"
	"github.com/quangdle/polymarket-trading-bot/internal/strategy"
)

const stateFilePath = "data/state.json"

// strategyRuntime bundles the per-strategy wiring built in setup
type strategyRuntime struct {
	name   string
	book   *position.Book
	ledger *risk.Ledger
	log    *logger.Logger
}

func main() {
	// .env is optional; real deployments use actual environment variables
	_ = godotenv.Load()

	configFile := flag.String("config", "bot_config", "config file name or path")
	exportOnExit := flag.Bool("export", true, "export the audit trail on shutdown")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *exportOnExit); err != nil {
		log.Fatalf("Bot failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.BotConfig, exportOnExit bool) error {
	client := polymarket.NewClient(cfg.Exchange)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to Polymarket: %w", err)
	}
	defer client.Disconnect()

	health := monitoring.NewHealthChecker()
	health.SetConnected(true)

	trail, err := openTrail(cfg.Audit)
	if err != nil {
		return err
	}
	defer trail.Close()

	notifier := buildNotifier(cfg.Notifications)

	store := state.NewStore(stateFilePath)
	snap, restored, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load saved state: %w", err)
	}

	stop := risk.NewEmergencyStop()

	var (
		runtimes     []*strategyRuntime
		runners      []scheduler.Runner
		books        []*position.Book
		copyDetector *strategy.CopyTradeDetector
	)

	if cfg.CopyTrade.Enabled {
		ct := cfg.CopyTrade
		rt, err := newRuntime(string(strategy.OriginCopyTrade), risk.Limits{
			DailyLossLimit:   ct.DailyLossLimit,
			WeeklyLossLimit:  ct.WeeklyLossLimit,
			MaxOpenPositions: ct.MaxOpenPositions,
		}, stop)
		if err != nil {
			return err
		}
		defer rt.log.Close()
		restorePositions(rt, snap)

		detector := strategy.NewCopyTradeDetector(ct, client, rt.book, trail, rt.log)
		detector.RestoreLastSeen(snap.TargetPositions)
		copyDetector = detector

		gate := risk.NewGate(rt.name, rt.ledger, rt.book,
			risk.SizeBounds{Min: ct.MinTradeSize, Max: ct.MaxTradeSize}, trail)
		gate.SeedProcessed(rt.book.DedupKeys())

		coord := executor.NewCoordinator(rt.name, client, rt.book, rt.ledger, trail,
			rt.log, notifier, ct.StopLossPct, 0)

		runtimes = append(runtimes, rt)
		books = append(books, rt.book)
		runners = append(runners,
			bot.NewStrategyBot(ct.PollInterval, detector, gate, coord, rt.book, client, rt.log, health))
	}

	if cfg.HighProb.Enabled {
		hp := cfg.HighProb
		rt, err := newRuntime(string(strategy.OriginHighProb), risk.Limits{
			DailyLossLimit:   hp.DailyLossLimit,
			WeeklyLossLimit:  hp.WeeklyLossLimit,
			MaxOpenPositions: hp.MaxOpenPositions,
		}, stop)
		if err != nil {
			return err
		}
		defer rt.log.Close()
		restorePositions(rt, snap)

		detector := strategy.NewHighProbDetector(hp, client, rt.book, trail, rt.log)

		gate := risk.NewGate(rt.name, rt.ledger, rt.book,
			risk.SizeBounds{Min: 1, Max: hp.MaxPositionSize}, trail)
		gate.SeedProcessed(rt.book.DedupKeys())

		coord := executor.NewCoordinator(rt.name, client, rt.book, rt.ledger, trail,
			rt.log, notifier, hp.StopLossPct, hp.TakeProfitPct)

		runtimes = append(runtimes, rt)
		books = append(books, rt.book)
		runners = append(runners,
			bot.NewStrategyBot(hp.ScanInterval, detector, gate, coord, rt.book, client, rt.log, health))
	}

	saver := bot.NewStateSaver(store, books, copyDetector, 30*time.Second)
	runners = append(runners, saver)

	startMetricsServers(cfg.Monitoring, health, emergencyHandler(stop, trail, notifier, runtimes))
	printStartupSummary(cfg, client.Live(), restored, len(snap.OpenPositions))

	if cfg.Notifications != nil && cfg.Notifications.Enabled {
		mode := "paper"
		if client.Live() {
			mode = "live"
		}
		if err := notifier.SendAlert("info", fmt.Sprintf("Polymarket bot started in %s mode", mode)); err != nil {
			log.Printf("Failed to send startup notification: %v", err)
		}
	}

	sched := scheduler.New(func(runner string, err error) {
		log.Printf("[%s] tick error: %v", runner, err)
		health.AddError(fmt.Sprintf("%s: %v", runner, err))
	}, runners...)

	sched.Start(ctx)
	log.Println("Bot started; press Ctrl+C to stop")

	<-ctx.Done()
	log.Println("Shutting down...")
	sched.Stop()

	if err := saver.Flush(); err != nil {
		log.Printf("Failed to save final state: %v", err)
	}

	if exportOnExit && cfg.Audit.ExportDir != "" {
		exportTrail(trail, cfg.Audit.ExportDir)
	}

	printSessionSummary(runtimes)
	return nil
}

func newRuntime(name string, limits risk.Limits, stop *risk.EmergencyStop) (*strategyRuntime, error) {
	strategyLog, err := logger.NewLogger(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s logger: %w", name, err)
	}
	return &strategyRuntime{
		name:   name,
		book:   position.NewBook(),
		ledger: risk.NewLedger(limits, stop),
		log:    strategyLog,
	}, nil
}

// restorePositions reloads this strategy's open positions from the snapshot
func restorePositions(rt *strategyRuntime, snap state.Snapshot) {
	for _, pos := range snap.OpenPositions {
		if pos.Strategy != rt.name {
			continue
		}
		if err := rt.book.Restore(pos); err != nil {
			log.Printf("Skipping unrestorable position %s: %v", pos.ID, err)
			continue
		}
		rt.log.Info("Restored open position %s (%s %s $%.2f)", pos.ID, pos.MarketID, pos.Side, pos.Size)
	}
	monitoring.UpdateOpenPositions(rt.name, rt.book.OpenCount())
}

func openTrail(cfg config.AuditConfig) (audit.Trail, error) {
	if cfg.DatabasePath == "" {
		return audit.NewMemoryTrail(), nil
	}
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return audit.NewSQLiteTrail(cfg.DatabasePath)
}

func buildNotifier(cfg *config.NotificationConfig) notifications.Notifier {
	if cfg == nil || !cfg.Enabled || cfg.TelegramToken == "" {
		return notifications.NoopNotifier{}
	}
	return notifications.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChat)
}

// emergencyHandler lets an operator halt all new entries with a single POST.
// There is no un-trigger endpoint; resuming requires a restart.
func emergencyHandler(stop *risk.EmergencyStop, trail audit.Trail, notifier notifications.Notifier, runtimes []*strategyRuntime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		stop.Trigger()
		for _, rt := range runtimes {
			trail.Append(audit.Record{
				Strategy: rt.name,
				Action:   audit.ActionEmergencyStop,
				Reason:   "operator emergency stop",
			})
			rt.log.Warning("EMERGENCY STOP triggered; new entries halted")
		}
		log.Println("EMERGENCY STOP triggered; new entries halted, open positions stay under exit scan")
		notifier.SendAlert("error", "EMERGENCY STOP triggered. All new entries halted.")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"emergency_stop":true}`)
	}
}

func startMetricsServers(cfg config.MonitoringConfig, health *monitoring.HealthChecker, emergency http.HandlerFunc) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", monitoring.MetricsHandler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.PrometheusPort)
		if err := http.ListenAndServe(addr, metricsMux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", health)
	healthMux.Handle("/emergency", emergency)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HealthPort)
		if err := http.ListenAndServe(addr, healthMux); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()
}

func exportTrail(trail audit.Trail, dir string) {
	stamp := time.Now().Format("20060102_150405")

	csvPath := filepath.Join(dir, fmt.Sprintf("audit_%s.csv", stamp))
	if err := audit.ExportCSVFile(trail, csvPath); err != nil {
		log.Printf("Failed to export audit CSV: %v", err)
	} else {
		log.Printf("Audit trail exported to %s", csvPath)
	}

	xlsxPath := filepath.Join(dir, fmt.Sprintf("audit_%s.xlsx", stamp))
	if err := audit.ExportXLSX(trail, xlsxPath); err != nil {
		log.Printf("Failed to export audit workbook: %v", err)
	} else {
		log.Printf("Audit trail exported to %s", xlsxPath)
	}
}

func printStartupSummary(cfg *config.BotConfig, live, restored bool, restoredPositions int) {
	mode := "PAPER"
	if live {
		mode = "LIVE"
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Polymarket Trading Bot")
	t.AppendRows([]table.Row{
		{"Mode", mode},
		{"Copy trading", onOff(cfg.CopyTrade.Enabled)},
		{"High probability", onOff(cfg.HighProb.Enabled)},
	})
	if cfg.CopyTrade.Enabled {
		t.AppendRows([]table.Row{
			{"Target trader", cfg.CopyTrade.TargetTraderAddress},
			{"Copy ratio", fmt.Sprintf("%.2f", cfg.CopyTrade.CopyRatio)},
			{"Poll interval", cfg.CopyTrade.PollInterval},
		})
	}
	if cfg.HighProb.Enabled {
		t.AppendRows([]table.Row{
			{"Entry range", fmt.Sprintf("$%.2f - $%.2f", cfg.HighProb.EntryThresholdMin, cfg.HighProb.EntryThresholdMax)},
			{"Mean reversion", onOff(cfg.HighProb.MeanReversion)},
			{"Scan interval", cfg.HighProb.ScanInterval},
		})
	}
	t.AppendRows([]table.Row{
		{"Metrics port", cfg.Monitoring.PrometheusPort},
		{"Health port", cfg.Monitoring.HealthPort},
	})
	if restored {
		t.AppendRow(table.Row{"Restored positions", restoredPositions})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func printSessionSummary(runtimes []*strategyRuntime) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Session Summary")
	t.AppendHeader(table.Row{"Strategy", "Open", "Closed", "Daily Loss", "Weekly Loss", "Realized PnL"})
	for _, rt := range runtimes {
		s := rt.ledger.Snapshot()
		t.AppendRow(table.Row{
			rt.name,
			rt.book.OpenCount(),
			len(rt.book.ClosedPositions()),
			fmt.Sprintf("$%.2f", s.DailyLoss),
			fmt.Sprintf("$%.2f", s.WeeklyLoss),
			fmt.Sprintf("$%.2f", s.RealizedPnL),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
