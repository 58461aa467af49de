package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"shorts-bot/bot"
	"shorts-bot/clipper"
	"shorts-bot/config"
	"shorts-bot/dedup"
	"shorts-bot/namer"
	"shorts-bot/pipeline"
	"shorts-bot/policy"
	"shorts-bot/publisher"
	"shorts-bot/quota"
	"shorts-bot/scheduler"
	"shorts-bot/storage"
	"shorts-bot/trending"
	"shorts-bot/video"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("starting shorts bot")

	// Secrets come from the environment; a local .env is optional.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded", "path", configPath)

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database initialized", "path", cfg.DBPath)

	tgBot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		slog.Error("failed to initialize Telegram bot", "error", err)
		os.Exit(1)
	}
	slog.Info("telegram bot initialized", "username", tgBot.Self.UserName)

	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := trending.NewClient(ctx, cfg.YouTubeAPIKey,
		cfg.Trending.Regions, cfg.Trending.PerRegionLimit, cfg.Trending.CategoryIDs,
		trending.WithRateLimit(cfg.Trending.RequestsPerSecond))
	if err != nil {
		slog.Error("failed to initialize trending client", "error", err)
		os.Exit(1)
	}

	clip, err := clipper.New(cfg.Clipper.WorkDir, cfg.Clipper.MaxShortSecs,
		cfg.Clipper.YTDLPPath, cfg.Clipper.FFmpegPath)
	if err != nil {
		slog.Error("failed to initialize clipper", "error", err)
		os.Exit(1)
	}

	uploader, err := publisher.NewUploader(ctx, publisher.Credentials{
		ClientID:     cfg.YouTubeClientID,
		ClientSecret: cfg.YouTubeClientSecret,
		RefreshToken: cfg.YouTubeRefreshToken,
	})
	if err != nil {
		slog.Error("failed to initialize uploader", "error", err)
		os.Exit(1)
	}

	pol := policy.New(
		cfg.Policy.MinViews,
		cfg.Policy.MinDurationSecs,
		cfg.Policy.MaxDurationSecs,
		cfg.Policy.MinChannelNameLength,
		cfg.Policy.ForbiddenKeywords,
		cfg.Policy.ChannelBlacklist,
		cfg.Policy.SuspiciousTokens,
	)

	ledger := dedup.NewLedger(db)
	tracker := quota.NewTracker(db, cfg.Quota.MaxPerCategory, cfg.Quota.MaxTotal, sched.Location())

	generator := namer.NewGroqGenerator(cfg.GroqAPIKey, namer.WithModel(cfg.GroqModel))
	titler := namer.NewNamer(generator, namer.NewTemplateGenerator(), db, cfg.Namer.TitleMaxChars)

	runner := pipeline.NewRunner(
		source, pol, ledger, tracker,
		clip, clip, titler, uploader,
		&titleRegistrar{db: db},
		pipeline.WithCandidateLimit(cfg.Trending.CandidateLimit),
	)

	app := &App{
		cfg:     cfg,
		db:      db,
		tgBot:   tgBot,
		runner:  runner,
		tracker: tracker,
		sched:   sched,
	}
	app.loadState(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := app.schedule(ctx); err != nil {
		slog.Error("failed to schedule upload slots", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	go app.randomTriggerLoop(ctx)

	slog.Info("starting bot polling")
	app.run(ctx)
	slog.Info("bot stopped")
}

// App holds all application dependencies. There is no module-level
// state: everything status reporting needs flows through here.
type App struct {
	cfg     *config.Config
	db      *storage.DB
	tgBot   *tgbotapi.BotAPI
	runner  *pipeline.Runner
	tracker *quota.Tracker
	sched   *scheduler.Scheduler

	mu      sync.Mutex
	chatID  int64
	running bool

	// acquireMu serializes acquisitions: slots, the random trigger,
	// and manual commands must never overlap.
	acquireMu sync.Mutex
}

func (a *App) loadState(ctx context.Context) {
	a.chatID = a.cfg.ChatID
	if a.chatID == 0 {
		if stored, err := a.db.GetSetting(ctx, "chat_id"); err == nil {
			if id, err := strconv.ParseInt(stored, 10, 64); err == nil {
				a.chatID = id
			}
		}
	}

	a.running = true
	if paused, err := a.db.GetSetting(ctx, "automation_paused"); err == nil && paused == "1" {
		a.running = false
	}
}

func (a *App) schedule(ctx context.Context) error {
	if err := a.sched.AddDailySlots(a.cfg.Schedule.TechSlots, func() {
		a.scheduledAcquire(ctx, video.CategoryTech)
	}); err != nil {
		return err
	}
	if err := a.sched.AddDailySlots(a.cfg.Schedule.EntertainmentSlots, func() {
		a.scheduledAcquire(ctx, video.CategoryEntertainment)
	}); err != nil {
		return err
	}
	// Midnight rollover is observational only; quota keys roll over on
	// their own.
	return a.sched.AddDaily("00:00", a.tracker.ResetIfNewDay)
}

func (a *App) scheduledAcquire(ctx context.Context, category video.Category) {
	if ctx.Err() != nil {
		return
	}
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()
	if !running {
		slog.Info("automation paused, skipping slot", "category", category)
		return
	}
	a.acquire(ctx, category)
}

// acquire runs one acquisition to completion and notifies the chat of
// the outcome. Storage failures are logged for the operator; the next
// scheduled slot acts as the retry.
func (a *App) acquire(ctx context.Context, category video.Category) {
	a.acquireMu.Lock()
	defer a.acquireMu.Unlock()

	result, err := a.runner.AcquireOne(ctx, category)
	if err != nil {
		slog.Error("acquisition failed", "category", category, "error", err)
		a.notify(ctx, "Internal error during "+string(category)+" acquisition, will retry next slot.")
		return
	}

	switch result.Outcome {
	case pipeline.OutcomePublished:
		st, stErr := bot.BuildStatus(ctx, a.tracker, a.db, a.isRunning())
		if stErr != nil {
			slog.Warn("failed to build status for notification", "error", stErr)
			st = &bot.Status{MaxTotal: a.tracker.MaxTotal()}
		}
		a.notify(ctx, bot.FormatUploadNotice(category, result.Title, result.URL, st, time.Now()))
	case pipeline.OutcomeQuotaReached:
		slog.Info("quota reached", "category", category)
	case pipeline.OutcomeExhausted:
		slog.Info("no eligible candidates", "category", category)
	}
}

// randomTriggerLoop occasionally fires an extra acquisition while
// under quota, mirroring the production bot's behavior.
func (a *App) randomTriggerLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !a.isRunning() || rand.Float64() >= a.cfg.Schedule.RandomUploadChance {
			continue
		}

		category := video.Categories[rand.Intn(len(video.Categories))]
		remaining, err := a.tracker.Remaining(ctx, category)
		if err != nil {
			slog.Warn("random trigger quota check failed", "error", err)
			continue
		}
		if remaining <= 0 {
			continue
		}

		slog.Info("random upload triggered", "category", category)
		a.acquire(ctx, category)
	}
}

func (a *App) isRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *App) setRunning(ctx context.Context, running bool) {
	a.mu.Lock()
	a.running = running
	a.mu.Unlock()

	value := "0"
	if !running {
		value = "1"
	}
	if err := a.db.SetSetting(ctx, "automation_paused", value); err != nil {
		slog.Warn("failed to persist automation state", "error", err)
	}
}

func (a *App) run(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := a.tgBot.GetUpdatesChan(updateCfg)

	for {
		select {
		case <-ctx.Done():
			a.tgBot.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		}
	}
}

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	a.mu.Lock()
	a.chatID = chatID
	a.mu.Unlock()
	if err := a.db.SetSetting(ctx, "chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		slog.Warn("failed to save chat_id", "error", err)
	}

	cmd := bot.ParseCommand(msg.Text)
	slog.Info("received command", "chat_id", chatID, "command", cmd.Name)

	switch cmd.Name {
	case bot.CmdStart:
		a.setRunning(ctx, true)
		a.notify(ctx, "Automation started.\n\n"+bot.HelpText)
	case bot.CmdStop:
		// Stop only prevents future triggers; an acquisition already
		// in flight runs to completion.
		a.setRunning(ctx, false)
		a.notify(ctx, "Automation stopped. In-flight uploads finish normally.")
	case bot.CmdStatus:
		st, err := bot.BuildStatus(ctx, a.tracker, a.db, a.isRunning())
		if err != nil {
			slog.Warn("failed to build status", "error", err)
			a.notify(ctx, "Failed to read status.")
			return
		}
		a.notify(ctx, bot.FormatStatus(st))
	case bot.CmdRecent:
		records, err := a.db.RecentProcessed(ctx, 10)
		if err != nil {
			slog.Warn("failed to list recent uploads", "error", err)
			a.notify(ctx, "Failed to read recent uploads.")
			return
		}
		a.notify(ctx, bot.FormatRecent(records))
	case bot.CmdUpload:
		a.notify(ctx, "Starting "+string(cmd.Category)+" upload...")
		go a.acquire(ctx, cmd.Category)
	default:
		a.notify(ctx, bot.HelpText)
	}
}

func (a *App) notify(_ context.Context, text string) {
	a.mu.Lock()
	chatID := a.chatID
	a.mu.Unlock()
	if chatID == 0 {
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := a.tgBot.Send(msg); err != nil {
		slog.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

// titleRegistrar adapts the storage layer to the pipeline's title
// registration interface.
type titleRegistrar struct {
	db *storage.DB
}

func (t *titleRegistrar) RegisterTitle(ctx context.Context, title string) error {
	return t.db.InsertTitle(ctx, namer.TitleKey(title), title)
}
