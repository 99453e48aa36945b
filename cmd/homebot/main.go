package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"homebot/internal/agent"
	"homebot/internal/agent/anthropic"
	"homebot/internal/agent/openai"
	"homebot/internal/config"
	"homebot/internal/cron"
	"homebot/internal/delivery"
	"homebot/internal/execution"
	"homebot/internal/logger"
	"homebot/internal/memory"
	"homebot/internal/prompts"
	"homebot/internal/ratelimit"
	"homebot/internal/tools"
)

const consoleChat = "console"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "homebot:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg       config.Config
	router    *agent.Router
	tracker   *ratelimit.Tracker
	runtime   *tools.Runtime
	facts     *memory.FactStore
	history   *memory.HistoryStore
	scheduler *cron.Scheduler
	sender    delivery.Sender
	log       *logger.LogEntry
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to config.toml (default: ~/.homebot/config.toml)")
		execPrompt = flag.String("exec", "", "run one prompt and exit")
		chat       = flag.String("chat", consoleChat, "chat target name for history and delivery")
	)
	flag.Parse()

	// .env sits next to the binary or in the working directory; missing
	// is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger.Configure()
	closer, _, err := logger.SetupFile(cfg.LogPath())
	if err == nil {
		defer closer.Close()
	}
	log := logger.Named("main")

	a, err := buildApp(cfg, *chat)
	if err != nil {
		return err
	}
	a.log = log

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.scheduler.Start(ctx, func(ctx context.Context, job cron.Job) {
		a.handleScheduled(ctx, job)
	})

	if *execPrompt != "" {
		return a.handleOnce(ctx, *chat, *execPrompt)
	}
	return a.console(ctx, *chat)
}

func buildApp(cfg config.Config, chat string) (*app, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, err
	}

	facts := &memory.FactStore{Path: cfg.FactsPath()}
	history := &memory.HistoryStore{Dir: cfg.HistoryDir(), Limit: cfg.HistoryLimit}
	tracker := ratelimit.NewTracker(cfg.RateLimitPath())

	scheduler, err := cron.NewScheduler(cfg.CronPath())
	if err != nil {
		return nil, err
	}

	sender := delivery.ChunkedSender{
		Inner: &delivery.WriterSender{W: os.Stdout},
		Limit: cfg.MessageLimit,
	}

	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	guard := tools.DefaultGuard(root, cfg.StateDir)
	registry := tools.BuildCatalog(tools.CatalogDeps{
		Guard:       guard,
		Shell:       tools.ShellRunner{Workdir: root},
		Facts:       facts,
		History:     history,
		Scheduler:   scheduler,
		Sender:      sender,
		DefaultChat: chat,
		OnStatus: func(status string) {
			logger.Named("status").Info(status)
		},
	})
	runtime := tools.NewRuntime(registry, cfg.RequestTimeoutDuration())

	router, err := buildRouter(cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		router:    router,
		tracker:   tracker,
		runtime:   runtime,
		facts:     facts,
		history:   history,
		scheduler: scheduler,
		sender:    sender,
	}, nil
}

// buildRouter wires whichever providers have keys. With no keys at all
// the echo fallback takes the utility slot so the bot stays usable for
// plumbing checks.
func buildRouter(cfg config.Config) (*agent.Router, error) {
	var primary, utility agent.ModelClient

	if cfg.AnthropicKey != "" {
		c, err := anthropic.New(anthropic.Options{APIKey: cfg.AnthropicKey, Model: cfg.PrimaryModel})
		if err != nil {
			return nil, err
		}
		primary = c
	}
	if cfg.OpenAIKey != "" {
		c, err := openai.New(openai.Options{APIKey: cfg.OpenAIKey, BaseURL: cfg.UtilityBaseURL, Model: cfg.UtilityModel})
		if err != nil {
			return nil, err
		}
		utility = c
	}
	if primary == nil && utility == nil {
		utility = agent.EchoClient{Prefix: "(no provider configured) "}
	}

	mode := agent.Mode(cfg.Mode)
	if mode == agent.ModePrimary && primary == nil {
		mode = agent.ModeUtility
	}
	return agent.NewRouter(primary, utility, mode), nil
}

// process runs one request through the agent loop and returns the reply.
func (a *app) process(ctx context.Context, chat, text string) (string, error) {
	client, err := a.router.Active()
	if err != nil {
		return "", err
	}

	past, err := a.history.Recent(chat, a.cfg.HistoryLimit)
	if err != nil {
		a.log.WithError(err).Warn("history unavailable")
	}
	msgs := make([]agent.Message, 0, len(past))
	for _, e := range past {
		switch e.Role {
		case "assistant":
			msgs = append(msgs, agent.Assistant(e.Content))
		default:
			msgs = append(msgs, agent.User(e.Content))
		}
	}

	engine := execution.NewEngine(execution.Options{
		Client:         client,
		Runtime:        a.runtime,
		Tracker:        a.tracker,
		EnableTools:    a.cfg.EnableTools,
		RequestTimeout: a.cfg.RequestTimeoutDuration(),
	})

	system := prompts.Load(filepath.Join(a.cfg.StateDir, "instructions.md"), time.Now())
	reply, diag, err := engine.Run(ctx, system, msgs, text)
	if err != nil {
		var limited *ratelimit.LimitedError
		if errors.As(err, &limited) {
			return fmt.Sprintf("The %s provider is rate limited right now. Try again in about %s.",
				limited.Provider, limited.Remaining.Round(time.Minute)), nil
		}
		return "", err
	}
	a.log.WithField("diag", diag.Describe()).Debug("request complete")

	if err := a.history.Append(chat, "user", text); err != nil {
		a.log.WithError(err).Warn("failed to record user message")
	}
	if err := a.history.Append(chat, "assistant", reply); err != nil {
		a.log.WithError(err).Warn("failed to record reply")
	}
	return reply, nil
}

func (a *app) handleOnce(ctx context.Context, chat, text string) error {
	reply, err := a.process(ctx, chat, text)
	if err != nil {
		return err
	}
	return a.sender.Send("", reply)
}

// handleScheduled feeds a fired job's message through the normal loop
// and delivers the result to the job's target.
func (a *app) handleScheduled(ctx context.Context, job cron.Job) {
	target := job.Target
	if target == "" {
		target = consoleChat
	}
	reply, err := a.process(ctx, target, job.Message)
	if err != nil {
		a.log.WithError(err).WithField("job", job.Name).Warn("scheduled run failed")
		return
	}
	if err := a.sender.Send(target, reply); err != nil {
		a.log.WithError(err).Warn("scheduled delivery failed")
	}
}

func (a *app) console(ctx context.Context, chat string) error {
	fmt.Printf("homebot ready (mode: %s). /mode toggles providers, /quit exits.\n", a.router.Mode())
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case line == "/mode":
			fmt.Printf("mode: %s\n", a.router.Toggle())
			continue
		case line == "/tasks":
			for _, job := range a.scheduler.List() {
				fmt.Printf("%s  %s\n", job.ID, job.Name)
			}
			continue
		}

		reply, err := a.process(ctx, chat, line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if err := a.sender.Send("", reply); err != nil {
			return err
		}
	}
}
