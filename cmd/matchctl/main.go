// Command matchctl is the Matchwatch operator CLI.
//
// Usage:
//
//	matchctl poll
//	matchctl evaluate --file matches.json --now 2026-10-15T13:45:00Z
//	matchctl sweep
//	matchctl push --title "Toss" --body "India won the toss"
//	matchctl notify --reason "fixture moved"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/matchwatch/internal/app"
	"github.com/albapepper/matchwatch/internal/config"
	"github.com/albapepper/matchwatch/internal/dedup"
	"github.com/albapepper/matchwatch/internal/listener"
	"github.com/albapepper/matchwatch/internal/maintenance"
	"github.com/albapepper/matchwatch/internal/match"
	"github.com/albapepper/matchwatch/internal/notifications"
	"github.com/albapepper/matchwatch/internal/poller"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "matchctl",
		Short:        "Matchwatch operator CLI",
		SilenceUsage: true,
	}

	root.AddCommand(pollCmd())
	root.AddCommand(evaluateCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(pushCmd())
	root.AddCommand(notifyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// poll command
// --------------------------------------------------------------------------

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one poll cycle against the configured dedup store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, store *app.Store) error {
				sender, claims := pollTargets(app.NewTelegram(cfg, logger), store)
				engine := app.NewEngine(cfg, claims, sender, nil, logger)
				p := poller.New(app.NewClient(cfg, logger), nil, engine, logger)

				report, err := p.PollOnce(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			})
		},
	}
}

// --------------------------------------------------------------------------
// evaluate command
// --------------------------------------------------------------------------

func evaluateCmd() *cobra.Command {
	var (
		file      string
		nowFlag   string
		zone      string
		liveAfter time.Duration
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Show which notifications are due for a feed file, without sending",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if nowFlag != "" {
				t, err := time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				now = t
			}
			loc, err := time.LoadLocation(zone)
			if err != nil {
				return fmt.Errorf("--timezone: %w", err)
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			raw, err := decodeFeed(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}

			records, skipped := match.NewParser(loc, match.DefaultDuration).ParseAll(raw)
			for _, e := range skipped {
				logger.Warn("Skipping match record", "error", e)
			}

			engine := notifications.NewEngine(dedup.NewMemory(), nil,
				notifications.Options{Windows: notifications.Windows{LiveAfter: liveAfter}}, logger)
			due := engine.Evaluate(records, now)

			out := make([]map[string]string, 0, len(due))
			for _, d := range due {
				out = append(out, map[string]string{
					"milestone": d.Milestone.String(),
					"title":     d.Milestone.Title(),
					"body":      d.Milestone.Body(d.Match),
					"key":       d.Key.String(),
				})
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Feed JSON file ({\"matches\": [...]} or a bare array)")
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluation instant, RFC3339 (default: current time)")
	cmd.Flags().StringVar(&zone, "timezone", "UTC", "Zone for MatchTime values without an offset")
	cmd.Flags().DurationVar(&liveAfter, "live-after", 0, "How far before start the LIVE window opens")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// decodeFeed accepts the feed's object form or a bare array of records.
func decodeFeed(data []byte) ([]json.RawMessage, error) {
	var feed struct {
		Matches []json.RawMessage `json:"matches"`
	}
	if err := json.Unmarshal(data, &feed); err == nil && feed.Matches != nil {
		return feed.Matches, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// --------------------------------------------------------------------------
// sweep command
// --------------------------------------------------------------------------

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired dedup records now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, store *app.Store) error {
				engine := app.NewEngine(cfg, store, nil, nil, logger)
				removed, err := maintenance.RunSweep(ctx, engine, time.Now(), logger)
				if err != nil {
					return err
				}
				remaining, err := store.Len(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]int{"removed": removed, "remaining": remaining})
			})
		},
	}
}

// --------------------------------------------------------------------------
// push command
// --------------------------------------------------------------------------

func pushCmd() *cobra.Command {
	var msg notifications.PushMessage
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send a push notification through the configured surfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(func(ctx context.Context, cfg *config.Config) error {
				engine := app.NewEngine(cfg, dedup.NewMemory(), cliSender(cfg), nil, logger)
				n, err := engine.Push(ctx, msg)
				if err != nil {
					return err
				}
				return printJSON(cmd, n)
			})
		},
	}
	cmd.Flags().StringVar(&msg.Notification.Title, "title", "", "Notification title")
	cmd.Flags().StringVar(&msg.Notification.Body, "body", "", "Notification body")
	cmd.Flags().StringVar(&msg.Data.Tag, "tag", "", "Notification tag")
	cmd.Flags().StringVar(&msg.Data.URL, "url", "", "URL opened on click")
	return cmd
}

// --------------------------------------------------------------------------
// notify command
// --------------------------------------------------------------------------

func notifyCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Signal running servers to poll now (Postgres backend only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, store *app.Store) error {
				if store.Pool == nil {
					return fmt.Errorf("notify requires DEDUP_BACKEND=postgres")
				}
				payload, err := json.Marshal(listener.SyncEvent{Reason: reason, Source: "matchctl"})
				if err != nil {
					return err
				}
				if err := store.Pool.Notify(ctx, cfg.SyncChannel, string(payload)); err != nil {
					return err
				}
				logger.Info("Sync signal sent", "channel", cfg.SyncChannel)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "Reason recorded with the signal")
	return cmd
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

// withConfig loads config and calls fn without touching the dedup store.
func withConfig(fn func(ctx context.Context, cfg *config.Config) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = app.NewLogger(os.Stderr, cfg.LogLevel, false)

	return fn(ctx, cfg)
}

// run loads config, opens the dedup store and calls fn.
func run(fn func(ctx context.Context, cfg *config.Config, store *app.Store) error) error {
	return withConfig(func(ctx context.Context, cfg *config.Config) error {
		store, err := app.OpenStore(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("open dedup store: %w", err)
		}
		defer store.Close()

		return fn(ctx, cfg, store)
	})
}

// pollTargets picks the sender and dedup store for a CLI poll cycle. A claim
// lands in the shared store only when a surface that reaches users (tg) is
// available; otherwise the cycle only logs and claims in a throwaway store,
// leaving the milestone for the server to display.
func pollTargets(tg notifications.Sender, shared dedup.Store) (notifications.Sender, dedup.Store) {
	if tg == nil {
		logger.Warn("No display surface configured, poll will not mark notifications as sent")
		return notifications.NewLogSender(logger), dedup.NewMemory()
	}
	return tg, shared
}

// cliSender logs every notification and forwards to Telegram when configured.
// There are no views outside the server. Used for pushes, which are never
// deduplicated.
func cliSender(cfg *config.Config) notifications.Sender {
	senders := []notifications.Sender{notifications.NewLogSender(logger)}
	if tg := app.NewTelegram(cfg, logger); tg != nil {
		senders = append(senders, tg)
	}
	return notifications.NewMultiSender(logger, senders...)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
