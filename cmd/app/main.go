package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/remote"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/syncer"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// stack bundles the pieces every CLI command works with.
type stack struct {
	cfg    *internal.Config
	fs     *storage.FS
	store  *store.Store
	db     *index.DB
	logger *slog.Logger
}

func (s *stack) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// newSyncer builds a syncer from the stack, failing when no remote
// connection is configured.
func (s *stack) newSyncer() (*syncer.Syncer, error) {
	if !s.cfg.Remote.Configured() {
		return nil, fmt.Errorf("remote is not configured: set remote.base_url in the config file")
	}
	client := remote.NewConfluence(s.cfg.Remote.BaseURL, s.cfg.Remote.Username, s.cfg.Remote.APIToken)
	return syncer.New(client, s.store, s.fs, s.db, s.cfg.Remote.ConnectionID, s.logger), nil
}

func openStack(cmd *cli.Command) (*stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	fs, err := storage.NewFS(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	st, err := store.New(fs)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	return &stack{cfg: cfg, fs: fs, store: st, db: db, logger: logger}, nil
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	pageURL := cmd.String("url")
	if (id == "") == (pageURL == "") {
		return fmt.Errorf("exactly one of --id or --url is required")
	}

	s, err := openStack(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	sync, err := s.newSyncer()
	if err != nil {
		return err
	}

	var (
		meta    *store.DocumentMetadata
		outcome syncer.Outcome
	)
	if id != "" {
		meta, outcome, err = sync.Fetch(ctx, id, cmd.String("category"))
	} else {
		meta, outcome, err = sync.FetchURL(ctx, pageURL, cmd.String("category"))
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s (v%d)\n", outcome, meta.RelativePath, meta.Version)
	return nil
}

func syncAction(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	all := cmd.Bool("all")
	if (id == "") == !all {
		return fmt.Errorf("exactly one of --all or --id is required")
	}

	s, err := openStack(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	sync, err := s.newSyncer()
	if err != nil {
		return err
	}

	if id != "" {
		meta, outcome, err := sync.SyncOne(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (v%d)\n", outcome, meta.RelativePath, meta.Version)
		return nil
	}

	sum := sync.SyncAll(ctx, cmd.String("category"))
	for _, r := range sum.Results {
		if r.Error != "" {
			fmt.Printf("%-8s %s (%s): %s\n", r.Outcome, r.Path, r.RemoteID, r.Error)
		} else {
			fmt.Printf("%-8s %s (%s)\n", r.Outcome, r.Path, r.RemoteID)
		}
	}
	fmt.Printf("synced %d, skipped %d, failed %d\n", sum.Synced, sum.Skipped, sum.Failed)
	if sum.Cancelled {
		fmt.Println("cancelled before completion")
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d document(s) failed to sync", sum.Failed)
	}
	return nil
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openStack(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	metas := s.store.List(cmd.String("category"))
	if len(metas) == 0 {
		fmt.Println("no documents tracked")
		return nil
	}
	for _, m := range metas {
		fmt.Printf("%s\t%s\tv%d\t%s\n", m.LocalID, m.RelativePath, m.Version, m.Title)
	}
	return nil
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	localID := cmd.Args().First()
	if localID == "" {
		return fmt.Errorf("usage: ansuz delete <local-id>")
	}

	s, err := openStack(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	meta := findByLocalID(s.store, localID)
	if meta == nil {
		return fmt.Errorf("local id %s is not tracked", localID)
	}
	if err := s.store.Delete(localID); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(meta.RelativePath); err != nil {
		s.logger.Warn("index delete failed", slog.String("path", meta.RelativePath), slog.String("error", err.Error()))
	}
	fmt.Printf("deleted %s\n", meta.RelativePath)
	return nil
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("usage: ansuz search <query>")
	}

	s, err := openStack(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := index.Reindex(s.db, s.store, s.fs, s.logger); err != nil {
		s.logger.Warn("reindex failed", slog.String("error", err.Error()))
	}

	results, err := s.db.Search(query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(out))
	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openStack(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := index.Reindex(s.db, s.store, s.fs, s.logger); err != nil {
		s.logger.Warn("reindex failed", slog.String("error", err.Error()))
	}

	var sync *syncer.Syncer
	if s.cfg.Remote.Configured() {
		sync, err = s.newSyncer()
		if err != nil {
			return err
		}
	}

	srv := mcpserver.New(s.store, s.fs, s.db, sync)
	return srv.ServeStdio()
}

func findByLocalID(st *store.Store, localID string) *store.DocumentMetadata {
	for _, m := range st.List("") {
		if m.LocalID == localID {
			return &m
		}
	}
	return nil
}

func main() {
	categoryFlag := &cli.StringFlag{
		Name:  "category",
		Usage: "Sub-directory of the sync root",
	}

	cmd := &cli.Command{
		Name:  "ansuz",
		Usage: "Fetch wiki pages as Markdown and keep local copies in sync",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Fetch a page by id or URL and save it locally",
				Action: fetchAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Remote page id"},
					&cli.StringFlag{Name: "url", Usage: "Remote page URL"},
					categoryFlag,
				},
			},
			{
				Name:   "sync",
				Usage:  "Re-fetch tracked pages and refresh stale local copies",
				Action: syncAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Sync every tracked page"},
					&cli.StringFlag{Name: "id", Usage: "Sync a single page by remote id"},
					categoryFlag,
				},
			},
			{
				Name:   "list",
				Usage:  "List tracked pages",
				Action: listAction,
				Flags:  []cli.Flag{categoryFlag},
			},
			{
				Name:      "delete",
				Usage:     "Delete a tracked page by local id",
				ArgsUsage: "<local-id>",
				Action:    deleteAction,
			},
			{
				Name:      "search",
				Usage:     "Full-text search across synced pages",
				ArgsUsage: "<query>",
				Action:    searchAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Max results", Value: 20},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server with the file watcher",
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdin/stdout",
				Action: mcpAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
