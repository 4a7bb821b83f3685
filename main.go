package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wfunc/wordgame/config"
	"github.com/wfunc/wordgame/eventlog"
	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/monitor"
	"github.com/wfunc/wordgame/persistence"
	"github.com/wfunc/wordgame/room"
	"github.com/wfunc/wordgame/server"
	"github.com/wfunc/wordgame/services"
	"github.com/wfunc/wordgame/words"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the command line and returns the process exit code. Errors are written to stderr.
func run(args []string, stderr io.Writer) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "wordgame: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	v := config.New()
	var configPath string

	root := &cobra.Command{
		Use:           "wordgame",
		Short:         "Real-time multiplayer word game server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".", "config file or directory containing config.yaml")
	root.PersistentFlags().String("log-level", "info", "log level")
	root.PersistentFlags().String("http-address", ":8765", "websocket and HTTP listen address")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("server.http_address", root.PersistentFlags().Lookup("http-address"))

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(v, configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runServer(cfg)
		},
	}

	seed := &cobra.Command{
		Use:   "seed-words [file]",
		Short: "Load a word list file into the configured word store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(v, configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			path := cfg.Words.File
			if len(args) == 1 {
				path = args[0]
			}
			return seedWords(cmd.Context(), cfg, path)
		},
	}

	root.AddCommand(serve, seed)
	root.RunE = serve.RunE
	return root
}

func setup(v *viper.Viper, configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(v, configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()

	var db persistence.Database
	if cfg.Database.Enabled {
		var err error
		db, err = openDatabase(cfg.Database)
		if err != nil {
			logger.Log.Errorf("Failed to connect to database: %v", err)
			return err
		}
		logger.Log.Info("Database connection successful.")
		defer db.Close()
	}

	store, closeStore, err := openWordStore(ctx, cfg, db)
	if err != nil {
		logger.Log.Errorf("Failed to open word store: %v", err)
		return err
	}
	defer closeStore()

	index, err := words.LoadIndex(ctx, store, nil)
	if err != nil {
		logger.Log.Errorf("Failed to load words: %v", err)
		return err
	}
	logger.Log.Infow("word list loaded", "source", cfg.Words.Source, "words", index.Len())
	picker := words.NewFragmentPicker(index, nil, cfg.Game.MinCandidates, cfg.Game.MaxFragmentAttempts)

	var publisher eventlog.Publisher = eventlog.Nop{}
	if cfg.Kafka.Enabled {
		publisher = eventlog.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Log.Infow("publishing match events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	mon := monitor.NewMonitor("wordgame")
	matches := services.NewMatchService(db, publisher)
	defer matches.Close()

	rooms := room.NewManager(gameSettings(cfg.Game), picker, room.Observers{mon, services.NewMatchRecorder(matches)})

	gameServer, err := server.NewGameServer(cfg.Server, rooms, matches, mon)
	if err != nil {
		logger.Log.Errorf("Failed to create server: %v", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Server stopped: %v", err)
		}
		return err
	case sig := <-sigCh:
		logger.Log.Infof("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return gameServer.Shutdown(shutdownCtx)
}

func gameSettings(g config.GameConfig) room.Settings {
	return room.Settings{
		RoundsPerPlayer: g.RoundsPerPlayer,
		AnswerWindow:    g.AnswerWindow,
		SelectDelay:     g.SelectDelay,
		RevealDelay:     g.RevealDelay,
		MailboxSize:     g.MailboxSize,
	}
}

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sql":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// openWordStore returns the configured word store and a func releasing it.
func openWordStore(ctx context.Context, cfg *config.Config, db persistence.Database) (words.Store, func(), error) {
	switch cfg.Words.Source {
	case "", "file":
		return words.NewFileStore(cfg.Words.File), func() {}, nil
	case "redis":
		rs, err := words.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	case "postgres":
		if db == nil {
			return nil, nil, errors.New("words.source postgres requires database.enabled")
		}
		return db, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown word source %q", cfg.Words.Source)
	}
}

func seedWords(ctx context.Context, cfg *config.Config, path string) error {
	list, err := words.NewFileStore(path).Words(ctx)
	if err != nil {
		return fmt.Errorf("read word file: %w", err)
	}
	list = words.Clean(list)

	var saver words.Saver
	switch cfg.Words.Source {
	case "redis":
		rs, err := words.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rs.Close()
		saver = rs
	case "postgres":
		db, err := openDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		saver = db
	default:
		return fmt.Errorf("seed-words needs words.source redis or postgres, got %q", cfg.Words.Source)
	}

	if err := saver.SaveWords(ctx, list); err != nil {
		return err
	}
	logger.Log.Infow("words seeded", "source", cfg.Words.Source, "words", len(list))
	return nil
}
