// linkflowd is the task reminder daemon. It owns the SQLite store, runs the
// scheduling loop, and can export or import a full backup as a one-shot
// operation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lickton/LinkFlow/internal/commands"
	"github.com/Lickton/LinkFlow/internal/config"
	"github.com/Lickton/LinkFlow/internal/logging"
	"github.com/Lickton/LinkFlow/internal/notify"
	"github.com/Lickton/LinkFlow/internal/scheduler"
	"github.com/Lickton/LinkFlow/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "linkflowd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	exportPath := flag.String("export", "", "export a backup to the given path and exit")
	importPath := flag.String("import", "", "import a backup from the given path before starting")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Console)

	repo, err := storage.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	if err := storage.MigrateUp(repo.DB()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := repo.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}

	var dispatcher notify.Dispatcher
	if cfg.Notify.Command != "" {
		dispatcher, err = notify.NewExecDispatcher(cfg.Notify.Command, cfg.Notify.Args...)
		if err != nil {
			return err
		}
	} else {
		dispatcher = notify.NewLogDispatcher(log)
	}

	engine := scheduler.NewEngine(repo, dispatcher, log, time.Local)
	svc := commands.NewService(repo, engine, log)

	if *exportPath != "" {
		path, err := svc.ExportBackup(ctx, *exportPath)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("backup written, exiting")
		return nil
	}
	if *importPath != "" {
		if _, err := svc.ImportBackup(ctx, *importPath); err != nil {
			return err
		}
	}

	if next, err := svc.DebugNextReminder(ctx); err != nil {
		log.Warn().Err(err).Msg("resolving next reminder at startup failed")
	} else if next == nil {
		log.Info().Msg("no pending reminder")
	} else {
		log.Info().
			Str("task_id", next.TaskID).
			Str("due", next.DueDate+" "+next.DueTime).
			Dur("delay", next.Delay).
			Msg("next reminder")
	}

	engine.Run(ctx)
	return nil
}
