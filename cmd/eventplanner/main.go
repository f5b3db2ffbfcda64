package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventplanner/internal/chat"
	"eventplanner/internal/config"
	"eventplanner/internal/ics"
	appLog "eventplanner/internal/log"
	"eventplanner/internal/store"
	"eventplanner/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	chatURL    string
	importOnce bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file when set.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.chatURL != "" {
		conf.Chat.Endpoint = flags.chatURL
	}

	if lvl, err := appLog.ParseLevel(conf.LogLevel); err != nil {
		appLog.Error("invalid log level; using INFO", err, "log_level", conf.LogLevel)
	} else {
		appLog.SetLevel(lvl)
	}

	appLog.Info("eventplanner starting", "version", version)

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "timezone", conf.Timezone)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"chat_endpoint", conf.Chat.Endpoint,
		"chat_timeout", conf.Chat.Timeout,
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"seed_events", len(conf.Events),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(conf.Events)
	widget := chat.NewWidget(chat.NewClient(conf.Chat.Endpoint, conf.Chat.Timeout), st)

	switch mode := chooseImportMode(flags.importOnce, len(conf.ICS)); mode {
	case importNothing:
		appLog.Warn("nothing to import: no ics sources configured", "config_path", flags.configPath)
		return
	case importOnce, importScheduled:
		importer := newImporter(conf, st, loc)
		if err := importer.Run(ctx); err != nil {
			appLog.Error("initial ics import had errors", err)
		}
		if mode == importOnce {
			appLog.Info("import finished", "events", st.Len())
			return
		}
		stop, err := importer.Schedule(ctx, conf.RefreshCron)
		if err != nil {
			appLog.Error("failed to schedule ics import", err)
			os.Exit(1)
		}
		defer stop()
	}

	if err := web.StartServer(ctx, conf, st, widget); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("eventplanner exiting")
}

type importMode int

const (
	importSkipped   importMode = iota // no sources, serve only
	importScheduled                   // import now, then on the cron schedule
	importOnce                        // import now and exit
	importNothing                     // -import-once without sources: exit
)

func chooseImportMode(once bool, sources int) importMode {
	switch {
	case sources == 0 && once:
		return importNothing
	case sources == 0:
		return importSkipped
	case once:
		return importOnce
	default:
		return importScheduled
	}
}

func newImporter(conf *config.Config, st *store.Store, loc *time.Location) *ics.Importer {
	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL})
	}
	return ics.NewImporter(ics.NewFetcher(conf.CacheDir, nil), st, ics.ImporterConfig{
		Sources:      sources,
		Location:     loc,
		HorizonDays:  conf.HorizonDays,
		BackfillDays: conf.BackfillDays,
	})
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.chatURL, "chat-endpoint", "", "Chat endpoint URL (overrides config if set)")
	flag.BoolVar(&cfg.importOnce, "import-once", false, "Import configured ICS feeds once, log the result, and exit")

	flag.Parse()

	return cfg
}
