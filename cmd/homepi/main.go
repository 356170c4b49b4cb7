package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bkummer/homepi/config"
	"github.com/bkummer/homepi/internal/clients/autoremote"
	"github.com/bkummer/homepi/internal/clients/caldav"
	"github.com/bkummer/homepi/internal/clients/icsfeed"
	"github.com/bkummer/homepi/internal/clients/slack"
	"github.com/bkummer/homepi/internal/clients/telegram"
	"github.com/bkummer/homepi/internal/scheduler"
	"github.com/bkummer/homepi/internal/service"
	"github.com/bkummer/homepi/internal/storage"
)

func main() {
	once := flag.String("once", "", "run a single job (pto or status) and exit")
	listCalendars := flag.Bool("calendars", false, "list CalDAV calendars and exit")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	log.SetLevel(logLevel(cfg.LogLevel))
	logger := log.WithField("app", "homepi")

	if *listCalendars {
		printCalendars(cfg, logger)
		return
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to init storage")
	}
	defer store.Close()

	source := calendarSource(cfg, logger)
	if source == nil {
		logger.Fatal("no calendar source configured")
	}

	var status service.StatusSink
	if cfg.SlackToken != "" {
		status = slack.NewClient(cfg.SlackToken)
	}

	var phone service.Messenger
	if ar := autoremote.NewClient(cfg.AutoRemoteURL, cfg.AutoRemoteKey); ar.IsConfigured() {
		phone = ar
	}

	var notifier service.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.WithError(err).Fatal("failed to init telegram client")
		}
		notifier = tg
	}

	ptoSvc := service.NewPtoService(source, status, phone, notifier, store,
		cfg.PersonName, cfg.VacationEmoji(), logger)
	hostSvc := service.NewHostService(service.ShellRunner{}, phone, store, logger)

	if *once != "" {
		runOnce(*once, cfg, ptoSvc, hostSvc, logger)
		return
	}

	sched := scheduler.New(cfg, ptoSvc, hostSvc, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			logger.WithError(err).Error("scheduler error")
		}
	}()

	logger.Info("homepi started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
	sched.Stop()
}

func calendarSource(cfg *config.Config, log *logrus.Entry) service.CalendarSource {
	if cfg.CalendarURL != "" {
		return icsfeed.NewClient(cfg.CalendarURL, cfg.Timezone)
	}
	if cfg.CalDAVUsername != "" {
		return caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername,
			cfg.CalDAVPassword, cfg.CalDAVPath, cfg.Timezone)
	}
	return nil
}

func runOnce(job string, cfg *config.Config, ptoSvc *service.PtoService, hostSvc *service.HostService, log *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().In(cfg.Timezone)

	var err error
	switch job {
	case "pto":
		err = ptoSvc.Run(ctx, now)
	case "status":
		err = hostSvc.Run(ctx, now)
	default:
		log.Fatalf("unknown job %q, want pto or status", job)
	}
	if err != nil {
		log.WithError(err).Fatalf("%s run failed", job)
	}
}

func printCalendars(cfg *config.Config, log *logrus.Entry) {
	client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername,
		cfg.CalDAVPassword, cfg.CalDAVPath, cfg.Timezone)
	if !client.IsConfigured() {
		log.Fatal("CalDAV credentials not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cals, err := client.DiscoverCalendars(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to discover calendars")
	}
	for _, cal := range cals {
		fmt.Printf("%s\t%s\n", cal.Path, cal.DisplayName)
	}
}

func logLevel(name string) logrus.Level {
	if name == "verbose" {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.ErrorLevel
	}
	return level
}
