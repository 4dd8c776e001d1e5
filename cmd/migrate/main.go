// Command migrate manages the message archive schema.
//
//	migrate [-env .env] up|down|version|steps N
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sirupsen/logrus"

	"github.com/pookieplum/chat-app/internal/archive"
	"github.com/pookieplum/chat-app/internal/config"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-env file] up|down|version|steps N\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logrus.New()
	cfg, err := config.Load(*envFile)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	cfg.ConfigureLogger(log)
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := archive.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open migrator")
	}
	defer m.Close()

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		n, convErr := strconv.Atoi(flag.Arg(1))
		if convErr != nil {
			log.WithField("arg", flag.Arg(1)).Fatal("steps needs an integer")
		}
		err = m.Steps(n)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			log.Info("no migrations applied")
			return
		}
		if verr != nil {
			log.WithError(verr).Fatal("failed to read version")
		}
		log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("schema version")
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.WithField("command", cmd).Info("schema already up to date")
		return
	}
	if err != nil {
		log.WithError(err).WithField("command", cmd).Fatal("migration failed")
	}
	log.WithField("command", cmd).Info("migration complete")
}
