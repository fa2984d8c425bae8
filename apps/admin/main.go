package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/engagement"
	"github.com/trezcool/engagement/core/indicator"
	"github.com/trezcool/engagement/core/mailer"
	emailsvc "github.com/trezcool/engagement/services/email"
	"github.com/trezcool/engagement/services/events"
	logsvc "github.com/trezcool/engagement/services/logger"
	"github.com/trezcool/engagement/storage/database"
	sqlxrepos "github.com/trezcool/engagement/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	registry, err := indicator.LoadRegistry(conf.IndicatorsFile)
	errAndDie("loading indicators", err)

	// set up DB
	db, err := database.Open(conf)
	errAndDie("opening database", err)
	defer db.Close()

	publisher, err := events.NewPublisher(conf, logger)
	errAndDie("connecting event publisher", err)
	defer publisher.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate, translator := core.NewValidator()
	engagement.InitValidators(validate, translator)

	usrRepo := sqlxrepos.NewUserRepository(db)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		registry: registry,
		engagementSvc: engagement.NewService(engagement.ServiceDeps{
			DB:         db,
			Repo:       sqlxrepos.NewEngagementRepository(db),
			Registry:   registry,
			Publisher:  publisher,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
		}),
		mailerSvc: mailer.NewService(mailer.ServiceDeps{
			Repo:       sqlxrepos.NewMailerRepository(db),
			Users:      usrRepo,
			Email:      mailSvc,
			Publisher:  publisher,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
		}),
		out:        os.Stdout,
		jsonOutput: !term.IsTerminal(int(os.Stdout.Fd())),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func errAndDie(msg string, err error) {
	if err != nil {
		logger.Fatal(fmt.Sprintf("%s: %v", msg, err), err)
	}
}
