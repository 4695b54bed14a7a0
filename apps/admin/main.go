package main

import (
	"log"
	"os"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/result"
	"github.com/trezcool/fyp/services/logger"
	"github.com/trezcool/fyp/services/notify"
	"github.com/trezcool/fyp/storage/database"
	"github.com/trezcool/fyp/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)

	// createdb runs before the app database exists
	if len(os.Args) > 1 && os.Args[1] == "createdb" {
		cli := commandLine{conf: conf}
		if err := cli.run(os.Args); err != nil {
			logger.Printf("\nerror: %s\n", err)
			os.Exit(1)
		}
		return
	}

	// set up DB & repos
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	sqlxDB := sqlxrepos.NewDB(db, conf)
	projects := sqlxrepos.NewProjectRepository(sqlxDB)
	submissions := sqlxrepos.NewSubmissionRepository(sqlxDB)

	// set up services; events are only audited here
	checker := core.NewChecker()
	bus := core.NewSyncEventBus(appLogger)
	bus.Subscribe(notify.NewAuditor(appLogger))
	docTypeSvc := doctype.NewService(sqlxrepos.NewDocumentTypeRepository(sqlxDB), checker, bus, appLogger)
	evalSvc := evaluation.NewService(sqlxrepos.NewMarksRepository(sqlxDB), submissions, sqlxDB, checker, bus)
	resultSvc := result.NewService(
		sqlxrepos.NewResultRepository(sqlxDB),
		sqlxDB,
		projects,
		docTypeSvc,
		submissions,
		evalSvc,
		bus,
		appLogger,
		conf.Scoring,
	)

	// start CLI
	cli := commandLine{
		db:       db,
		conf:     conf,
		projects: projects,
		docTypes: docTypeSvc,
		results:  resultSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
