package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/fyp/apps/api/echo"
	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/result"
	"github.com/trezcool/fyp/core/submission"
	emailsvc "github.com/trezcool/fyp/services/email"
	logsvc "github.com/trezcool/fyp/services/logger"
	"github.com/trezcool/fyp/services/notify"
	"github.com/trezcool/fyp/storage/database"
	dummydb "github.com/trezcool/fyp/storage/database/dummy"
	sqlxrepos "github.com/trezcool/fyp/storage/database/sqlx"
)

type repositories struct {
	tx          core.Transactor
	projects    project.Repository
	docTypes    doctype.Repository
	batches     deadline.Repository
	submissions submission.Repository
	marks       evaluation.Repository
	results     result.Repository
	close       func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB & repos
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up events
	bus := core.NewEventBus(logger)
	bus.Subscribe(
		notify.NewNotifier(newMailService(conf, logger), notify.NewStaticDirectory(conf.Mail.NotifyTo), logger),
		notify.NewAuditor(logger),
	)
	defer bus.Wait()

	// set up services
	checker := core.NewChecker()
	docTypeSvc := doctype.NewService(repos.docTypes, checker, bus, logger)
	deadlineSvc := deadline.NewService(repos.batches, repos.projects, docTypeSvc, checker, bus)
	submissionSvc := submission.NewService(
		repos.submissions, repos.tx, docTypeSvc, deadlineSvc, repos.marks, checker, bus, conf.Scoring,
	)
	evaluationSvc := evaluation.NewService(repos.marks, repos.submissions, repos.tx, checker, bus)
	resultSvc := result.NewService(
		repos.results, repos.tx, repos.projects, docTypeSvc, repos.submissions, evaluationSvc, bus, logger, conf.Scoring,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Projects:      repos.projects,
			DocTypeSvc:    docTypeSvc,
			DeadlineSvc:   deadlineSvc,
			SubmissionSvc: submissionSvc,
			EvaluationSvc: evaluationSvc,
			ResultSvc:     resultSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens the configured store: in memory for the "memory" engine, Postgres otherwise.
func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.Engine == "memory" {
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		return &repositories{
			tx:          db,
			projects:    dummydb.NewProjectRepository(db),
			docTypes:    dummydb.NewDocumentTypeRepository(db),
			batches:     dummydb.NewBatchRepository(db),
			submissions: dummydb.NewSubmissionRepository(db),
			marks:       dummydb.NewMarksRepository(db),
			results:     dummydb.NewResultRepository(db),
			close:       func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	sqlDB, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if conf.Env == "DEV" {
		if err = database.Migrate(sqlDB, "up"); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	db := sqlxrepos.NewDB(sqlDB, conf)
	return &repositories{
		tx:          db,
		projects:    sqlxrepos.NewProjectRepository(db),
		docTypes:    sqlxrepos.NewDocumentTypeRepository(db),
		batches:     sqlxrepos.NewBatchRepository(db),
		submissions: sqlxrepos.NewSubmissionRepository(db),
		marks:       sqlxrepos.NewMarksRepository(db),
		results:     sqlxrepos.NewResultRepository(db),
		close:       sqlDB.Close,
	}, nil
}

func newMailService(conf *core.Config, logger core.Logger) core.EmailService {
	switch {
	case conf.Debug:
		return emailsvc.NewConsoleService(conf, logger)
	case conf.Mail.SMTPHost != "":
		return emailsvc.NewSMTPService(conf, logger)
	case conf.Mail.SendgridApiKey != "":
		return emailsvc.NewSendgridService(conf, logger)
	default:
		return emailsvc.NewConsoleService(conf, logger)
	}
}
