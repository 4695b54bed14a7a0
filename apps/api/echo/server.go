package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/result"
	"github.com/trezcool/fyp/core/submission"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		Projects      project.Repository
		DocTypeSvc    *doctype.Service
		DeadlineSvc   *deadline.Service
		SubmissionSvc *submission.Service
		EvaluationSvc *evaluation.Service
		ResultSvc     *result.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		shutdown chan os.Signal
		errors   chan error
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Projects, "Projects"),
		vala.IsNotNil(deps.DocTypeSvc, "DocTypeSvc"),
		vala.IsNotNil(deps.DeadlineSvc, "DeadlineSvc"),
		vala.IsNotNil(deps.SubmissionSvc, "SubmissionSvc"),
		vala.IsNotNil(deps.EvaluationSvc, "EvaluationSvc"),
		vala.IsNotNil(deps.ResultSvc, "ResultSvc"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwt:      newJWTConfig(deps.Conf.Server.SecretKey),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1", middleware.JWTWithConfig(s.jwt))

	registerDocTypeAPI(v1, s.deps.DocTypeSvc)
	registerDeadlineAPI(v1, s.deps.DeadlineSvc)
	registerProjectAPI(v1, s.deps.Projects, s.deps.SubmissionSvc, s.deps.DeadlineSvc)
	registerSubmissionAPI(v1, s.deps.SubmissionSvc, s.deps.EvaluationSvc)
	registerResultAPI(v1, s.deps.ResultSvc)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks main to gracefully shut the server down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
