package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/project"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		ProjectSvc     *project.Service
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		sessions *sessionRegistry
		janitor  *cron.Cron // nil when sessions never go idle
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

var nowFunc = time.Now // mockable

// maxReapInterval bounds how late an idle session may be closed past its timeout.
const maxReapInterval = time.Minute

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		sessions: newSessionRegistry(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	if timeout := deps.Conf.Draft.SessionIdleTimeout; timeout > 0 {
		s.startJanitor(timeout)
	}
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	professor := professorMiddleware(conf.Auth.ProfessorRole)

	registerProjectAPI(v1, jwt, professor, s.deps.ProjectSvc)
	registerEditorAPI(v1, jwt, professor, s.deps.ProjectSvc, s.sessions)
	registerDraftAPI(v1, jwt, professor, s.deps.ProjectSvc, s.sessions)
	registerTagAPI(v1, jwt, s.deps.ProjectSvc)
	registerStudyCourseAPI(v1, jwt, s.deps.ProjectSvc)
}

// startJanitor periodically closes the editor sessions idle for longer than `timeout`.
func (s *Server) startJanitor(timeout time.Duration) {
	every := timeout / 2
	if every > maxReapInterval {
		every = maxReapInterval
	}
	s.janitor = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.janitor.Schedule(cron.Every(every), cron.FuncJob(func() { s.ReapIdleSessions(nowFunc()) }))
	s.janitor.Start()
}

func (s *Server) stopJanitor() {
	if s.janitor != nil {
		<-s.janitor.Stop().Done()
	}
}

// ReapIdleSessions closes the editor sessions not accessed for `draft.sessionIdleTimeout` as of `now`.
// Their drafts are kept. It returns the number of sessions closed.
func (s *Server) ReapIdleSessions(now time.Time) int {
	timeout := s.deps.Conf.Draft.SessionIdleTimeout
	if timeout <= 0 {
		return 0
	}
	idle := s.sessions.removeIdle(now.Add(-timeout))
	for _, sess := range idle {
		sess.editor.Close()
	}
	if len(idle) > 0 {
		s.deps.Logger.Info(fmt.Sprintf("closed %d idle editor sessions", len(idle)))
	}
	return len(idle)
}

// OpenSessions returns the number of open editor sessions.
func (s *Server) OpenSessions() int {
	return s.sessions.len()
}

// Start listens on the configured host. Listener errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Shutdown closes the open editor sessions (keeping their drafts) then stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopJanitor()
	s.sessions.closeAll()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.stopJanitor()
	s.sessions.closeAll()
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Prox API!")
}
