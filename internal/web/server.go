// Package web serves the task store over a small JSON HTTP API.
package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/store"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const (
	maxBodySize     = 1 << 20
	shutdownTimeout = 5 * time.Second
)

type Options struct {
	ThemeKey string
	Log      logrus.FieldLogger
}

type Server struct {
	store    *store.Store
	blobs    store.Blobs
	themeKey string
	log      logrus.FieldLogger

	hub   *changeHub
	unsub func()
	e     *echo.Echo
}

// New builds the HTTP API over st. blobs holds the theme preference (usually the
// same adapter the store persists into).
func New(st *store.Store, blobs store.Blobs, opts Options) *Server {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	themeKey := strings.TrimSpace(opts.ThemeKey)
	if themeKey == "" {
		themeKey = store.DefaultThemeKey
	}

	s := &Server{
		store:    st,
		blobs:    blobs,
		themeKey: themeKey,
		log:      log,
		hub:      newChangeHub(),
	}
	s.unsub = st.Subscribe(func([]model.Task) { s.hub.broadcast() })

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	}))
	s.routes(e)
	s.e = e
	return s
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/healthz", s.healthz)

	e.GET("/api/tasks", s.listTasks)
	e.POST("/api/tasks", s.createTask)
	e.DELETE("/api/tasks", s.deleteAll)
	e.POST("/api/tasks/complete-all", s.completeAll)
	e.POST("/api/tasks/clear-completed", s.clearCompleted)
	e.PATCH("/api/tasks/:id", s.patchTask)
	e.DELETE("/api/tasks/:id", s.deleteTask)
	e.POST("/api/tasks/:id/duplicate", s.duplicateTask)

	e.PUT("/api/order", s.putOrder)

	e.GET("/api/theme", s.getTheme)
	e.PUT("/api/theme", s.putTheme)

	e.GET("/api/events", s.events)
}

func (s *Server) Handler() http.Handler { return s.e }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- s.e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Open event streams would otherwise hold Shutdown until its timeout.
	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close detaches the server from the store.
func (s *Server) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// sonicSerializer makes echo encode and decode JSON with sonic.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	if err := dec.Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return nil
}
