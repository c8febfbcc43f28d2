package devsim

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/config"
	"github.com/f3xlab/fieldsync/internal/logging"
	"github.com/f3xlab/fieldsync/internal/task"
	"github.com/f3xlab/fieldsync/internal/wire"
)

// Server represents the simulator HTTP server
type Server struct {
	config   *config.SimulatorConfig
	device   *Device
	logs     *logging.Buffer
	logger   zerolog.Logger
	router   *gin.Engine
	hub      *hub
	upgrader websocket.Upgrader
}

// NewServer creates a new simulator server
func NewServer(cfg *config.SimulatorConfig, device *Device, logs *logging.Buffer, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config: cfg,
		device: device,
		logs:   logs,
		logger: logger,
		router: gin.New(),
		hub:    newHub(logger),
	}

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.router.SetHTMLTemplate(template.Must(template.New("index").Parse(indexPage)))
	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Device protocol
	s.router.GET("/"+wire.SetPath, s.handleSet)
	s.router.GET("/"+wire.GetPath, s.handleGet)
	s.router.GET("/ws", s.handlePush)

	// Logs
	s.router.GET("/api/logs", s.handleLogs)

	// Web UI
	s.router.GET("/", s.handleUI)
}

// Handler returns the router, for use with httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("simulator listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleSet stores one value, or drives the task for the button ids, and
// answers with the field and the task state
func (s *Server) handleSet(c *gin.Context) {
	name := c.Query("name")
	value := c.Query("value")
	if name == "" {
		c.String(http.StatusBadRequest, "missing name")
		return
	}

	var msg wire.Message
	switch name {
	case task.StartButtonID:
		st := s.device.Start()
		s.logger.Info().Str("state", st.String()).Msg("task start requested")
	case task.StopButtonID:
		st := s.device.Stop()
		s.logger.Info().Str("state", st.String()).Msg("task stop requested")
	default:
		// Stored values must always encode
		if _, err := wire.Encode(wire.Message{{ID: name, Value: value}}); err != nil {
			s.logger.Warn().Err(err).Str("id", name).Msg("set rejected")
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		msg = append(msg, s.device.Set(name, value))
		s.logger.Info().Str("id", name).Str("value", value).Msg("value set")
	}
	msg = append(msg, s.taskEntry())

	s.reply(c, msg, true)
}

// handleGet answers with the requested fields in request order. The task
// state is always appended last.
func (s *Server) handleGet(c *gin.Context) {
	var msg wire.Message
	for _, id := range orderedKeys(c.Request.URL.RawQuery) {
		if id == wire.TaskStateID {
			continue
		}
		if u, ok := s.device.Field(id); ok {
			msg = append(msg, u)
		}
	}
	msg = append(msg, s.taskEntry())

	s.reply(c, msg, false)
}

func (s *Server) reply(c *gin.Context, msg wire.Message, broadcast bool) {
	body, err := wire.Encode(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode response")
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	if broadcast {
		s.hub.broadcast(body)
	}
	c.String(http.StatusOK, body)
}

func (s *Server) taskEntry() wire.Update {
	return wire.Update{ID: wire.TaskStateID, Value: s.device.State().Code()}
}

// handlePush upgrades to a websocket that receives every set response
func (s *Server) handlePush(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("push upgrade failed")
		return
	}
	s.hub.add(conn)
	defer s.hub.remove(conn)

	// Drain until the client goes away; gorilla answers pings while reading.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handleLogs returns buffered log entries, optionally filtered by ?level=
func (s *Server) handleLogs(c *gin.Context) {
	var levels []string
	if lv := c.Query("level"); lv != "" {
		levels = strings.Split(lv, ",")
	}

	entries := []logging.Entry{}
	if s.logs != nil {
		entries = s.logs.Entries(levels)
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type indexField struct {
	ID    string
	Value string
}

// handleUI serves a small status page
func (s *Server) handleUI(c *gin.Context) {
	var fields []indexField
	for _, id := range s.device.IDs() {
		u, _ := s.device.Field(id)
		fields = append(fields, indexField{ID: id, Value: u.Value})
	}
	c.HTML(http.StatusOK, "index", gin.H{
		"State":  s.device.State().String(),
		"Fields": fields,
	})
}

// orderedKeys returns the keys of a raw query in the order they appear
func orderedKeys(rawQuery string) []string {
	var keys []string
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		keys = append(keys, key)
	}
	return keys
}
