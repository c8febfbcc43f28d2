package link

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/config"
)

// Merger applies an encoded message pushed by the device
type Merger interface {
	MergeFrom(source, body string) (MergeResult, error)
}

// PushClient listens for encoded messages the device pushes over a websocket
type PushClient struct {
	config *config.DeviceConfig
	merger Merger
	logger zerolog.Logger
	conn   *websocket.Conn
	mu     sync.Mutex

	// State
	connected    bool
	reconnecting bool
	lastError    error
	lastSeen     time.Time

	done chan struct{}
	once sync.Once

	// OnMerge, when set, is called after every merged push
	OnMerge func(MergeResult)
}

// NewPushClient creates a new push client
func NewPushClient(cfg *config.DeviceConfig, merger Merger, logger zerolog.Logger) *PushClient {
	return &PushClient{
		config: cfg,
		merger: merger,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins the connection and reconnection loop
func (c *PushClient) Start() {
	go c.connectionLoop()
}

// Stop closes the connection and ends the reconnection loop
func (c *PushClient) Stop() {
	c.once.Do(func() { close(c.done) })
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

// Status returns the current connection status
func (c *PushClient) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	errStr := ""
	if c.lastError != nil {
		errStr = c.lastError.Error()
	}

	return Status{
		Connected:    c.connected,
		Reconnecting: c.reconnecting,
		LastError:    errStr,
		LastSeen:     c.lastSeen,
	}
}

// connectionLoop manages connection and reconnection
func (c *PushClient) connectionLoop() {
	delay := c.config.PushReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		select {
		case <-c.done:
			return
		default:
		}

		err := c.connect()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.reconnecting = true
			c.lastError = err
			c.mu.Unlock()

			c.logger.Warn().Err(err).Dur("retry_in", delay).Msg("push connection failed")

			select {
			case <-c.done:
				return
			case <-time.After(delay):
			}

			// Exponential backoff
			delay = delay * 2
			if c.config.PushMaxReconnect > 0 && delay > c.config.PushMaxReconnect {
				delay = c.config.PushMaxReconnect
			}
			continue
		}

		// Connected successfully, reset delay
		delay = c.config.PushReconnectDelay
		if delay <= 0 {
			delay = time.Second
		}

		c.runConnection()
	}
}

// connect establishes the websocket connection
func (c *PushClient) connect() error {
	c.logger.Info().Str("endpoint", c.config.PushEndpoint).Msg("connecting push listener")

	conn, _, err := websocket.DefaultDialer.Dial(c.config.PushEndpoint, http.Header{})
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.reconnecting = false
	c.lastError = nil
	c.mu.Unlock()

	c.logger.Info().Msg("push listener connected")
	return nil
}

// runConnection handles read and ping on an established connection
func (c *PushClient) runConnection() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(stop)
		c.readLoop()
	}()

	go func() {
		defer wg.Done()
		c.pingLoop(stop)
	}()

	wg.Wait()

	c.mu.Lock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

// readLoop merges every text frame the device sends
func (c *PushClient) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("push read failed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		c.mu.Lock()
		c.lastSeen = time.Now()
		c.mu.Unlock()

		res, err := c.merger.MergeFrom("push", string(message))
		if err != nil {
			c.logger.Warn().Err(err).Msg("push message rejected")
			continue
		}
		if c.OnMerge != nil {
			c.OnMerge(res)
		}
	}
}

// pingLoop keeps the connection alive until stop or done is closed
func (c *PushClient) pingLoop(stop <-chan struct{}) {
	interval := c.config.PushPingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.mu.Lock()
			if c.conn != nil {
				c.conn.Close()
			}
			c.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if conn == nil {
				return
			}

			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Warn().Err(err).Msg("push ping failed")
				conn.Close()
				return
			}
		}
	}
}
