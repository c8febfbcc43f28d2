package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/config"
	"github.com/f3xlab/fieldsync/internal/task"
	"github.com/f3xlab/fieldsync/internal/wire"
)

// StatusError is returned when the device answers with a non-200 status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device returned %d: %s", e.Code, e.Body)
}

// ErrNoControl is returned when a value is read from an unregistered control
var ErrNoControl = errors.New("no such control")

// Client pushes field values to the device and merges its answers into the UI
type Client struct {
	config   *config.DeviceConfig
	client   *http.Client
	surface  Surface
	task     StateSink
	requests *RequestLog
	logger   zerolog.Logger
	mu       sync.Mutex

	connected bool
	lastError error
	lastSeen  time.Time

	// Recorder, when set, receives every merged message
	Recorder Recorder
}

// NewClient creates a new device client
func NewClient(cfg *config.DeviceConfig, surface Surface, sink StateSink, logger zerolog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		config:   cfg,
		client:   &http.Client{Timeout: timeout},
		surface:  surface,
		task:     sink,
		requests: NewRequestLog(cfg.RequestLogSize),
		logger:   logger,
	}
}

// Status returns the current connection status
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	errStr := ""
	if c.lastError != nil {
		errStr = c.lastError.Error()
	}

	return Status{
		Connected: c.connected,
		LastError: errStr,
		LastSeen:  c.lastSeen,
	}
}

// Requests returns the log of recent outbound requests
func (c *Client) Requests() *RequestLog {
	return c.requests
}

// SendValue sets one field on the device. A value of wire.UseCurrentValue
// sends the control's current value instead.
func (c *Client) SendValue(ctx context.Context, id, value string) error {
	value, err := c.resolve(id, value)
	if err != nil {
		return err
	}
	return c.do(ctx, "set", wire.SetPath, wire.SetQuery(id, value))
}

// SendASCII is SendValue for values the device stores as plain ASCII. The
// value actually sent, after wire.UseCurrentValue is resolved, is checked: a
// character above 127 is rejected with a *wire.ASCIIError and nothing is sent.
func (c *Client) SendASCII(ctx context.Context, id, value string) error {
	value, err := c.resolve(id, value)
	if err != nil {
		return err
	}
	if err := wire.ValidateASCII(value); err != nil {
		return err
	}
	return c.do(ctx, "set", wire.SetPath, wire.SetQuery(id, value))
}

func (c *Client) resolve(id, value string) (string, error) {
	if value != wire.UseCurrentValue {
		return value, nil
	}
	v, ok := c.surface.Value(id)
	if !ok {
		return "", fmt.Errorf("send %s: %w", id, ErrNoControl)
	}
	return v, nil
}

// SendCurrent sends the control's current value. Empty values are not sent.
func (c *Client) SendCurrent(ctx context.Context, id string) error {
	value, ok := c.surface.Value(id)
	if !ok {
		return fmt.Errorf("send %s: %w", id, ErrNoControl)
	}
	if value == "" {
		return nil
	}
	return c.do(ctx, "set", wire.SetPath, wire.SetQuery(id, value))
}

// Fetch asks the device for the current values of ids
func (c *Client) Fetch(ctx context.Context, ids ...string) error {
	return c.do(ctx, "get", wire.GetPath, wire.FetchQuery(ids...))
}

// FetchRaw asks the device with the query arguments passed verbatim
func (c *Client) FetchRaw(ctx context.Context, args ...string) error {
	return c.do(ctx, "get", wire.GetPath, wire.RawQuery(args...))
}

// FetchInState fetches ids only while the task is in state. It reports
// whether a request was issued.
func (c *Client) FetchInState(ctx context.Context, state task.State, ids ...string) (bool, error) {
	if c.task == nil {
		return false, nil
	}
	if cur, ok := c.task.State(); !ok || cur != state {
		return false, nil
	}
	return true, c.Fetch(ctx, ids...)
}

// Merge decodes a device response and applies it. Unknown ids are skipped.
// The task state entry is handed to the task machine and ends the merge.
// A malformed body is rejected as a whole and nothing is applied.
func (c *Client) Merge(body string) (MergeResult, error) {
	return c.MergeFrom("http", body)
}

// MergeFrom is Merge with the source recorded in the journal
func (c *Client) MergeFrom(source, body string) (MergeResult, error) {
	var res MergeResult

	msg, err := wire.Decode(body)
	if err != nil {
		return res, err
	}

	for _, u := range msg {
		if u.IsTaskState() {
			if c.task != nil {
				s := c.task.SetState(u.Value)
				res.TaskState = &s
			}
			break
		}
		if !c.surface.Apply(u) {
			res.Skipped = append(res.Skipped, u.ID)
			continue
		}
		res.Applied++
	}

	if c.Recorder != nil && len(msg) > 0 {
		if err := c.Recorder.RecordUpdates(context.Background(), source, msg); err != nil {
			c.logger.Warn().Err(err).Msg("journal write failed")
		}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, kind, path, query string) error {
	reqID := c.requests.Start(kind, query)
	err := c.roundTrip(ctx, path, query)
	c.requests.Finish(reqID, err)
	if err != nil {
		// A malformed body still means the device answered.
		var de *wire.DecodeError
		c.setError(err, errors.As(err, &de))
		c.logger.Debug().Err(err).Str("query", query).Msg("request dropped")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, path, query string) error {
	url := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.config.BaseURL, "/"), path, query)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	// Successfully reached the device
	c.mu.Lock()
	c.connected = true
	c.lastError = nil
	c.lastSeen = time.Now()
	c.mu.Unlock()

	res, err := c.Merge(string(body))
	if err != nil {
		return fmt.Errorf("merge response: %w", err)
	}
	if len(res.Skipped) > 0 {
		c.logger.Debug().Strs("ids", res.Skipped).Msg("no control for ids")
	}
	return nil
}

func (c *Client) setError(err error, connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.lastError = err
	c.mu.Unlock()
}
