package devsim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/config"
	"github.com/f3xlab/fieldsync/internal/link"
	"github.com/f3xlab/fieldsync/internal/logging"
	"github.com/f3xlab/fieldsync/internal/task"
	"github.com/f3xlab/fieldsync/internal/ui"
	"github.com/f3xlab/fieldsync/internal/wire"
)

func newTestServer(t *testing.T) (*Server, *Device, *logging.Buffer) {
	t.Helper()
	buf := logging.NewBuffer(50)
	logger := logging.NewWithWriter(config.LogConfig{Level: "debug"}, io.Discard, buf)
	d := NewDevice(time.Minute)
	cfg := &config.SimulatorConfig{Host: "127.0.0.1", Port: 0}
	return NewServer(cfg, d, buf, logger), d, buf
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestHandleSet(t *testing.T) {
	s, d, _ := newTestServer(t)

	w := get(t, s.Handler(), "/setDataReq?name=id_name&value=base%20A")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "id_name=base A~~~__speedtask__=1" {
		t.Errorf("body = %q", w.Body.String())
	}
	if u, _ := d.Field("id_name"); u.Value != "base A" {
		t.Errorf("stored = %+v", u)
	}
}

func TestHandleSet_MissingName(t *testing.T) {
	s, _, _ := newTestServer(t)
	if w := get(t, s.Handler(), "/setDataReq?value=1"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSet_RejectsSeparators(t *testing.T) {
	s, d, _ := newTestServer(t)
	d.Seed(wire.Update{ID: "id_other", Value: "1"})

	for _, value := range []string{"a%3Db", "a~~~b"} {
		w := get(t, s.Handler(), "/setDataReq?name=id_name&value="+value)
		if w.Code != http.StatusBadRequest {
			t.Errorf("value %q: status = %d, want 400", value, w.Code)
		}
	}
	if _, ok := d.Field("id_name"); ok {
		t.Error("rejected value was stored")
	}

	w := get(t, s.Handler(), "/getDataReq?id_name=0&id_other=0")
	if w.Code != http.StatusOK || w.Body.String() != "id_other=1~~~__speedtask__=1" {
		t.Errorf("later fetch = %d %q", w.Code, w.Body.String())
	}
}

func TestHandleSet_TaskButtons(t *testing.T) {
	s, d, _ := newTestServer(t)

	w := get(t, s.Handler(), "/setDataReq?name=id_start_task&value=0")
	if w.Body.String() != "__speedtask__=2" {
		t.Errorf("start body = %q", w.Body.String())
	}
	if d.State() != task.Running {
		t.Errorf("state = %v, want Running", d.State())
	}

	w = get(t, s.Handler(), "/setDataReq?name=id_stop_task&value=0")
	if w.Body.String() != "__speedtask__=1" {
		t.Errorf("stop body = %q", w.Body.String())
	}
}

func TestHandleGet_RequestOrder(t *testing.T) {
	s, d, _ := newTestServer(t)
	d.Seed(wire.Update{ID: "b", Value: "2"})
	d.Seed(wire.Update{ID: "a", Value: "1", Min: "0", Max: "9", HasRange: true})

	w := get(t, s.Handler(), "/getDataReq?b=0&missing=0&a=0&__speedtask__=0")
	if w.Body.String() != "b=2~~~a=1=0=9~~~__speedtask__=1" {
		t.Errorf("body = %q", w.Body.String())
	}

	// getDataRS style: bare ids.
	w = get(t, s.Handler(), "/getDataReq?a&b")
	if w.Body.String() != "a=1=0=9~~~b=2~~~__speedtask__=1" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestHandleLogs(t *testing.T) {
	s, _, _ := newTestServer(t)
	get(t, s.Handler(), "/setDataReq?name=x&value=1")

	w := get(t, s.Handler(), "/api/logs?level=info")
	var resp struct {
		Entries []logging.Entry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) == 0 || resp.Entries[0].Message != "value set" {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestHandleUI(t *testing.T) {
	s, d, _ := newTestServer(t)
	d.Seed(wire.Update{ID: "id_speed", Value: "21.0"})

	w := get(t, s.Handler(), "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "id_speed") || !strings.Contains(body, "TaskWaiting") {
		t.Errorf("page missing field or state")
	}
}

// The link client against the simulator: set, fetch, task buttons and push.
func TestSimulator_EndToEnd(t *testing.T) {
	s, d, _ := newTestServer(t)
	d.Seed(wire.Update{ID: "id_power", Value: "5", Min: "0", Max: "10", HasRange: true})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	reg := ui.FromConfig(config.Default().Controls)
	reg.Register(ui.Control{ID: "id_name", Kind: ui.KindText})
	reg.Register(ui.Control{ID: "id_power", Kind: ui.KindRange})
	machine := task.NewMachine(reg)

	devCfg := config.Default().Device
	devCfg.BaseURL = srv.URL
	devCfg.PushEndpoint = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	client := link.NewClient(&devCfg, reg, machine, zerolog.Nop())
	ctx := context.Background()

	if err := client.Fetch(ctx, "id_power"); err != nil {
		t.Fatal(err)
	}
	power, _ := reg.Lookup("id_power")
	if power.Value != "5" || power.Max != "10" {
		t.Errorf("power = %+v", power)
	}
	start, _ := reg.Lookup(task.StartButtonID)
	if start.Disabled || !machine.Is(task.Waiting) {
		t.Errorf("waiting task should enable start: %+v state %q", start, machine.Raw())
	}

	// A second client listening for pushes sees the first client's set.
	pushReg := ui.NewRegistry()
	pushReg.Register(ui.Control{ID: "id_name", Kind: ui.KindText})
	pushMachine := task.NewMachine(pushReg)
	pushClient := link.NewClient(&devCfg, pushReg, pushMachine, zerolog.Nop())
	merged := make(chan struct{}, 4)
	pc := link.NewPushClient(&devCfg, pushClient, zerolog.Nop())
	pc.OnMerge = func(link.MergeResult) { merged <- struct{}{} }
	pc.Start()
	defer pc.Stop()

	waitFor(t, func() bool { return s.hub.count() == 1 })

	if err := client.SendValue(ctx, task.StartButtonID, "0"); err != nil {
		t.Fatal(err)
	}
	if !machine.Is(task.Running) {
		t.Errorf("state = %q, want Running", machine.Raw())
	}
	stop, _ := reg.Lookup(task.StopButtonID)
	if stop.Disabled {
		t.Error("stop should be enabled while running")
	}

	if err := client.SendASCII(ctx, "id_name", "Base B"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-merged:
		case <-time.After(2 * time.Second):
			t.Fatalf("push %d not received", i)
		}
	}
	name, _ := pushReg.Lookup("id_name")
	if name.Value != "Base B" {
		t.Errorf("pushed name = %q", name.Value)
	}
	if !pushMachine.Is(task.Running) {
		t.Errorf("pushed state = %q", pushMachine.Raw())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
