package link

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/f3xlab/fieldsync/internal/config"
	"github.com/f3xlab/fieldsync/internal/task"
)

func TestPushClient_MergesFrames(t *testing.T) {
	rig := newTestRig(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("id_name=pushed~~~__speedtask__=2"))
		conn.WriteMessage(websocket.TextMessage, []byte("broken=1=2"))
		conn.WriteMessage(websocket.TextMessage, []byte("id_speed=30.1"))
		// Hold the connection until the client goes away.
		conn.ReadMessage()
	}))
	defer srv.Close()

	cfg := &config.DeviceConfig{
		PushEndpoint:       "ws" + strings.TrimPrefix(srv.URL, "http"),
		PushReconnectDelay: 10 * time.Millisecond,
		PushMaxReconnect:   50 * time.Millisecond,
		PushPingInterval:   time.Second,
	}
	merged := make(chan MergeResult, 4)
	pc := NewPushClient(cfg, rig.client, zerolog.Nop())
	pc.OnMerge = func(res MergeResult) { merged <- res }
	pc.Start()
	defer pc.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-merged:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d pushes merged", i)
		}
	}

	name, _ := rig.registry.Lookup("id_name")
	if name.Value != "pushed" {
		t.Errorf("name = %q", name.Value)
	}
	speed, _ := rig.registry.Lookup("id_speed")
	if speed.Text != "30.1" {
		t.Errorf("speed = %q", speed.Text)
	}
	if !rig.machine.Is(task.Running) {
		t.Errorf("task = %q", rig.machine.Raw())
	}
	if !pc.Status().Connected {
		t.Error("Status().Connected = false")
	}
}

func TestPushClient_ReconnectsAfterDialFailure(t *testing.T) {
	rig := newTestRig(t)
	cfg := &config.DeviceConfig{
		PushEndpoint:       "ws://127.0.0.1:1/ws",
		PushReconnectDelay: 5 * time.Millisecond,
		PushMaxReconnect:   10 * time.Millisecond,
	}
	pc := NewPushClient(cfg, rig.client, zerolog.Nop())
	pc.Start()
	defer pc.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := pc.Status()
		if st.Reconnecting && st.LastError != "" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Status = %+v, want reconnecting", pc.Status())
}
