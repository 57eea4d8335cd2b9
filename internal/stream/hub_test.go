package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"walk-ca/internal/driver"
	"walk-ca/internal/series"
	"walk-ca/internal/walk"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)
	if hub.clients == nil || hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Fatal("NewHub left channels or maps nil")
	}
}

func TestRegisterReplaysCurrentGrid(t *testing.T) {
	hub := NewHub(nil)
	hub.OnReset(walk.Snapshot{
		State: walk.State{Size: 2, Walker: walk.Position{X: 0, Y: 0}, Total: 4},
		Cells: []uint8{2, 0, 0, 0},
	}, series.Point{})
	hub.OnStep(walk.StepResult{
		From: walk.Position{X: 0, Y: 0}, To: walk.Position{X: 1, Y: 0},
		NewlyVisited: true, Steps: 1, Visited: 1, Total: 4,
	}, series.Point{Step: 1, Percentage: 25})
	client := &Client{hub: hub, send: make(chan []byte, 4)}

	hub.registerClient(client)
	if !hub.clients[client] {
		t.Fatal("client was not registered")
	}
	if client.since != 2 {
		t.Fatalf("client.since = %d, want 2", client.since)
	}
	select {
	case data := <-client.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode greeting %s: %v", data, err)
		}
		if msg.Event != EventReset || msg.State == nil || msg.State.Steps != 1 {
			t.Fatalf("greeting = %s", data)
		}
		if diff := cmp.Diff([]uint8{1, 2, 0, 0}, msg.State.Cells); diff != "" {
			t.Fatalf("greeting cells (-want +got):\n%s", diff)
		}
		if msg.Point == nil || msg.Point.Percentage != 25 {
			t.Fatalf("greeting point = %+v", msg.Point)
		}
	default:
		t.Fatal("greeting was not queued")
	}

	hub.unregisterClient(client)
	if _, ok := hub.clients[client]; ok {
		t.Fatal("client still registered")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed")
	}
	hub.unregisterClient(client) // second unregister is a no-op
}

func TestBroadcastDropsSlowClients(t *testing.T) {
	hub := NewHub(nil)
	fast := &Client{hub: hub, send: make(chan []byte, 2)}
	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.registerClient(fast)
	hub.registerClient(slow)

	hub.broadcastFrame(frame{data: []byte("x"), seq: 1})
	if !hub.clients[fast] {
		t.Fatal("fast client should stay registered")
	}
	if _, ok := hub.clients[slow]; ok {
		t.Fatal("slow client should be dropped")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < sendBuffer+10; i++ {
		hub.OnStep(walk.StepResult{Steps: i}, series.Point{Step: i})
	}
	if got := len(hub.broadcast); got != sendBuffer {
		t.Fatalf("queued %d frames, want %d", got, sendBuffer)
	}
}

func TestServeWSStreamsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	hub.OnReset(walk.Snapshot{State: walk.State{Size: 5, Total: 25}, Cells: make([]uint8, 25)}, series.Point{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Event != EventReset || first.State == nil || first.State.Size != 5 {
		t.Fatalf("first frame = %+v, want reset for size 5", first)
	}

	hub.OnStep(walk.StepResult{Steps: 1, Visited: 1, Total: 25}, series.Point{Step: 1, Percentage: 4})
	second := readMessage(t, conn)
	if second.Event != EventStep || second.Step == nil || second.Step.Steps != 1 {
		t.Fatalf("second frame = %+v, want step 1", second)
	}
	if second.Point == nil || second.Point.Percentage != 4 {
		t.Fatalf("second frame point = %+v, want 4%%", second.Point)
	}
}

func TestLateClientSeesCurrentGrid(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	drv := driver.New(driver.Config{Size: 6, Seed: 5})
	drv.Subscribe(hub)
	if _, err := drv.Advance(30); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	want := drv.State()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Event != EventReset || first.State == nil {
		t.Fatalf("first frame = %+v, want reset", first)
	}
	if first.State.State != want {
		t.Fatalf("greeting state = %+v, want %+v", first.State.State, want)
	}
	if diff := cmp.Diff(drv.Cells(), first.State.Cells); diff != "" {
		t.Fatalf("greeting cells (-want +got):\n%s", diff)
	}
	if first.Point == nil || first.Point.Step != 30 {
		t.Fatalf("greeting point = %+v, want step 30", first.Point)
	}

	res, err := drv.StepOnce()
	if err != nil {
		t.Fatalf("StepOnce: %v", err)
	}
	next := readMessage(t, conn)
	if next.Event != EventStep || next.Step == nil || *next.Step != res {
		t.Fatalf("frame after greeting = %+v, want step %+v", next, res)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}
