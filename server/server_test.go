package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ienorand/cosmos-ccsds-transfer-frames/ccsds"
)

//
// Constants
//

const serverPort int = 8123
const serverStreamURL string = "ws://localhost:8123/stream"
const serverStatsURL string = "http://localhost:8123/stats"
const serverIngestURL string = "http://localhost:8123/ingest"

//
// TestNoop (starts and stops a server instance)
//

func TestNoop(t *testing.T) {
	withRunningServer(t, func(server *Server) {})
}

//
// TestStatsEndpointReflectsIngestedFrames
//

func TestStatsEndpointReflectsIngestedFrames(t *testing.T) {
	withRunningServer(t, func(server *Server) {
		frame := []byte{0x02, 0x02, 0x03, 0x04, 0x00, 0x00, 0x05, 0x06, 0x07, 0x08, 0x00, 0x00, 0xDA, 0x00}
		if !postIngest(t, frame) {
			return
		}

		var stats ccsds.Stats
		if !pollForStats(t, func(s ccsds.Stats) bool { return s.FramesConsumed > 0 }, &stats) {
			t.Fatal("stats never reflected the ingested frame")
		}
		if stats.FramesConsumed != 1 {
			t.Errorf("FramesConsumed = %d, want 1", stats.FramesConsumed)
		}
	})
}

//
// TestVCEndpointRejectsOutOfRange
//

func TestVCEndpointRejectsOutOfRange(t *testing.T) {
	withRunningServer(t, func(server *Server) {
		resp, err := http.Get("http://localhost:8123/vc/8")
		if err != nil {
			t.Fatalf("GET /vc/8: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

//
// TestStreamReceivesEmittedPackets
//

func TestStreamReceivesEmittedPackets(t *testing.T) {
	withRunningServer(t, func(server *Server) {
		u, _ := url.Parse(serverStreamURL)
		conn, ok := getWebsocketConnection(t, *u)
		if !ok {
			return
		}
		defer conn.Close()

		// Give handleClients a moment to register the connection before
		// the packet that should be broadcast to it arrives.
		time.Sleep(100 * time.Millisecond)

		frame := []byte{0x02, 0x02, 0x03, 0x04, 0x00, 0x00, 0x05, 0x06, 0x07, 0x08, 0x00, 0x00, 0xDA, 0x00}
		if !postIngest(t, frame) {
			return
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}

		var msg PacketMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if msg.Length != 7 {
			t.Errorf("Length = %d, want 7", msg.Length)
		}
		if msg.APID != 0x0506 {
			t.Errorf("APID = %#x, want 0x506", msg.APID)
		}
	})
}

//
// Support functions
//

func withRunningServer(t *testing.T, f func(server *Server)) {
	t.Helper()
	cfg, err := ccsds.NewConfig(14, 0, false, false, false, false)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	server := Server{
		Host:  "",
		Port:  serverPort,
		Demux: ccsds.NewDemux(cfg),
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		server.Run()
		wg.Done()
	}()

	waitForServer(t, serverStatsURL)

	f(&server)

	server.handleShutdown(nil, nil)
	wg.Wait()
}

func waitForServer(t *testing.T, statsURL string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(statsURL)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server never came up")
}

func getWebsocketConnection(t *testing.T, u url.URL) (*websocket.Conn, bool) {
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err == websocket.ErrBadHandshake {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		t.Errorf("handshake failed with status %d, body: %v", resp.StatusCode, buf.String())
		return nil, false
	}
	if err != nil {
		t.Errorf("websocket creation failed: %s", err.Error())
		return nil, false
	}
	return c, true
}

func postIngest(t *testing.T, frame []byte) bool {
	t.Helper()
	resp, err := http.Post(serverIngestURL, "application/octet-stream", bytes.NewReader(frame))
	if err != nil {
		t.Errorf("POST /ingest: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Errorf("POST /ingest status = %d, body = %s", resp.StatusCode, body)
		return false
	}
	return true
}

func pollForStats(t *testing.T, ok func(ccsds.Stats) bool, out *ccsds.Stats) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(serverStatsURL)
		if err != nil {
			t.Fatalf("GET /stats: %v", err)
		}
		var stats ccsds.Stats
		err = json.NewDecoder(resp.Body).Decode(&stats)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode stats: %v", err)
		}
		if ok(stats) {
			*out = stats
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}
