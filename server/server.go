// Copyright © 2018 NAME HERE <EMAIL ADDRESS>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ienorand/cosmos-ccsds-transfer-frames/ccsds"
)

//
// Server
//

// Server exposes a running ccsds.Demux over HTTP: an ingest endpoint that
// feeds raw frame bytes in, a stats endpoint, a per-virtual-channel
// snapshot endpoint, and a websocket feed of every packet the demux emits.
type Server struct {
	// Configuration
	Host string
	Port int

	StatsPrefix  string
	VCPrefix     string
	IngestPrefix string
	StreamPrefix string

	// Demux is the single demultiplexer this server fronts. It is not
	// itself safe for concurrent use, so every access, from the pump
	// goroutine and from the stats/vc HTTP handlers alike, goes through
	// demuxMu.
	Demux      *ccsds.Demux
	Dictionary *ccsds.Dictionary
	demuxMu    sync.Mutex

	// Internal state
	clients *map[*websocket.Conn]*Client // immutable, updated by handleClients()

	// Channels
	ingestChan       chan []byte // raw frame bytes waiting to be Consume()'d
	addClientChan    chan *Client
	removeClientChan chan *Client

	StopRequest chan os.Signal
}

// Run runs the HTTP+websocket front end for Server.Demux.
func (server *Server) Run() {
	if server.Demux == nil {
		log.Fatal("server: Demux must be set before Run")
	}

	// Prepare defaults
	if server.Port == 0 {
		server.Port = 8000
	}
	if server.StatsPrefix == "" {
		server.StatsPrefix = "/stats"
	}
	if server.VCPrefix == "" {
		server.VCPrefix = "/vc"
	}
	if server.IngestPrefix == "" {
		server.IngestPrefix = "/ingest"
	}
	if server.StreamPrefix == "" {
		server.StreamPrefix = "/stream"
	}

	// Initialize channels
	server.clients = &map[*websocket.Conn]*Client{}
	server.ingestChan = make(chan []byte, 300)
	server.addClientChan = make(chan *Client, 20)
	server.removeClientChan = make(chan *Client, 20)

	router := mux.NewRouter()

	router.HandleFunc(server.StatsPrefix, func(w http.ResponseWriter, r *http.Request) {
		server.handleStats(w, r)
	}).Methods("GET")

	router.HandleFunc(server.VCPrefix+"/{vcid}", func(w http.ResponseWriter, r *http.Request) {
		server.handleVC(w, r)
	}).Methods("GET")

	router.HandleFunc(server.IngestPrefix, func(w http.ResponseWriter, r *http.Request) {
		server.handleIngest(w, r)
	}).Methods("POST")

	router.HandleFunc("/shutdown", func(w http.ResponseWriter, r *http.Request) {
		server.handleShutdown(w, r)
	}).Methods("GET")

	// WebSocket
	router.HandleFunc(server.StreamPrefix, func(w http.ResponseWriter, req *http.Request) {
		server.serveWS(w, req)
	})

	// add/remove clients, pump bytes through the demux
	go server.handleClients()
	go server.pump()

	addr := fmt.Sprintf("%s:%d", server.Host, server.Port)
	h := &http.Server{Addr: addr, Handler: router}

	// Receive interrupts and shut down gracefully
	server.StopRequest = make(chan os.Signal, 2)
	signal.Notify(server.StopRequest, os.Interrupt)

	go func() {
		log.Printf("Listening on %s\n", addr)
		err := h.ListenAndServe()
		if err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-server.StopRequest
	log.Printf("Shutting down the server ...\n")
	h.Shutdown(context.Background())
	close(server.ingestChan)
	log.Printf("Server gracefully stopped.\n")
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (server *Server) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := newClient(server, conn)
	server.addClientChan <- client
}

//
// Pump
//

// pump is the only goroutine that calls Consume. It drains ingestChan,
// feeds each chunk through Consume, and broadcasts every emitted packet to
// whatever stream clients are currently connected. It holds demuxMu while
// it does so, the same lock the stats and vc handlers take, since
// ccsds.Demux is not safe for concurrent use.
func (server *Server) pump() {
	for chunk := range server.ingestChan {
		server.demuxMu.Lock()
		r := server.Demux.Consume(chunk)
		for r.Kind == ccsds.HasPacket {
			server.broadcastPacket(r.Packet)
			r = server.Demux.Consume(nil)
		}
		server.demuxMu.Unlock()
	}
}

// broadcastPacket must be called with demuxMu held.
func (server *Server) broadcastPacket(pkt []byte) {
	prefixLen := server.Demux.Config().PacketPrefixLength
	msg := PacketMessage{Hex: fmt.Sprintf("% x", pkt), Length: len(pkt)}
	if apid, ok := ccsds.PacketAPID(pkt, prefixLen); ok {
		msg.APID = apid
		if name, ok := server.Dictionary.Name(apid); ok {
			msg.Name = name
		}
	}
	sendJSON(msg, server.currentClients()...)
}

func (server *Server) currentClients() []*Client {
	clients := *server.clients
	out := make([]*Client, 0, len(clients))
	for _, c := range clients {
		out = append(out, c)
	}
	return out
}

//
// Handle Clients
//

// All add/remove of the client set is centralized here so the pump
// goroutine can read server.clients without a lock: handleClients only
// ever publishes a freshly copied map, never mutates one in place.
func (server *Server) handleClients() {
	clients := map[*websocket.Conn]*Client{}
	for {
		select {
		case client := <-server.addClientChan:
			next := copyClients(clients)
			next[client.conn] = client
			clients = next
			server.clients = &clients
			go client.readPump()
			go client.writePump()

		case client := <-server.removeClientChan:
			if _, ok := clients[client.conn]; !ok {
				continue
			}
			next := copyClients(clients)
			delete(next, client.conn)
			clients = next
			server.clients = &clients
			close(client.msgChan)
		}
	}
}

func copyClients(src map[*websocket.Conn]*Client) map[*websocket.Conn]*Client {
	dst := make(map[*websocket.Conn]*Client, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

//
// HandleStats / HandleVC / HandleIngest
//

func (server *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	server.demuxMu.Lock()
	stats := server.Demux.Stats()
	server.demuxMu.Unlock()

	prepareHeader(w, r)
	json.NewEncoder(w).Encode(stats)
}

func (server *Server) handleVC(w http.ResponseWriter, r *http.Request) {
	vcid, err := strconv.Atoi(mux.Vars(r)["vcid"])
	if err != nil {
		http.Error(w, "invalid vcid", http.StatusBadRequest)
		return
	}
	server.demuxMu.Lock()
	depth, pendingBytesLeft, ok := server.Demux.VCSnapshot(vcid)
	server.demuxMu.Unlock()
	if !ok {
		http.Error(w, "vcid out of range", http.StatusNotFound)
		return
	}
	prepareHeader(w, r)
	json.NewEncoder(w).Encode(VCResponse{VCID: vcid, QueueDepth: depth, PendingBytesLeft: pendingBytesLeft})
}

func (server *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	select {
	case server.ingestChan <- body:
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "ingest buffer full", http.StatusServiceUnavailable)
	}
}

//
// HandleShutdown
//

func (server *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	server.StopRequest <- &FakeInterrupt{}
}

// FakeInterrupt is for mocking the server shutdown message
type FakeInterrupt struct{}

// String is needed to match an interrupt's interface
func (f *FakeInterrupt) String() string { return "fake interrupt" }

// Signal is needed to match an interrupt's interface
func (f FakeInterrupt) Signal() {}

////////////////////////////////////////////////////////////////////////
// Client
////////////////////////////////////////////////////////////////////////

// Client is the middleman between one stream websocket connection and the
// server's broadcast loop.
type Client struct {
	id      uuid.UUID
	server  *Server
	conn    *websocket.Conn
	msgChan chan []byte
}

func newClient(server *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:      uuid.New(),
		server:  server,
		conn:    conn,
		msgChan: make(chan []byte, 32),
	}
}

//
// Read Pump
//

// readPump only exists to notice when the client goes away: the stream is
// one-directional, so anything the client sends is discarded.
func (client *Client) readPump() {
	for {
		messageType, _, err := client.conn.ReadMessage()
		if err != nil {
			requestRemoveClient(client)
			return
		}
		if messageType == websocket.CloseMessage {
			requestRemoveClient(client)
			return
		}
	}
}

//
// Write Pump
//

func (client *Client) writePump() {
	for msg := range client.msgChan {
		c := client.conn
		if c == nil {
			continue
		}
		err := c.WriteMessage(websocket.TextMessage, msg)
		if err != nil {
			requestRemoveClient(client)
			return
		}
	}
}

func requestRemoveClient(client *Client) {
	client.conn = nil
	client.server.removeClientChan <- client
}

//
// Message Helper Functions
//

func send(msg []byte, clients ...*Client) {
	for i := 0; i < len(clients); i++ {
		clients[i].msgChan <- msg
	}
}

func sendJSON(msg interface{}, clients ...*Client) {
	if len(clients) < 1 {
		return
	}
	if bytes, err := json.Marshal(msg); err == nil {
		send(bytes, clients...)
	} else {
		log.Printf("Error preparing json for a message: %v", err)
	}
}

func prepareHeader(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Add("Content-Type", "application/json")
}

//
// JSON response shapes
//

// PacketMessage is pushed to every connected stream client as each packet
// is emitted.
type PacketMessage struct {
	Hex    string `json:"hex"`
	Length int    `json:"length"`
	APID   int    `json:"apid,omitempty"`
	Name   string `json:"name,omitempty"`
}

// VCResponse answers GET /vc/{vcid}.
type VCResponse struct {
	VCID             int `json:"vcid"`
	QueueDepth       int `json:"queue_depth"`
	PendingBytesLeft int `json:"pending_bytes_left"`
}
