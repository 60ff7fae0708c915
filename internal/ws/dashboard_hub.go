package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Update is the envelope pushed to dashboard clients: event kind plus the
// payload the trackers produced (presence record, attendance record, ...).
type Update struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type dashboardMessage struct {
	payload []byte
}

// DashboardHub fans live coordination updates out to every connected
// dashboard. Slow clients are evicted rather than allowed to stall the rest.
type DashboardHub struct {
	register   chan *dashboardClient
	unregister chan *dashboardClient
	broadcast  chan dashboardMessage
	clients    map[*dashboardClient]struct{}
}

func NewDashboardHub() *DashboardHub {
	return &DashboardHub{
		register:   make(chan *dashboardClient),
		unregister: make(chan *dashboardClient),
		broadcast:  make(chan dashboardMessage, 256),
		clients:    make(map[*dashboardClient]struct{}),
	}
}

func (h *DashboardHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				client.conn.Close()
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg.payload:
				default:
					delete(h.clients, client)
					close(client.send)
					client.conn.Close()
				}
			}
		}
	}
}

// Notify pushes one update to all connected dashboards. Implements
// ingest.Notifier.
func (h *DashboardHub) Notify(event string, payload interface{}) {
	if h == nil {
		return
	}
	data, err := json.Marshal(Update{Type: event, Data: payload, Timestamp: time.Now()})
	if err != nil {
		log.Printf("ws: failed to marshal %s update: %v", event, err)
		return
	}
	h.broadcast <- dashboardMessage{payload: data}
}

type dashboardClient struct {
	hub  *DashboardHub
	conn *websocket.Conn
	send chan []byte
}

func newDashboardClient(hub *DashboardHub, conn *websocket.Conn) *dashboardClient {
	return &dashboardClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *dashboardClient) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *dashboardClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
