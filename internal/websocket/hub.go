package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/renderdeck/api/internal/model"
)

// PanelChannel is the feed every control-panel view subscribes to. UGC run
// watchers may additionally subscribe to the run id.
const PanelChannel = "panel"

// Client represents a WebSocket client
type Client struct {
	Channel string
	Conn    *websocket.Conn
	Send    chan []byte
}

// Hub maintains active WebSocket connections, grouped by channel.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	Channel string
	Message []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.Channel] == nil {
				h.clients[client.Channel] = make(map[*Client]bool)
			}
			h.clients[client.Channel][client] = true
			h.mu.Unlock()
			log.Printf("Client subscribed to %s", client.Channel)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.Channel]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.Channel)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Client unsubscribed from %s", client.Channel)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.Channel]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastTasks pushes a full task-store snapshot to the panel feed.
func (h *Hub) BroadcastTasks(tasks []model.Task) {
	pending := 0
	for _, t := range tasks {
		if t.State == model.TaskStatePending {
			pending++
		}
	}

	h.send(PanelChannel, model.WSTasksMessage{
		Type:    model.WSMessageTypeTasks,
		Tasks:   tasks,
		Pending: pending,
	})
}

// BroadcastLog pushes one activity log line to the panel feed.
func (h *Hub) BroadcastLog(line string) {
	h.send(PanelChannel, model.WSLogMessage{
		Type: model.WSMessageTypeLog,
		Line: line,
	})
}

// BroadcastUGC pushes run progress to the panel feed and to subscribers of
// that specific run.
func (h *Hub) BroadcastUGC(runID string, status model.RunStatus, progress int, stage model.UGCStage, errMsg string) {
	msg := model.WSUGCMessage{
		Type:         model.WSMessageTypeUGC,
		RunID:        runID,
		Status:       status,
		Progress:     progress,
		CurrentStage: stage,
		Error:        errMsg,
	}
	h.send(PanelChannel, msg)
	h.send(runID, msg)
}

func (h *Hub) send(channel string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal ws message: %v", err)
		return
	}
	h.broadcast <- &BroadcastMessage{Channel: channel, Message: data}
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, channel string) {
	client := &Client{
		Channel: channel,
		Conn:    c,
		Send:    make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop; the panel sends nothing we act on beyond keep-alive.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}
