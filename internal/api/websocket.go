// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/NovelBuilder/internal/services"
	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 64
)

// hubClient is one websocket connection subscribed to a novel.
type hubClient struct {
	conn      *websocket.Conn
	novelID   int64
	userID    string
	send      chan []byte
	closed    int32 // 0=open, 1=closed
	createdAt time.Time
}

// Close closes the connection once.
func (client *hubClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		client.conn.Close()
	}
}

// IsClosed reports whether the connection is closed.
func (client *hubClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// NovelHub pushes novel events to the connections subscribed to that novel.
// It implements services.EventPublisher.
type NovelHub struct {
	connections map[int64]map[*hubClient]struct{}
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *utils.Logger
	metrics     *utils.APIMetrics
}

var _ services.EventPublisher = (*NovelHub)(nil)

// NewNovelHub creates the hub. metrics may be nil.
func NewNovelHub(logger *utils.Logger, metrics *utils.APIMetrics) *NovelHub {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &NovelHub{
		connections: make(map[int64]map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Serve upgrades the connection and blocks until the client goes away.
func (hub *NovelHub) Serve(w http.ResponseWriter, r *http.Request, novelID int64, userID string) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", map[string]interface{}{"novel_id": novelID, "error": err.Error()})
		return
	}

	client := &hubClient{
		conn:      conn,
		novelID:   novelID,
		userID:    userID,
		send:      make(chan []byte, wsSendBuffer),
		createdAt: time.Now(),
	}
	hub.register(client)

	go hub.writePump(client)

	hub.enqueue(client, map[string]interface{}{
		"type":      "connected",
		"novel_id":  novelID,
		"timestamp": time.Now().UTC(),
	})
	hub.readPump(client)
}

func (hub *NovelHub) register(client *hubClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if hub.connections[client.novelID] == nil {
		hub.connections[client.novelID] = make(map[*hubClient]struct{})
	}
	hub.connections[client.novelID][client] = struct{}{}
	if hub.metrics != nil {
		hub.metrics.Collector().IncGauge("ws_connections")
	}
	hub.logger.Info("websocket client connected", map[string]interface{}{
		"novel_id": client.novelID,
		"user_id":  client.userID,
	})
}

// unregister removes the client and closes its send queue. Repeated calls are no-ops.
func (hub *NovelHub) unregister(client *hubClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	clients, ok := hub.connections[client.novelID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(hub.connections, client.novelID)
	}
	close(client.send)
	if hub.metrics != nil {
		hub.metrics.Collector().DecGauge("ws_connections")
	}
	hub.logger.Info("websocket client disconnected", map[string]interface{}{
		"novel_id": client.novelID,
		"user_id":  client.userID,
	})
}

// readPump only handles pongs and close; clients send no messages.
func (hub *NovelHub) readPump(client *hubClient) {
	defer func() {
		hub.unregister(client)
		client.Close()
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.logger.Warn("websocket read failed", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

func (hub *NovelHub) writePump(client *hubClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue sends to one client without blocking and drops when the queue is full.
func (hub *NovelHub) enqueue(client *hubClient, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	if _, ok := hub.connections[client.novelID][client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// PublishNovelEvent broadcasts an event to every subscriber of the novel.
func (hub *NovelHub) PublishNovelEvent(event services.NovelEvent) {
	if hub.metrics != nil {
		hub.metrics.RecordNovelEvent(event.Type)
	}

	data, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("marshal novel event failed", map[string]interface{}{"error": err.Error()})
		return
	}

	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	dropped := 0
	for client := range hub.connections[event.NovelID] {
		select {
		case client.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		hub.logger.Warn("novel event dropped for slow clients", map[string]interface{}{
			"novel_id": event.NovelID,
			"dropped":  dropped,
		})
	}
}

// ClientCount returns the number of subscribers of a novel.
func (hub *NovelHub) ClientCount(novelID int64) int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.connections[novelID])
}

// GetStatus returns hub status.
func (hub *NovelHub) GetStatus() map[string]interface{} {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	novels := make(map[int64]int, len(hub.connections))
	total := 0
	for id, clients := range hub.connections {
		novels[id] = len(clients)
		total += len(clients)
	}
	return map[string]interface{}{
		"total_novels":      len(hub.connections),
		"total_connections": total,
		"novels":            novels,
	}
}

// Close closes every connection.
func (hub *NovelHub) Close() {
	hub.mutex.Lock()
	clients := make([]*hubClient, 0)
	for _, set := range hub.connections {
		for client := range set {
			clients = append(clients, client)
		}
	}
	hub.mutex.Unlock()

	for _, client := range clients {
		hub.unregister(client)
		client.Close()
	}
}
