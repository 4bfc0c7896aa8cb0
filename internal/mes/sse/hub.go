package sse

import (
	"encoding/json"
	"sync"
)

// Event 一条推送给看板客户端的SSE事件
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client 一个已连接的看板客户端
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub 管理所有SSE连接。由main注入，不使用全局单例。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

// Unregister 注销客户端并关闭其事件通道
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
	}
}

// Broadcast 向所有客户端广播；缓冲满的慢客户端直接跳过
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
		}
	}
}

// TrackingUpdate 跟踪看板推送负载
type TrackingUpdate struct {
	Action       string `json:"action"`
	CardID       string `json:"card_id"`
	MovementID   string `json:"movement_id,omitempty"`
	ToDepartment string `json:"to_department,omitempty"`
}

// PublishTracking 广播一条跟踪更新
func (h *Hub) PublishTracking(update TrackingUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.Broadcast(Event{
		EventType: "tracking_update",
		Data:      string(data),
	})
}
