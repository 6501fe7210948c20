package websocket

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const queueSize = 256

type envelope struct {
	client *Client
	userID string
	data   []byte
}

// Hub maintains the set of active clients and routes messages to them. All
// client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of user IDs to the set of that user's open connections.
	subscriptions map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	notify     chan envelope
	direct     chan envelope

	done      chan struct{}
	stopOnce  sync.Once
	connected atomic.Int64
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		notify:        make(chan envelope, queueSize),
		direct:        make(chan envelope, queueSize),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop,
// closing every client's Send channel on the way out.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client)
			h.connected.Add(1)
			log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.unregister:
			if h.drop(client) {
				log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case env := <-h.notify:
			for client := range h.subscriptions[env.userID] {
				h.deliver(client, env.data)
			}
		case env := <-h.direct:
			if h.clients[env.client] {
				h.deliver(env.client, env.data)
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client. It reports false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyUser sends an action to every open connection of userID. It never
// blocks; when the queue is full the notification is dropped.
func (h *Hub) NotifyUser(userID, action string, payload any) {
	h.enqueue(h.notify, envelope{userID: userID, data: NewMessage(action, payload)})
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

func (h *Hub) enqueue(queue chan envelope, env envelope) {
	select {
	case queue <- env:
	case <-h.done:
	default:
		log.Warn().Str("user_id", env.userID).Msg("Websocket queue full, dropping message")
	}
}

// deliver hands data to a client, disconnecting it if its buffer is full.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		log.Warn().Str("user_id", client.UserID).Msg("Client too slow, disconnecting")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
	h.connected.Add(-1)
	return true
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	subs, ok := h.subscriptions[client.UserID]
	if !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.subscriptions, client.UserID)
	}
}
