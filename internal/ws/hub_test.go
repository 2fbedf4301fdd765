package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[userID] == nil {
		t.Fatal("user room not created")
	}
	if !hub.rooms[userID][client] {
		t.Fatal("client not registered in user room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[userID] != nil {
		t.Fatal("user room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user1 := uuid.New()
	user2 := uuid.New()

	client1 := mockClient(hub, user1)
	client2 := mockClient(hub, user2)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to user1 only
	hub.BroadcastToUser(user1, map[string]string{"title": "Order placed"})

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "notification" {
			t.Errorf("expected type 'notification', got '%s'", received.Type)
		}
		var payload map[string]string
		if err := json.Unmarshal(received.Payload, &payload); err != nil {
			t.Fatalf("failed to unmarshal payload: %v", err)
		}
		if payload["title"] != "Order placed" {
			t.Errorf("expected title 'Order placed', got '%s'", payload["title"])
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received another user's notification")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleConnectionsOfSameUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client1 := mockClient(hub, userID)
	client2 := mockClient(hub, userID)
	client3 := mockClient(hub, userID)

	// Register all connections for the same user
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToUser(userID, map[string]string{"title": "Order confirmed"})

	// All three connections should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "notification" {
				t.Errorf("client%d: expected type 'notification', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubMultipleUsersIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user1 := uuid.New()
	user2 := uuid.New()
	user3 := uuid.New()

	// Create 2 connections per user
	clients := map[uuid.UUID][]*Client{
		user1: {mockClient(hub, user1), mockClient(hub, user1)},
		user2: {mockClient(hub, user2), mockClient(hub, user2)},
		user3: {mockClient(hub, user3), mockClient(hub, user3)},
	}

	// Register all clients
	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Broadcast to user2 only
	hub.BroadcastToUser(user2, map[string]string{"title": "Order delivered"})

	// Only user2's connections should receive
	for userID, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if userID != user2 {
					t.Fatalf("user %s client %d should not receive message", userID, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
			case <-time.After(50 * time.Millisecond):
				if userID == user2 {
					t.Fatalf("user2 client %d should have received message", i)
				}
				// Expected for other users
			}
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client1 := mockClient(hub, userID)
	client2 := mockClient(hub, userID)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[userID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[userID]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[userID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[userID]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[userID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToUnknownUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user1 := uuid.New()
	client1 := mockClient(hub, user1)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Broadcast to a user with no open connections
	hub.BroadcastToUser(uuid.New(), map[string]string{"title": "nobody home"})

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive another user's message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
