// Package realtime implements the broadcast channel: per-project subscriber
// groups that receive the delta of every committed mutation.
//
// Membership is connection-scoped. A connection joins a project's group
// explicitly (the join operation is access-checked upstream) and is removed
// from every group when it terminates. Publish is called strictly after the
// storage commit, so subscribers of one project observe broadcasts in commit
// order.
package realtime

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Conn is one live client connection. Transport framing is owned by the
// caller; the hub only needs an identity and a delivery method.
//
// Send may be called concurrently and must not block indefinitely; a
// returned error drops the connection from the group it failed in.
type Conn interface {
	ID() string
	UserID() string
	Send(Event) error
}

// Hub owns broadcast group bookkeeping and delivery. Safe for concurrent
// join, leave, and publish.
type Hub struct {
	mu     sync.RWMutex
	groups map[int64]map[string]Conn
	logger *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		groups: make(map[int64]map[string]Conn),
		logger: logger,
	}
}

// Join registers the connection in the project's broadcast group.
func (h *Hub) Join(projectID int64, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[projectID]
	if !ok {
		group = make(map[string]Conn)
		h.groups[projectID] = group
	}
	group[conn.ID()] = conn
}

// Leave removes the connection from one project's group.
func (h *Hub) Leave(projectID int64, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(projectID, connID)
}

// Drop removes the connection from every group. Called when the connection
// terminates.
func (h *Hub) Drop(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for projectID := range h.groups {
		h.removeLocked(projectID, connID)
	}
}

// Publish delivers the event to every member of the event's project group.
// Failed sends drop the connection from the group and are logged; they never
// propagate back to the mutator.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group := h.groups[event.ProjectID]
	for id, conn := range group {
		if err := conn.Send(event); err != nil {
			if h.logger != nil {
				h.logger.Warn("dropping subscriber after failed send",
					"conn", id, "project", event.ProjectID, "err", err)
			}
			h.removeLocked(event.ProjectID, id)
		}
	}
}

// Subscribers returns the number of connections in the project's group.
func (h *Hub) Subscribers(projectID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[projectID])
}

func (h *Hub) removeLocked(projectID int64, connID string) {
	group, ok := h.groups[projectID]
	if !ok {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(h.groups, projectID)
	}
}
