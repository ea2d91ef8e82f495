// internal/lobby/delivery.go
package lobby

// PostMessageToClient hands msg to username: straight to its parked
// connection if there is one, otherwise onto its queue. Returns false if
// username is not signed in.
func (r *Registry) PostMessageToClient(username string, msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.postUnsafe(username, msg)
}

// PostMessageToAll posts msg to every signed-in client.
func (r *Registry) PostMessageToAll(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, cs := range r.clients {
		if cs.SignedIn {
			r.postUnsafe(name, msg)
		}
	}
}

// PostMessageToGameClients posts msg to every member of gameID. Members that
// have since signed off are skipped. Returns false only if the game is unknown.
func (r *Registry) PostMessageToGameClients(gameID int, msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	if !ok {
		return false
	}
	for _, name := range g.Clients {
		r.postUnsafe(name, msg)
	}
	return true
}

// RequeueMessage returns msg, handed to a connection that went away before
// writing it, to the head of username's queue so it is delivered ahead of
// anything posted since. Returns false if username is not signed in.
func (r *Registry) RequeueMessage(username string, msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.signedInUnsafe(username)
	if !ok {
		return false
	}
	cs.queue.PushFront(msg)
	r.reconcileUnsafe(cs)
	return true
}

func (r *Registry) postUnsafe(username string, msg Message) bool {
	cs, ok := r.signedInUnsafe(username)
	if !ok {
		return false
	}
	cs.queue.Push(msg)
	cs.LastSeen = r.reload
	r.reconcileUnsafe(cs)
	return true
}

// reconcileUnsafe is the one place a queued message meets a parked
// connection. If both are present the oldest message goes out and the slot
// is cleared. Every path that adds a message or a connection ends here.
func (r *Registry) reconcileUnsafe(cs *ClientSession) bool {
	if cs.conn == nil {
		return false
	}
	msg, ok := cs.queue.Pop()
	if !ok {
		return false
	}
	conn := cs.conn
	cs.conn = nil
	conn.Deliver(msg)
	return true
}

// SetWaitingConnection parks conn for username. If messages are already
// queued the oldest is delivered to conn immediately. Returns false if
// username is not signed in, in which case conn is never used.
//
// A previously parked connection is replaced without being written to; the
// connection layer is expected to time it out.
func (r *Registry) SetWaitingConnection(username string, conn WaitingConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.signedInUnsafe(username)
	if !ok {
		return false
	}
	cs.conn = conn
	cs.LastSeen = r.reload
	r.reconcileUnsafe(cs)
	return true
}

// ClearWaitingConnection unparks conn if it is still the connection parked
// for username. Connection handles must be comparable.
func (r *Registry) ClearWaitingConnection(username string, conn WaitingConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cs, ok := r.clients[username]; ok && cs.conn == conn {
		cs.conn = nil
	}
}

// HasWaitingConnection reports whether a connection is parked for username.
func (r *Registry) HasWaitingConnection(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.clients[username]
	return ok && cs.conn != nil
}

// ProcessWaitingConnections delivers one message to every parked connection
// whose client has something queued, returning how many were flushed. The
// direct paths already reconcile, so this is a safety net; calling it often
// is harmless.
func (r *Registry) ProcessWaitingConnections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, cs := range r.clients {
		if r.reconcileUnsafe(cs) {
			n++
		}
	}
	return n
}

// MessageQueue returns the queue of username for direct draining, or nil if
// username is unknown.
func (r *Registry) MessageQueue(username string) *MessageQueue {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.clients[username]
	if !ok {
		return nil
	}
	return cs.queue
}
