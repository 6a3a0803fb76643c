/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package bayeux implements a Comet publish/subscribe sub-system: a
// handshake/connect/subscribe/publish/disconnect dispatch tunnelled
// over HTTP long-polling, as an eds/http HttpModule.
package bayeux

import (
	"sync"

	"github.com/panyam/halley/eds/http"
	"github.com/panyam/halley/eds/json"
)

// ChannelHandler is a user channel's event callback, invoked for any
// message whose "channel" field names a registered (non-meta) channel.
type ChannelHandler interface {
	HandleMessage(channel string, msg json.Value) error
}

// Registry holds the three tables — ChannelMap, ChannelClients,
// ChannelConnections — all mutated under a single lock.
type Registry struct {
	mu sync.Mutex

	// channels: name -> channel object.
	channels map[string]ChannelHandler

	// clients: channel name -> ordered list of client ids.
	clients map[string][]string

	// conns: client id -> the retained request/response/connection triple.
	conns map[string]*http.HandlerData
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]ChannelHandler),
		clients:  make(map[string][]string),
		conns:    make(map[string]*http.HandlerData),
	}
}

// RegisterChannel adds name to ChannelMap.
func (r *Registry) RegisterChannel(name string, h ChannelHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[name] = h
}

// ChannelHandler looks up a registered channel object.
func (r *Registry) ChannelHandler(name string) (ChannelHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.channels[name]
	return h, ok
}

// Subscribe appends clientID to channel's client list if not already
// present. firstconn reports whether clientID was previously unknown
// to the registry altogether; subscribed reports whether clientID was
// newly added to this particular channel's list (false if it was
// already subscribed).
func (r *Registry) Subscribe(clientID, channel string) (firstconn, subscribed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, known := r.conns[clientID]
	firstconn = !known

	list := r.clients[channel]
	for _, id := range list {
		if id == clientID {
			return firstconn, false
		}
	}
	r.clients[channel] = append(list, clientID)
	return firstconn, true
}

// Unsubscribe implements's corrected RemoveSubscription
// semantics: find the subscription list; if found, remove the client;
// if either lookup fails, return false.
func (r *Registry) Unsubscribe(clientID, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.clients[channel]
	if !ok {
		return false
	}
	for i, id := range list {
		if id == clientID {
			r.clients[channel] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// RegisterConnection records clientID's retained handler data,
// marking it known to the registry from now on.
func (r *Registry) RegisterConnection(clientID string, data *http.HandlerData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[clientID] = data
}

// ConnectionFor returns the retained handler data for clientID.
func (r *Registry) ConnectionFor(clientID string) (*http.HandlerData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.conns[clientID]
	return d, ok
}

// RemoveClient removes clientID's entries from every subscription
// list and from ChannelConnections.
func (r *Registry) RemoveClient(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch, list := range r.clients {
		for i, id := range list {
			if id == clientID {
				r.clients[ch] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
	delete(r.conns, clientID)
}

// SubscribersOf returns a snapshot of channel's client list, in
// subscription order.
func (r *Registry) SubscribersOf(channel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.clients[channel]
	out := make([]string, len(list))
	copy(out, list)
	return out
}
