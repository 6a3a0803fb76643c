/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bayeux

import (
	"strings"
	"testing"

	"github.com/panyam/halley/eds"
	"github.com/panyam/halley/eds/http"
	"github.com/panyam/halley/eds/json"
)

// recordingStage captures every part handed to OutputToModule, in call
// order, so tests can assert on what a Module emitted without standing
// up a full pipeline.
type recordingStage struct {
	parts []http.BodyPart
}

func (s *recordingStage) InputToModule(data *http.HandlerData, module http.HttpModule, part *http.BodyPart) {
}

func (s *recordingStage) OutputToModule(data *http.HandlerData, module http.HttpModule, part *http.BodyPart) {
	s.parts = append(s.parts, *part)
}

func (s *recordingStage) CloseConnection(data *http.HandlerData) {}

func newHandlerData(t *testing.T, body string) *http.HandlerData {
	t.Helper()
	req := http.NewRequest()
	req.Body = &http.BodyPart{Kind: http.PartRaw, Data: []byte(body)}
	return http.NewHandlerData(req, &eds.Connection{})
}

func TestHandshakeAssignsClientID(t *testing.T) {
	m := NewModule(nil)
	stage := &recordingStage{}
	data := newHandlerData(t, `{"channel":"/meta/handshake","version":"1.0"}`)

	m.ProcessInput(data, stage, nil)

	if len(stage.parts) != 2 {
		t.Fatalf("expected 2 parts (body + finished), got %d", len(stage.parts))
	}
	reply, err := json.Parse(stage.parts[0].Data)
	if err != nil {
		t.Fatal(err)
	}
	items := reply.Items()
	if len(items) != 1 {
		t.Fatalf("expected a single reply, got %d", len(items))
	}
	if !items[0].GetOr("successful", json.Bool(false)).AsBool() {
		t.Fatalf("handshake reply not successful: %s", json.Format(reply))
	}
	if items[0].StringOr("clientId", "") == "" {
		t.Fatalf("handshake reply missing clientId: %s", json.Format(reply))
	}
	if stage.parts[1].Kind != http.PartControl || stage.parts[1].Control != http.ControlContentFinished {
		t.Fatalf("expected a ControlContentFinished trailer, got %+v", stage.parts[1])
	}
}

func TestSubscribeFirstConnRetainsConnection(t *testing.T) {
	m := NewModule(nil)
	stage := &recordingStage{}
	data := newHandlerData(t, `{"channel":"/meta/subscribe","clientId":"abc123","subscription":"/quotes"}`)

	m.ProcessInput(data, stage, nil)

	if !data.Retained {
		t.Fatalf("expected first subscribe to retain the connection")
	}
	if len(stage.parts) != 2 {
		t.Fatalf("expected open-sub-message + body parts, got %d", len(stage.parts))
	}
	if stage.parts[0].Kind != http.PartControl || stage.parts[0].Control != http.ControlOpenSubMessage {
		t.Fatalf("expected an OpenSubMessage control part first, got %+v", stage.parts[0])
	}
	ids := m.Registry.SubscribersOf("/quotes")
	if len(ids) != 1 || ids[0] != "abc123" {
		t.Fatalf("subscriber list = %v", ids)
	}

	reply, err := json.Parse(stage.parts[1].Data)
	if err != nil {
		t.Fatal(err)
	}
	item := reply.Items()[0]
	if !item.GetOr("firstconn", json.Bool(false)).AsBool() {
		t.Fatalf("expected firstconn=true on first subscribe: %s", json.Format(reply))
	}
	if !item.GetOr("subscribed", json.Bool(false)).AsBool() {
		t.Fatalf("expected subscribed=true on first subscribe: %s", json.Format(reply))
	}
}

func TestUnknownChannelErrors(t *testing.T) {
	m := NewModule(nil)
	stage := &recordingStage{}
	data := newHandlerData(t, `{"channel":"/no/such/channel"}`)

	m.ProcessInput(data, stage, nil)

	reply, err := json.Parse(stage.parts[0].Data)
	if err != nil {
		t.Fatal(err)
	}
	items := reply.Items()
	if items[0].GetOr("successful", json.Bool(true)).AsBool() {
		t.Fatalf("expected an unsuccessful reply for an unknown channel: %s", json.Format(reply))
	}
}

type recordingChannel struct {
	received []string
}

func (c *recordingChannel) HandleMessage(channel string, msg json.Value) error {
	c.received = append(c.received, msg.StringOr("data", ""))
	return nil
}

func TestUserChannelInvocation(t *testing.T) {
	m := NewModule(nil)
	ch := &recordingChannel{}
	m.RegisterChannel("/app/echo", ch)

	stage := &recordingStage{}
	data := newHandlerData(t, `{"channel":"/app/echo","data":"ping"}`)
	m.ProcessInput(data, stage, nil)

	if len(ch.received) != 1 || ch.received[0] != "ping" {
		t.Fatalf("channel handler did not see the message: %+v", ch.received)
	}
	reply, _ := json.Parse(stage.parts[0].Data)
	if reply.Items()[0].StringOr("data", "") != "OK" {
		t.Fatalf("expected OK acknowledgement: %s", json.Format(reply))
	}
}

func TestRemoveClientClearsAllSubscriptions(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("c1", "/a")
	r.Subscribe("c1", "/b")
	r.RemoveClient("c1")

	if len(r.SubscribersOf("/a")) != 0 || len(r.SubscribersOf("/b")) != 0 {
		t.Fatalf("expected all subscriptions removed for c1")
	}
	if _, ok := r.ConnectionFor("c1"); ok {
		t.Fatalf("expected connection entry removed for c1")
	}
}

func TestUnsubscribeUnknownChannelOrClientReturnsFalse(t *testing.T) {
	r := NewRegistry()
	if r.Unsubscribe("c1", "/never/subscribed") {
		t.Fatalf("expected false for an unknown channel")
	}
	r.Subscribe("c2", "/a")
	if r.Unsubscribe("c1", "/a") {
		t.Fatalf("expected false for a client never subscribed to /a")
	}
}

func TestClientIDHasNoHyphens(t *testing.T) {
	id := newClientID()
	if strings.Contains(id, "-") {
		t.Fatalf("clientId should not contain hyphens: %s", id)
	}
	if len(id) != 32 {
		t.Fatalf("expected a 32-char hex clientId, got %d: %s", len(id), id)
	}
}
