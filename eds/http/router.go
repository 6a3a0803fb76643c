/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"regexp"
	"strings"
)

// Matcher decides whether a router entry claims a resource path.
type Matcher interface {
	Matches(resource string) bool
}

// EqualsMatcher matches a resource exactly.
type EqualsMatcher struct{ Value string }

func (m EqualsMatcher) Matches(resource string) bool { return resource == m.Value }

// PrefixMatcher matches any resource beginning with Value.
type PrefixMatcher struct{ Value string }

func (m PrefixMatcher) Matches(resource string) bool { return strings.HasPrefix(resource, m.Value) }

// SuffixMatcher matches any resource ending with Value.
type SuffixMatcher struct{ Value string }

func (m SuffixMatcher) Matches(resource string) bool { return strings.HasSuffix(resource, m.Value) }

// ContainsMatcher matches any resource containing Value as a substring.
type ContainsMatcher struct{ Value string }

func (m ContainsMatcher) Matches(resource string) bool { return strings.Contains(resource, m.Value) }

// RegexMatcher matches resources against a compiled regular
// expression. allows an implementer to leave regex
// unimplemented; this one is backed by regexp, so it is implemented.
type RegexMatcher struct{ Expr *regexp.Regexp }

func (m RegexMatcher) Matches(resource string) bool { return m.Expr.MatchString(resource) }

// route is one (matcher, module) entry in a Router's ordered table.
type route struct {
	Matcher Matcher
	Module  HttpModule
}

// Router is the URL router module from: an ordered list
// of (matcher, module) pairs. ProcessInput scans in order and forwards
// to the first match; with no match, it falls through to Fallback (a
// 404 responder if none is configured).
type Router struct {
	BaseModule
	routes   []route
	Fallback HttpModule

	// Output is the first module of the output chain (typically the
	// content module), used only to emit a direct 404 when no route and
	// no Fallback claim the resource.
	Output HttpModule
}

// NewRouter returns an empty Router. Routes are added with Add; a
// router module's own "next" (from BaseModule) is unused since every
// ProcessInput call either matches a route or falls through.
func NewRouter() *Router {
	return &Router{}
}

// Add appends a (matcher, module) pair, scanned in insertion order.
func (r *Router) Add(m Matcher, module HttpModule) {
	r.routes = append(r.routes, route{Matcher: m, Module: module})
}

// ProcessInput implements HttpModule.
func (r *Router) ProcessInput(data *HandlerData, stage ModuleStage, part *BodyPart) {
	if part != nil {
		// A routing decision is made once per request, on the kick-off
		// call (part == nil); once a module is selected, body parts
		// flow straight to it without re-consulting the table. Modules
		// downstream of the router never see a BodyPart through here.
		return
	}
	resource := data.Request.Resource
	for _, rt := range r.routes {
		if rt.Matcher.Matches(resource) {
			stage.InputToModule(data, rt.Module, nil)
			return
		}
	}
	if r.Fallback != nil {
		stage.InputToModule(data, r.Fallback, nil)
		return
	}
	respondNotFound(data, stage, r.Output, "no route matched "+resource)
}

// CreateModuleData implements HttpModule; the router itself holds no
// per-request ordering state since it only ever sees the kick-off call.
func (r *Router) CreateModuleData(data *HandlerData) *HttpModuleData {
	return NewHttpModuleData()
}

// respondNotFound pushes a 404 through output, used when no module
// exists to own the request at all").
func respondNotFound(data *HandlerData, stage ModuleStage, output HttpModule, message string) {
	respondError(data, stage, output, &ProtocolError{Status: 404, Message: message})
}
