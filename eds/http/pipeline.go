/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"github.com/panyam/halley/eds"
)

// Config bundles the knobs needed to stand up a full Halley-flavoured
// eds/http server: one reader stage, one writer stage, one handler
// stage, and the output chain (content module -> transfer module ->
// response sink) every response flows through.
type Config struct {
	Port int

	// Worker counts for each stage; 0 means "inline, run on the caller"
	//.
	ReaderWorkers  int
	WriterWorkers  int
	HandlerWorkers int
}

// Pipeline is the assembled server plus its entry points: Router (for
// registering URL matches) and Mime (for registering extra extension
// mappings).
type Pipeline struct {
	Server *eds.Server
	Router *Router
	Mime   *MimeTypes

	// OutputEntry is the first module of every response's output
	// chain (the content module). Custom modules that produce a
	// response directly (bypassing the router) should forward to it
	// via stage.OutputToModule.
	OutputEntry HttpModule
}

// NewPipeline wires a complete eds/http server: reader
// stage -> assembler -> handler stage -> (router -> leaf module) ->
// content module -> transfer module -> response sink -> writer stage.
func NewPipeline(cfg Config) *Pipeline {
	reader := &ReaderStage{}
	readerStage := eds.NewStage("http-reader", cfg.ReaderWorkers, reader)
	reader.StageID = readerStage.ID

	writer := &WriterStage{}
	writerStage := eds.NewStage("http-writer", cfg.WriterWorkers, writer)
	writer.StageID = writerStage.ID

	handler := &HandlerStage{}
	handlerStage := eds.NewStage("http-handler", cfg.HandlerWorkers, handler)
	handler.StageID = handlerStage.ID

	server := eds.NewServer(cfg.Port, readerStage, writerStage, handlerStage)

	reader.Server = server
	reader.Handler = handlerStage
	writer.Server = server
	handler.Server = server

	sink := NewResponseSink(writer.StageID, writerStage, server)
	transfer := NewTransferModule(sink)
	content := NewContentModule(transfer)

	router := NewRouter()
	router.Output = content

	handler.Root = router

	return &Pipeline{
		Server:      server,
		Router:      router,
		Mime:        NewMimeTypes(),
		OutputEntry: content,
	}
}
