/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Command halleyd starts a Halley server: the eds/http module pipeline
// serving static files from one or more docroots, plus a Bayeux
// publish/subscribe endpoint for long-polling clients.
package main

import (
	"flag"

	"github.com/panyam/halley/eds/elog"
	"github.com/panyam/halley/eds/http"
	"github.com/panyam/halley/eds/http/bayeux"
)

func main() {
	port := flag.Int("port", 8080, "TCP port to listen on")
	docroot := flag.String("docroot", ".", "directory served at /static/")
	readerWorkers := flag.Int("reader-workers", 4, "reader stage worker count")
	writerWorkers := flag.Int("writer-workers", 4, "writer stage worker count")
	handlerWorkers := flag.Int("handler-workers", 8, "handler stage worker count")
	mimeTypesPath := flag.String("mime-types", "", "optional /etc/mime.types-format file to load")
	flag.Parse()

	p := http.NewPipeline(http.Config{
		Port:           *port,
		ReaderWorkers:  *readerWorkers,
		WriterWorkers:  *writerWorkers,
		HandlerWorkers: *handlerWorkers,
	})

	if *mimeTypesPath != "" {
		if err := p.Mime.LoadFile(*mimeTypesPath); err != nil {
			elog.Warningf("halleyd: could not load %s: %v", *mimeTypesPath, err)
		}
	}

	files := http.NewFileModule(p.OutputEntry, p.Mime)
	files.AddMapping("/static/", *docroot)
	p.Router.Add(http.PrefixMatcher{Value: "/static/"}, files)

	comet := bayeux.NewModule(p.OutputEntry)
	comet.Stage = p.Server.HandlerStage.Handler.(http.ModuleStage)
	p.Router.Add(http.EqualsMatcher{Value: "/bayeux"}, comet)

	elog.Infof("halleyd: listening on :%d, serving %s at /static/", *port, *docroot)
	if err := p.Server.ListenAndServe(); err != nil {
		elog.Errorf("halleyd: server exited: %v", err)
	}
}
