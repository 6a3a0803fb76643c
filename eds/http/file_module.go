/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// docMapping is one (prefix, docroot) pair: a resource whose path
// begins with Prefix is served out of Docroot, with Prefix stripped.
type docMapping struct {
	Prefix  string
	Docroot string
}

// FileModule is the static file module: it splits a matched resource
// against a table of (prefix, docroot) pairs, and either serves a
// file, lists a directory, or emits a 404.
type FileModule struct {
	BaseModule

	// Output is the first module of the output chain (content module).
	Output HttpModule

	Mime *MimeTypes

	mappings []docMapping
}

// NewFileModule returns an empty FileModule; call AddMapping to
// register (prefix, docroot) pairs before routing resources to it.
func NewFileModule(output HttpModule, mime *MimeTypes) *FileModule {
	return &FileModule{Output: output, Mime: mime}
}

// AddMapping registers a (prefix, docroot) pair, checked in
// registration order by resolve.
func (f *FileModule) AddMapping(prefix, docroot string) {
	f.mappings = append(f.mappings, docMapping{Prefix: prefix, Docroot: docroot})
}

func (f *FileModule) resolve(resource string) (string, bool) {
	for _, m := range f.mappings {
		if strings.HasPrefix(resource, m.Prefix) {
			rel := strings.TrimPrefix(resource, m.Prefix)
			return filepath.Join(m.Docroot, rel), true
		}
	}
	return "", false
}

// ProcessInput implements HttpModule.
func (f *FileModule) ProcessInput(data *HandlerData, stage ModuleStage, part *BodyPart) {
	if part != nil {
		return
	}
	req := data.Request
	path, ok := f.resolve(req.Resource)
	if !ok {
		respondNotFound(data, stage, f.Output, "no docroot mapping for "+req.Resource)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		respondError(data, stage, f.Output, &ProtocolError{Status: 404, Message: describeFileError(err)})
		return
	}

	if info.IsDir() {
		f.serveDirectory(data, stage, path, req.QueryValue("format") == "raw")
		return
	}
	f.serveFile(data, stage, path, info)
}

func (f *FileModule) serveFile(data *HandlerData, stage ModuleStage, path string, info os.FileInfo) {
	resp := data.Request.Response
	resp.SetStatus(200, "OK")
	resp.SetContentType(f.Mime.Lookup(filepath.Ext(path)))
	file := NewFilePart(resp.NextIndex(), path, info.Size())
	fin := NewControlPart(resp.NextIndex(), ControlContentFinished)
	stage.OutputToModule(data, f.Output, &file)
	stage.OutputToModule(data, f.Output, &fin)
}

// dirEntry is one line of a directory listing.
type dirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

func (f *FileModule) serveDirectory(data *HandlerData, stage ModuleStage, path string, raw bool) {
	resp := data.Request.Response
	entries, err := os.ReadDir(path)
	if err != nil {
		respondError(data, stage, f.Output, &ProtocolError{Status: 404, Message: describeFileError(err)})
		return
	}

	var listing []dirEntry
	for _, e := range entries {
		info, err := e.Info()
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		listing = append(listing, dirEntry{Name: e.Name(), IsDir: e.IsDir(), Size: size})
	}
	// Dirs first, then files, both sorted by name ascending").
	sort.Slice(listing, func(i, j int) bool {
		if listing[i].IsDir != listing[j].IsDir {
			return listing[i].IsDir
		}
		return listing[i].Name < listing[j].Name
	})

	resp.SetStatus(200, "OK")
	resp.Header.Set("Cache-Control", "no-cache")

	var body string
	if raw {
		resp.SetContentType("text/text")
		var b strings.Builder
		for _, e := range listing {
			isDir := 0
			if e.IsDir {
				isDir = 1
			}
			fmt.Fprintf(&b, "{'name': '%s', 'isdir': %d, 'size': %d}\n", e.Name, isDir, e.Size)
		}
		body = b.String()
	} else {
		resp.SetContentType("text/html")
		var b strings.Builder
		b.WriteString("<html><body><ul>\n")
		b.WriteString("<li><a href=\"../\">../</a></li>\n")
		for _, e := range listing {
			name := e.Name
			if e.IsDir {
				name += "/"
			}
			fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", name, name)
		}
		b.WriteString("</ul></body></html>\n")
		body = b.String()
	}

	p := NewRawPart(resp.NextIndex(), []byte(body))
	fin := NewControlPart(resp.NextIndex(), ControlContentFinished)
	stage.OutputToModule(data, f.Output, &p)
	stage.OutputToModule(data, f.Output, &fin)
}
