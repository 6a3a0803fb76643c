/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

// defaultContentType is what an unrecognised extension maps to.
const defaultContentType = "application/binary"

// MimeTypes is the extension -> content-type table: loaded from a
// /etc/mime.types-format file (lines of "type ext1 ext2 ...", '#'
// comments), queried by the file module.
type MimeTypes struct {
	mu    sync.RWMutex
	byExt map[string]string
}

// NewMimeTypes returns a table pre-seeded with the handful of
// extensions any static file server needs even if no mime.types file
// is found on the host.
func NewMimeTypes() *MimeTypes {
	m := &MimeTypes{byExt: make(map[string]string)}
	for ext, ct := range map[string]string{
		"html": "text/html",
		"htm":  "text/html",
		"txt":  "text/text",
		"text": "text/text",
		"css":  "text/css",
		"js":   "application/javascript",
		"json": "application/json",
		"png":  "image/png",
		"jpg":  "image/jpeg",
		"jpeg": "image/jpeg",
		"gif":  "image/gif",
		"svg":  "image/svg+xml",
		"ico":  "image/x-icon",
		"xml":  "application/xml",
		"pdf":  "application/pdf",
	} {
		m.byExt[ext] = ct
	}
	return m
}

// LoadFile merges entries from a /etc/mime.types-format file into the
// table, overriding any built-in defaults for the same extension.
func (m *MimeTypes) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		contentType := fields[0]
		for _, ext := range fields[1:] {
			m.byExt[strings.ToLower(ext)] = contentType
		}
	}
	return scanner.Err()
}

// Lookup returns the content type registered for ext (without a
// leading dot, case-insensitive), or defaultContentType if unknown.
func (m *MimeTypes) Lookup(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ct, ok := m.byExt[ext]; ok {
		return ct
	}
	return defaultContentType
}
