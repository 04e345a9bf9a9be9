// File: internal/httpserver/stream.go
// Package httpserver — file responses (§4.5 "File responses").
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Small files (<2 MiB) are sent headers+body in one write. Larger files
// stream in 1 MiB chunks, chaining across onBufferFull/onBufferDrain
// cycles via api.ScratchKeyDrainContinuation (see listener.countingCallbacks)
// rather than reading the whole file into memory first.

package httpserver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/localzet/webcore/api"
)

const (
	streamThreshold = 2 << 20 // 2 MiB (§4.5)
	chunkSize       = 1 << 20 // 1 MiB (§4.5)
)

// ServeFile builds and sends a response for path, honoring Range-less
// whole-file delivery. Missing files produce a 404 text response. The mime
// table resolves Content-Type from the file extension.
func ServeFile(conn api.Connection, mimeTable *MimeTable, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		_, sendErr := conn.Send(writeError(404, "Not Found").Encode(), true)
		return combineErr(err, sendErr)
	}

	f, err := os.Open(path)
	if err != nil {
		_, sendErr := conn.Send(writeError(404, "Not Found").Encode(), true)
		return combineErr(err, sendErr)
	}

	ctype := mimeTable.Lookup(filepath.Ext(path))
	disposition := ""
	if ctype == fallbackMimeType {
		disposition = fmt.Sprintf("attachment; filename=%q", filepath.Base(path))
	}

	size := info.Size()
	header := map[string]string{
		"Accept-Ranges": "bytes",
		"Content-Type":  ctype,
		"Last-Modified": httpTimeHeader(info.ModTime()),
	}
	if disposition != "" {
		header["Content-Disposition"] = disposition
	}

	if size < streamThreshold {
		defer f.Close()
		body := make([]byte, size)
		if _, err := io.ReadFull(f, body); err != nil {
			_, sendErr := conn.Send(writeError(500, "Internal Server Error").Encode(), true)
			return combineErr(err, sendErr)
		}
		resp := NewResponse(200, body)
		for k, v := range header {
			resp.Header.Set(k, v)
		}
		_, err := conn.Send(resp.Encode(), true)
		return err
	}

	resp := NewResponse(200, nil)
	for k, v := range header {
		resp.Header.Set(k, v)
	}
	resp.Header.Set("Content-Length", fmt.Sprintf("%d", size))
	if _, err := conn.Send(resp.Encode(), true); err != nil {
		f.Close()
		return err
	}

	streamChunks(conn, f, size)
	return nil
}

// streamChunks sends f in chunkSize pieces. Each call sends chunks back to
// back as long as the socket keeps up (conn.Send returning with an empty
// outbound queue); once the outbound buffer backs up, the remaining work is
// registered as a one-shot drain continuation so the event loop's own
// onBufferDrain resumes it instead of blocking the worker.
func streamChunks(conn api.Connection, f *os.File, remaining int64) {
	buf := make([]byte, chunkSize)
	var step func()
	step = func() {
		for remaining > 0 {
			n := int64(len(buf))
			if remaining < n {
				n = remaining
			}
			read, err := f.Read(buf[:n])
			if read > 0 {
				if _, sendErr := conn.Send(buf[:read], true); sendErr != nil {
					f.Close()
					return
				}
				remaining -= int64(read)
			}
			if err != nil {
				break
			}
			if conn.Stats().SendQueued > 0 && remaining > 0 {
				conn.Context().Set(api.ScratchKeyDrainContinuation, step)
				return
			}
		}
		f.Close()
	}
	step()
}

func combineErr(primary, secondary error) error {
	if primary != nil {
		return primary
	}
	return secondary
}
