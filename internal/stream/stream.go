// Package stream serves video files over HTTP with single byte-range support.
package stream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"pulsegen/internal/media"
)

// ChunkSize is the read/write unit of the body loop.
const ChunkSize = 8192

var ErrFileNotFound = errors.New("video file not found")

// Result summarises a served response.
type Result struct {
	Status  int
	Range   ByteRange
	Size    int64
	Written int64
}

// Serve answers r with the content of the file at path. On ErrFileNotFound
// nothing has been written and the caller picks the error response. Any
// other error after headers were sent means the client went away or the
// file could not be read mid-stream.
func Serve(w http.ResponseWriter, r *http.Request, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, ErrFileNotFound
		}
		return Result{}, fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat video: %w", err)
	}
	if info.IsDir() {
		return Result{}, ErrFileNotFound
	}
	size := info.Size()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")

	br, partial, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrRangeNotSatisfiable) {
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		observe(http.StatusRequestedRangeNotSatisfiable, 0)
		return Result{Status: http.StatusRequestedRangeNotSatisfiable, Size: size}, nil
	}

	res := Result{Status: http.StatusOK, Size: size}
	if partial {
		res.Status = http.StatusPartialContent
		res.Range = br
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, size))
	} else {
		res.Range = ByteRange{Start: 0, End: size - 1}
	}

	length := res.Range.Length()
	h.Set("Content-Type", media.ContentTypeFor(path))
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(res.Status)

	if r.Method == http.MethodHead || length <= 0 {
		observe(res.Status, 0)
		return res, nil
	}

	if res.Range.Start > 0 {
		if _, err := f.Seek(res.Range.Start, io.SeekStart); err != nil {
			observe(res.Status, 0)
			return res, fmt.Errorf("seek video: %w", err)
		}
	}

	res.Written, err = copyChunks(r, w, f, length)
	observe(res.Status, res.Written)
	return res, err
}

// copyChunks writes at most remaining bytes from f, one chunk at a time,
// stopping early on a short file, a write error or a cancelled request.
func copyChunks(r *http.Request, w http.ResponseWriter, f io.Reader, remaining int64) (int64, error) {
	ctx := r.Context()
	buf := make([]byte, ChunkSize)
	flusher, _ := w.(http.Flusher)

	var written int64
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, rerr := f.Read(buf[:n])
		if read > 0 {
			wn, werr := w.Write(buf[:read])
			written += int64(wn)
			remaining -= int64(wn)
			if werr != nil {
				return written, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF || (read == 0 && rerr == nil) {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read video: %w", rerr)
		}
	}
	return written, nil
}
