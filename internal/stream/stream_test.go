package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatRange(start, end int64) string {
	return fmt.Sprintf("bytes=%d-%d", start, end)
}

func writeFile(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path, content
}

func serve(t *testing.T, method, path, rangeHeader string) (*httptest.ResponseRecorder, Result, error) {
	t.Helper()
	req := httptest.NewRequest(method, "/stream", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	res, err := Serve(w, req, path)
	return w, res, err
}

func TestServe_FullContent(t *testing.T) {
	path, content := writeFile(t, "clip.mp4", 100)

	w, res, err := serve(t, http.MethodGet, path, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "100", w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Content-Range"))
	assert.Equal(t, content, w.Body.Bytes())
}

func TestServe_ClosedRange(t *testing.T) {
	path, content := writeFile(t, "clip.mp4", 100)

	w, res, err := serve(t, http.MethodGet, path, "bytes=10-19")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 10-19/100", w.Header().Get("Content-Range"))
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Equal(t, content[10:20], w.Body.Bytes())
	assert.EqualValues(t, 10, res.Written)
}

func TestServe_OpenEndedRange(t *testing.T) {
	path, content := writeFile(t, "clip.mp4", 100)

	w, _, err := serve(t, http.MethodGet, path, "bytes=90-")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 90-99/100", w.Header().Get("Content-Range"))
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Equal(t, content[90:], w.Body.Bytes())
}

func TestServe_MalformedRangeFallsBackToFull(t *testing.T) {
	path, content := writeFile(t, "clip.webm", 100)

	for _, h := range []string{"bytes=abc", "chunks=0-10", "bytes=0-1,4-5", "bytes=-"} {
		w, _, err := serve(t, http.MethodGet, path, h)
		require.NoError(t, err, h)
		assert.Equal(t, http.StatusOK, w.Code, h)
		assert.Equal(t, content, w.Body.Bytes(), h)
		assert.Equal(t, "video/webm", w.Header().Get("Content-Type"))
	}
}

func TestServe_Unsatisfiable(t *testing.T) {
	path, _ := writeFile(t, "clip.mp4", 100)

	w, res, err := serve(t, http.MethodGet, path, "bytes=150-200")
	require.NoError(t, err)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, res.Status)
	assert.Equal(t, "bytes */100", w.Header().Get("Content-Range"))
	assert.Zero(t, w.Body.Len())
}

func TestServe_SlicesAcrossChunks(t *testing.T) {
	size := ChunkSize*3 + 123
	path, content := writeFile(t, "big.mkv", size)

	ranges := [][2]int64{
		{0, int64(size - 1)},
		{1, ChunkSize},
		{ChunkSize - 1, ChunkSize*2 + 1},
		{int64(size - 10), int64(size + 500)},
	}
	for _, rg := range ranges {
		w, res, err := serve(t, http.MethodGet, path, formatRange(rg[0], rg[1]))
		require.NoError(t, err)

		end := min(rg[1], int64(size-1))
		assert.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, content[rg[0]:end+1], w.Body.Bytes())
		assert.Equal(t, strconv.FormatInt(end-rg[0]+1, 10), w.Header().Get("Content-Length"))
		assert.Equal(t, res.Range.Length(), res.Written)
	}
}

func TestServe_Head(t *testing.T) {
	path, _ := writeFile(t, "clip.mp4", 100)

	w, _, err := serve(t, http.MethodHead, path, "bytes=10-19")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Zero(t, w.Body.Len())
}

func TestServe_MissingFile(t *testing.T) {
	w, _, err := serve(t, http.MethodGet, filepath.Join(t.TempDir(), "gone.mp4"), "")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Zero(t, w.Body.Len())
}

func TestServe_EmptyFile(t *testing.T) {
	path, _ := writeFile(t, "empty.mp4", 0)

	w, _, err := serve(t, http.MethodGet, path, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("Content-Length"))

	w, _, err = serve(t, http.MethodGet, path, "bytes=0-")
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */0", w.Header().Get("Content-Range"))
}

func TestServe_StopsOnCancelledRequest(t *testing.T) {
	path, _ := writeFile(t, "clip.mp4", ChunkSize*4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	res, err := Serve(w, req, path)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Written)
	assert.Zero(t, w.Body.Len())
}

type failingWriter struct {
	*httptest.ResponseRecorder
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	if f.writes > 1 {
		return 0, fmt.Errorf("broken pipe")
	}
	return f.ResponseRecorder.Write(p)
}

func TestServe_StopsOnWriteError(t *testing.T) {
	path, _ := writeFile(t, "clip.mp4", ChunkSize*4)

	w := &failingWriter{ResponseRecorder: httptest.NewRecorder()}
	res, err := Serve(w, httptest.NewRequest(http.MethodGet, "/stream", nil), path)

	assert.Error(t, err)
	assert.EqualValues(t, ChunkSize, res.Written)
	assert.Equal(t, 2, w.writes)
}
