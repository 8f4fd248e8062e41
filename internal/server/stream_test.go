package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrames struct {
	mu   sync.Mutex
	jpeg []byte
	seq  uint64
}

func (f *fakeFrames) LatestFrame() ([]byte, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jpeg, f.seq
}

func (f *fakeFrames) set(jpeg []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jpeg = jpeg
	f.seq++
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakeFrames{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStreamHandler_StreamsFrames(t *testing.T) {
	frames := &fakeFrames{}
	frames.set([]byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9})

	ts := httptest.NewServer(NewStreamHandler(frames))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	r := textproto.NewReader(bufio.NewReader(resp.Body))

	readPart := func() []byte {
		boundary, err := r.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "--frame", boundary)

		header, err := r.ReadMIMEHeader()
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", header.Get("Content-Type"))
		n, err := strconv.Atoi(header.Get("Content-Length"))
		require.NoError(t, err)

		body := make([]byte, n+2)
		_, err = io.ReadFull(r.R, body)
		require.NoError(t, err)
		return body[:n]
	}

	assert.Equal(t, []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}, readPart())

	frames.set([]byte{0xFF, 0xD8, 0x02, 0xFF, 0xD9})
	assert.Equal(t, []byte{0xFF, 0xD8, 0x02, 0xFF, 0xD9}, readPart())
}
