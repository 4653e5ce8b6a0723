package tryon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"fitting-room-server/modules/common/diagnostics"
	"fitting-room-server/modules/session"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	client   *http.Client
	manager  *session.Manager
	recorder *memoryRecorder
}

func newTestServer(t *testing.T, gen Generator, maxUploadBytes int64) *testServer {
	t.Helper()
	manager := session.NewManager(time.Hour, time.Hour)
	recorder := &memoryRecorder{}
	h := NewHandler(NewService(gen, recorder, manager), manager, recorder, maxUploadBytes)

	r := mux.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{
		Server:   srv,
		client:   &http.Client{Jar: jar},
		manager:  manager,
		recorder: recorder,
	}
}

func (s *testServer) upload(t *testing.T, slot, mediaType string, data []byte) (*http.Response, UploadResponse) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s.bin"`, slot))
	if mediaType != "" {
		header.Set("Content-Type", mediaType)
	}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := s.client.Post(s.URL+"/api/upload/"+slot, w.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (s *testServer) do(t *testing.T, method, path string) (*http.Response, GenerateResponseBody) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, nil)
	require.NoError(t, err)
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out GenerateResponseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHandler_Page(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, 1<<20)

	resp, err := srv.client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "session cookie issued")
}

func TestHandler_UploadAndGenerate(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse("image/png", "ABC")}
	srv := newTestServer(t, gen, 1<<20)

	resp, out := srv.upload(t, "person", "image/jpeg", []byte("person-bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	require.NotNil(t, out.State)
	assert.Equal(t, session.PhasePartiallyLoaded, out.State.Phase)
	assert.False(t, out.State.CanGenerate)

	resp, out = srv.upload(t, "outfit", "", pngBytes(t, 2, 2))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, out.State)
	assert.True(t, out.State.CanGenerate)
	assert.Equal(t, "image/png", out.State.Outfit.MediaType)
	require.NotNil(t, out.State.Outfit.Preview)
	assert.Equal(t, 2, out.State.Outfit.Preview.Width)

	resp, gout := srv.do(t, http.MethodPost, "/api/generate")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gout.Success)
	require.NotNil(t, gout.State)
	assert.Equal(t, session.PhaseSucceeded, gout.State.Phase)
	assert.Equal(t, "data:image/png;base64,ABC", gout.State.Display.DownloadHref)

	require.Len(t, gen.requests, 1)
	assert.Equal(t, "image/jpeg", gen.requests[0].Person.MediaType)
	assert.Equal(t, "cGVyc29uLWJ5dGVz", gen.requests[0].Person.Content)
}

func TestHandler_GenerateMissingInput(t *testing.T) {
	gen := &fakeGenerator{}
	srv := newTestServer(t, gen, 1<<20)

	srv.upload(t, "outfit", "image/png", []byte("x"))
	resp, out := srv.do(t, http.MethodPost, "/api/generate")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, out.Success)
	assert.Equal(t, MissingInputMessage, out.ErrorMessage)
	require.NotNil(t, out.State)
	assert.Equal(t, MissingInputMessage, out.State.Display.ErrorMessage)
	assert.Equal(t, 0, gen.callCount())
}

func TestHandler_GenerateRefusal(t *testing.T) {
	gen := &fakeGenerator{resp: &GenerateResponse{Candidates: []Candidate{{Parts: []ResponsePart{{Text: "Cannot process"}}}}}}
	srv := newTestServer(t, gen, 1<<20)
	srv.upload(t, "person", "image/jpeg", []byte("p"))
	srv.upload(t, "outfit", "image/jpeg", []byte("o"))

	resp, out := srv.do(t, http.MethodPost, "/api/generate")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, out.Success)
	assert.Equal(t, "Cannot process", out.ErrorMessage)
	require.NotNil(t, out.State)
	assert.False(t, out.State.Display.ImageVisible)
	assert.True(t, out.State.CanGenerate)
}

func TestHandler_UploadUnknownSlot(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, 1<<20)

	resp, out := srv.upload(t, "hat", "image/png", []byte("x"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, out.Success)
	assert.Nil(t, out.State)
}

func TestHandler_UploadReadFailure(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, 1<<20)

	t.Run("missing file field", func(t *testing.T) {
		resp, err := srv.client.Post(srv.URL+"/api/upload/person", "multipart/form-data; boundary=x", strings.NewReader("--x--\r\n"))
		require.NoError(t, err)
		defer resp.Body.Close()

		var out UploadResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, UploadReadNotice, out.ErrorMessage)
		require.NotNil(t, out.State)
		assert.False(t, out.State.Person.Filled)
		assert.Equal(t, UploadReadNotice, out.State.Notice)
	})

	t.Run("body over the bound", func(t *testing.T) {
		small := newTestServer(t, &fakeGenerator{}, 64)
		resp, out := small.upload(t, "person", "image/png", bytes.Repeat([]byte("a"), 4096))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, out.Success)
		assert.Equal(t, []string{diagnostics.KindUploadReadFailure}, small.recorder.kinds())
	})
}

func TestHandler_GenerateInFlightConflict(t *testing.T) {
	gen := &fakeGenerator{
		resp:    imageResponse("image/png", "QUJD"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	srv := newTestServer(t, gen, 1<<20)
	srv.upload(t, "person", "image/jpeg", []byte("p"))
	srv.upload(t, "outfit", "image/jpeg", []byte("o"))

	first := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/generate", nil)
		resp, err := srv.client.Do(req)
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-gen.started

	resp, out := srv.do(t, http.MethodPost, "/api/generate")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, out.Success)

	resp, _ = srv.do(t, http.MethodDelete, "/api/session")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "clear refused mid-flight")

	close(gen.release)
	assert.Equal(t, http.StatusOK, <-first)
	assert.Equal(t, 1, gen.callCount())
}

func TestHandler_ClearSession(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, 1<<20)
	srv.upload(t, "person", "image/jpeg", []byte("p"))

	resp, out := srv.do(t, http.MethodDelete, "/api/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, out.State)
	assert.Equal(t, session.PhaseEmpty, out.State.Phase)

	resp, out = srv.do(t, http.MethodGet, "/api/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, out.State.Person.Filled)
}

func TestHandler_SessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, 1<<20)
	srv.upload(t, "person", "image/jpeg", []byte("p"))

	other := &http.Client{}
	resp, err := other.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out GenerateResponseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.State)
	assert.False(t, out.State.Person.Filled)
	assert.Len(t, srv.manager.Sessions(), 2)
}

func TestHandler_Diagnostics(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, 64)
	srv.upload(t, "outfit", "image/png", bytes.Repeat([]byte("a"), 4096))

	resp, err := srv.client.Get(srv.URL + "/admin/diagnostics?n=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Events []diagnostics.Event `json:"events"`
		Count  int                 `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, diagnostics.KindUploadReadFailure, out.Events[0].Kind)
	assert.Equal(t, "outfit", out.Events[0].Slot)

	bad, err := srv.client.Get(srv.URL + "/admin/diagnostics?n=zero")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
