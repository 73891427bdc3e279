package onecontext

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	values map[string]string
}

func (f fakeEnvRepo) Get(key string) string {
	return f.values[key]
}

func (f fakeEnvRepo) Set(key, value string) error {
	f.values[key] = value
	return nil
}

func (f fakeEnvRepo) Unset(key string) error {
	delete(f.values, key)
	return nil
}

func (f fakeEnvRepo) List() []string {
	var envs []string
	for key, value := range f.values {
		envs = append(envs, key+"="+value)
	}
	return envs
}

// recordedRequest is one request captured by the fake service.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// fakeService emulates the API plus the storage endpoints the upload
// pipeline and the downloader talk to. Every API request is recorded;
// responses can be scripted per path.
type fakeService struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]string
	storage   map[string][]byte
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	s := &fakeService{
		t:         t,
		responses: map[string]string{},
		storage:   map[string][]byte{},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

// respond scripts the body returned for a path, for example
// "/context/chunk/search". Unscripted paths return an empty object.
func (s *fakeService) respond(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = body
}

func (s *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(s.t, err)

	if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/storage/") {
		s.mu.Lock()
		s.storage[strings.TrimPrefix(r.URL.Path, "/storage/")] = body
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/download/") {
		s.mu.Lock()
		content := s.storage[strings.TrimPrefix(r.URL.Path, "/download/")]
		s.mu.Unlock()
		http.ServeContent(w, r, "download", time.Time{}, strings.NewReader(string(content)))
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
	})
	scripted, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if r.Method == http.MethodPost && r.URL.Path == "/context/file/presigned-upload-url/" {
		s.handleSlots(w, body)
		return
	}

	if ok {
		_, _ = w.Write([]byte(scripted))
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func (s *fakeService) handleSlots(w http.ResponseWriter, body []byte) {
	var request struct {
		FileNames []string `json:"fileNames"`
	}
	require.NoError(s.t, json.Unmarshal(body, &request))

	files := make([]map[string]string, 0, len(request.FileNames))
	for _, name := range request.FileNames {
		files = append(files, map[string]string{
			"fileId":       "id-" + name,
			"fileName":     name,
			"presignedUrl": s.srv.URL + "/storage/" + name,
			"storageUri":   "gs://bucket/" + name,
		})
	}
	require.NoError(s.t, json.NewEncoder(w).Encode(map[string]interface{}{"files": files}))
}

// lastRequest returns the most recently recorded API request.
func (s *fakeService) lastRequest() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.requests, "no API request recorded")
	return s.requests[len(s.requests)-1]
}

func (s *fakeService) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *fakeService) storedContent(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage[name]
}

func (s *fakeService) client(t *testing.T, options ...Option) *Client {
	t.Helper()
	options = append([]Option{
		WithAPIKey("test-key"),
		WithBaseURL(s.srv.URL),
		WithHTTPClient(s.srv.Client()),
	}, options...)

	client, err := New(options...)
	require.NoError(t, err)
	return client
}
