package remotefill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/incidentreportflow/internal/fields"
	"github.com/Lllllllleong/incidentreportflow/internal/pdftest"
)

const testToken = "secret-token"

// fakeService is an in-memory document service. Jobs finish after
// pendingPolls status requests with the configured outcome.
type fakeService struct {
	mu          sync.Mutex
	assets      map[string][]byte
	jobs        map[string]jobRequest
	polls       map[string]int
	pendingPoll int
	fail        string
	result      []byte
	never       bool
	seq         int
}

func newFakeService(result []byte) *fakeService {
	return &fakeService{
		assets: make(map[string][]byte),
		jobs:   make(map[string]jobRequest),
		polls:  make(map[string]int),
		result: result,
	}
}

func (s *fakeService) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer "+testToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/assets", s.createAsset).Methods(http.MethodPost)
	r.HandleFunc("/assets/{id}", s.getAsset).Methods(http.MethodGet)
	r.HandleFunc("/jobs", s.createJob).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{id}", s.getJob).Methods(http.MethodGet)
	return r
}

func (s *fakeService) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeService) createAsset(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil || r.Header.Get("Content-Type") != "application/pdf" {
		http.Error(w, "bad asset", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	id := s.nextID("asset")
	s.assets[id] = data
	s.mu.Unlock()
	writeJSON(w, assetResponse{ID: id})
}

func (s *fakeService) getAsset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, ok := s.assets[mux.Vars(r)["id"]]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(data)
}

func (s *fakeService) createJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad job", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[req.Template]; !ok {
		http.Error(w, "unknown template", http.StatusBadRequest)
		return
	}
	id := s.nextID("job")
	s.jobs[id] = req
	writeJSON(w, jobResponse{ID: id, Status: StatusQueued})
}

func (s *fakeService) getJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		http.NotFound(w, r)
		return
	}
	s.polls[id]++
	switch {
	case s.never || s.polls[id] <= s.pendingPoll:
		writeJSON(w, jobResponse{ID: id, Status: StatusRunning})
	case s.fail != "":
		writeJSON(w, jobResponse{ID: id, Status: StatusFailed, Error: s.fail})
	default:
		result := s.nextID("asset")
		s.assets[result] = s.result
		writeJSON(w, jobResponse{ID: id, Status: StatusDone, Result: result})
	}
}

func (s *fakeService) lastJob() jobRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last jobRequest
	for _, j := range s.jobs {
		last = j
	}
	return last
}

func (s *fakeService) pollCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[id]
}

func (s *fakeService) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, svc *fakeService, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(svc.router())
	t.Cleanup(srv.Close)
	cl, err := NewClient(srv.URL, token, WithPolling(5*time.Millisecond, 500*time.Millisecond))
	require.NoError(t, err)
	return cl
}

func TestFill(t *testing.T) {
	svc := newFakeService(pdftest.MainTemplate())
	svc.pendingPoll = 2
	cl := newTestClient(t, svc, testToken)

	values := fields.Values{}
	values.SetText("driver_name", "Jane Driver")
	values.SetCheck("road_type_a_road", fields.True)
	values.SetCheck("weather_fog", fields.True)
	values.SetCheck("weather_snow", fields.False)
	values.SetPair("airbags_deployed_yes", "airbags_deployed_No", fields.False)

	doc, err := cl.Fill(context.Background(), pdftest.MainTemplate(), values)
	require.NoError(t, err)

	assert.True(t, doc.NeedAppearances(), "regeneration must be requested on the downloaded form")
	assert.Positive(t, doc.FieldCount())
	assert.Equal(t, 3, svc.pollCount("job-2"))

	job := svc.lastJob()
	assert.Equal(t, "asset-1", job.Template)
	r := fields.DefaultResolver()
	token := func(name string) string {
		tok, ok := r.Resolve(name, true)
		require.True(t, ok)
		return string(tok)
	}
	assert.Equal(t, map[string]string{
		"driver_name":          "Jane Driver",
		"road_type_a_road":     token("road_type_a_road"),
		"weather_fog":          token("weather_fog"),
		"airbags_deployed_No":  token("airbags_deployed_No"),
		"airbags_deployed_yes": fields.OffToken,
	}, job.Fields)
	assert.Equal(t, "On", job.Fields["road_type_a_road"])
	assert.NotContains(t, job.Fields, "weather_snow")
}

func TestFillAuthentication(t *testing.T) {
	svc := newFakeService(pdftest.MainTemplate())
	cl := newTestClient(t, svc, "wrong-token")

	_, err := cl.Fill(context.Background(), pdftest.MainTemplate(), fields.Values{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Zero(t, svc.jobCount())
}

func TestFillJobFailed(t *testing.T) {
	svc := newFakeService(nil)
	svc.fail = "template is encrypted"
	cl := newTestClient(t, svc, testToken)

	_, err := cl.Fill(context.Background(), pdftest.MainTemplate(), fields.Values{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "template is encrypted")
	assert.False(t, errors.Is(err, ErrJobTimeout))
}

func TestFillJobTimeout(t *testing.T) {
	svc := newFakeService(nil)
	svc.never = true
	srv := httptest.NewServer(svc.router())
	t.Cleanup(srv.Close)
	cl, err := NewClient(srv.URL, testToken, WithPolling(5*time.Millisecond, 60*time.Millisecond))
	require.NoError(t, err)

	_, err = cl.Fill(context.Background(), pdftest.MainTemplate(), fields.Values{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobTimeout)
	assert.Greater(t, svc.pollCount("job-2"), 1)
}

func TestFillCancelled(t *testing.T) {
	svc := newFakeService(nil)
	svc.never = true
	cl := newTestClient(t, svc, testToken)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cl.Fill(ctx, pdftest.MainTemplate(), fields.Values{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrJobTimeout))
}

func TestFillUnexpectedStatus(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/assets", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "storage offline", http.StatusServiceUnavailable)
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	cl, err := NewClient(srv.URL, testToken)
	require.NoError(t, err)
	_, err = cl.Fill(context.Background(), pdftest.MainTemplate(), fields.Values{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, "storage offline", se.Body)
}

func TestFillRejectsNonPDFResult(t *testing.T) {
	svc := newFakeService([]byte("not a pdf"))
	cl := newTestClient(t, svc, testToken)

	_, err := cl.Fill(context.Background(), pdftest.MainTemplate(), fields.Values{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote result")
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		token   string
		wantErr bool
	}{
		{"valid", "https://fill.example/v1/", testToken, false},
		{"no scheme", "fill.example", testToken, true},
		{"empty token", "https://fill.example", "  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := NewClient(tt.url, tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://fill.example/v1", cl.baseURL)
			assert.Equal(t, DefaultPollInterval, cl.pollInterval)
			assert.Equal(t, DefaultTimeout, cl.timeout)
		})
	}

	_, err := NewClient("https://fill.example", "")
	assert.ErrorIs(t, err, ErrAuthentication)
}
