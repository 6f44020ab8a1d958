package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playkeeper/internal/engine"
	"playkeeper/internal/player"
	"playkeeper/internal/storage"
)

// fakeSession records every call the handlers make.
type fakeSession struct {
	loads      []string
	stops      int
	modes      []player.QualityMode
	sponsor    []bool
	errors     []player.EngineError
	buffering  []bool
	bandwidths []int64
	snapshot   *player.Snapshot
}

func (f *fakeSession) Load(videoID string, video, audio []player.StreamDescriptor) {
	f.loads = append(f.loads, videoID)
}
func (f *fakeSession) Stop()                              { f.stops++ }
func (f *fakeSession) SetQualityMode(m player.QualityMode) { f.modes = append(f.modes, m) }
func (f *fakeSession) SetSponsorEnabled(e bool)           { f.sponsor = append(f.sponsor, e) }
func (f *fakeSession) HandleEngineError(err player.EngineError) {
	f.errors = append(f.errors, err)
}
func (f *fakeSession) ReportBuffering(b bool)    { f.buffering = append(f.buffering, b) }
func (f *fakeSession) ReportBandwidth(bps int64) { f.bandwidths = append(f.bandwidths, bps) }
func (f *fakeSession) Snapshot() *player.Snapshot {
	if f.snapshot != nil {
		return f.snapshot
	}
	return &player.Snapshot{Phase: "idle"}
}

type fakeResume struct {
	rp     *storage.ResumePosition
	events []storage.SessionEvent
	err    error
}

func (f *fakeResume) GetResumePosition(videoID string) (*storage.ResumePosition, error) {
	return f.rp, f.err
}

func (f *fakeResume) GetSessionEvents(videoID string, limit int) ([]storage.SessionEvent, error) {
	return f.events, f.err
}

type handlerFixture struct {
	handler *Handler
	session *fakeSession
	resume  *fakeResume
	bus     *player.Bus
}

func newHandlerFixture() *handlerFixture {
	session := &fakeSession{}
	resume := &fakeResume{}
	bus := player.NewBus()
	remote := engine.NewRemote(bus, zerolog.Nop())
	return &handlerFixture{
		handler: NewHandler(session, remote, bus, resume, zerolog.Nop()),
		session: session,
		resume:  resume,
		bus:     bus,
	}
}

func doJSON(t *testing.T, fn http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error.Code
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture()
	rec := doJSON(t, f.handler.Health, http.MethodGet, "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, Version, resp.Version)
}

func TestGetSession(t *testing.T) {
	f := newHandlerFixture()
	f.session.snapshot = &player.Snapshot{VideoID: "video-1", Phase: "playing", Playing: true}

	rec := doJSON(t, f.handler.GetSession, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var snap player.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "video-1", snap.VideoID)
	assert.Equal(t, "playing", snap.Phase)
}

func TestLoadSession(t *testing.T) {
	f := newHandlerFixture()
	rec := doJSON(t, f.handler.LoadSession, http.MethodPost, "/api/v1/session/load", LoadRequest{
		VideoID:      "video-1",
		VideoStreams: []player.StreamDescriptor{{ContentKey: "v-1080", Height: 1080}},
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"video-1"}, f.session.loads)
}

func TestLoadSessionValidation(t *testing.T) {
	f := newHandlerFixture()

	rec := doJSON(t, f.handler.LoadSession, http.MethodPost, "/api/v1/session/load", LoadRequest{
		VideoStreams: []player.StreamDescriptor{{ContentKey: "v-1080"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, rec))

	rec = doJSON(t, f.handler.LoadSession, http.MethodPost, "/api/v1/session/load", LoadRequest{
		VideoID: "video-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/load", bytes.NewBufferString("{broken"))
	rec2 := httptest.NewRecorder()
	f.handler.LoadSession(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)

	assert.Empty(t, f.session.loads)
}

func TestStopSession(t *testing.T) {
	f := newHandlerFixture()
	rec := doJSON(t, f.handler.StopSession, http.MethodPost, "/api/v1/session/stop", nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, f.session.stops)
}

func TestSetQuality(t *testing.T) {
	f := newHandlerFixture()

	rec := doJSON(t, f.handler.SetQuality, http.MethodPost, "/api/v1/session/quality", QualityRequest{Mode: "manual", Height: 720})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, f.handler.SetQuality, http.MethodPost, "/api/v1/session/quality", QualityRequest{Mode: "adaptive"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, f.session.modes, 2)
	assert.True(t, f.session.modes[0].Manual)
	assert.Equal(t, 720, f.session.modes[0].Height)
	assert.False(t, f.session.modes[1].Manual)
}

func TestSetQualityValidation(t *testing.T) {
	f := newHandlerFixture()

	rec := doJSON(t, f.handler.SetQuality, http.MethodPost, "/api/v1/session/quality", QualityRequest{Mode: "manual"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "manual without height")

	rec = doJSON(t, f.handler.SetQuality, http.MethodPost, "/api/v1/session/quality", QualityRequest{Mode: "turbo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown mode")

	assert.Empty(t, f.session.modes)
}

func TestSetSponsor(t *testing.T) {
	f := newHandlerFixture()

	rec := doJSON(t, f.handler.SetSponsor, http.MethodPut, "/api/v1/session/sponsor", SponsorRequest{Enabled: true})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []bool{true}, f.session.sponsor)
}

func TestGetResume(t *testing.T) {
	f := newHandlerFixture()
	f.resume.rp = &storage.ResumePosition{VideoID: "video-1", Position: 42.5, UpdatedAt: time.Now()}

	rec := doJSON(t, f.handler.GetResume, http.MethodGet, "/api/v1/session/resume?video_id=video-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ResumeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Resume)
	assert.Equal(t, 42.5, resp.Resume.Position)
}

func TestGetResumeRequiresVideoID(t *testing.T) {
	f := newHandlerFixture()
	rec := doJSON(t, f.handler.GetResume, http.MethodGet, "/api/v1/session/resume", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetResumeUnknownVideoIsNull(t *testing.T) {
	f := newHandlerFixture()
	rec := doJSON(t, f.handler.GetResume, http.MethodGet, "/api/v1/session/resume?video_id=nope", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ResumeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Nil(t, resp.Resume)
}

func TestGetHistory(t *testing.T) {
	f := newHandlerFixture()
	f.resume.events = []storage.SessionEvent{
		{ID: 2, VideoID: "video-1", Kind: "stream_corrupted"},
		{ID: 1, VideoID: "video-1", Kind: "network_failure", Detail: "connection reset"},
	}

	rec := doJSON(t, f.handler.GetHistory, http.MethodGet, "/api/v1/session/history?video_id=video-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "stream_corrupted", resp.Events[0].Kind)

	rec = doJSON(t, f.handler.GetHistory, http.MethodGet, "/api/v1/session/history", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportError(t *testing.T) {
	f := newHandlerFixture()
	rec := doJSON(t, f.handler.ReportError, http.MethodPost, "/api/v1/engine/error", EngineErrorRequest{
		Code:  2001,
		Cause: "connection reset",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.session.errors, 1)
	assert.Equal(t, player.ErrorCode(2001), f.session.errors[0].Code)
	assert.Equal(t, "connection reset", f.session.errors[0].Cause)
}

func TestReportPositionUpdatesRemote(t *testing.T) {
	f := newHandlerFixture()
	rec := doJSON(t, f.handler.ReportPosition, http.MethodPost, "/api/v1/engine/position", PositionReport{
		Position: 33.5,
		Duration: 1200,
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestReportBandwidth(t *testing.T) {
	f := newHandlerFixture()

	rec := doJSON(t, f.handler.ReportBandwidth, http.MethodPost, "/api/v1/engine/bandwidth", BandwidthReport{BitsPerSecond: 2_500_000})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{2_500_000}, f.session.bandwidths)

	rec = doJSON(t, f.handler.ReportBandwidth, http.MethodPost, "/api/v1/engine/bandwidth", BandwidthReport{BitsPerSecond: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.session.bandwidths, 1)
}

func TestReportBuffering(t *testing.T) {
	f := newHandlerFixture()

	rec := doJSON(t, f.handler.ReportBuffering, http.MethodPost, "/api/v1/engine/buffering", BufferingReport{Buffering: true})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, f.handler.ReportBuffering, http.MethodPost, "/api/v1/engine/buffering", BufferingReport{Buffering: false})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, []bool{true, false}, f.session.buffering)
}
