package realtime

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"course-service/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(h *MutationHub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/mutations/:mutationId/stream", h.Serve)
	return r
}

func TestMutationHub_ReplaysBacklogAndStopsAtTerminalStage(t *testing.T) {
	h := NewMutationHub()
	h.Publish(model.MutationEvent{MutationID: "m-1", Stage: model.StageValidated})
	h.Publish(model.MutationEvent{MutationID: "m-1", Stage: model.StagePersisted})
	h.Publish(model.MutationEvent{MutationID: "m-1", Stage: model.StageCacheInvalidated})
	h.Publish(model.MutationEvent{MutationID: "m-2", Stage: model.StageValidated})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mutations/m-1/stream", nil)
	newRouter(h).ServeHTTP(w, req)

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, 3, strings.Count(body, "event: mutation_stage"))
	assert.Less(t, strings.Index(body, `"stage":"Validated"`), strings.Index(body, `"stage":"Persisted"`))
	assert.NotContains(t, body, "m-2")
}

func TestMutationHub_LiveDelivery(t *testing.T) {
	h := NewMutationHub()
	srv := httptest.NewServer(newRouter(h))
	defer srv.Close()

	done := make(chan string)
	go func() {
		resp, err := http.Get(srv.URL + "/mutations/m-9/stream")
		if err != nil {
			done <- ""
			return
		}
		defer resp.Body.Close()
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, resp.Body)
		done <- buf.String()
	}()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		s := h.streams["m-9"]
		return s != nil && len(s.subs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.Publish(model.MutationEvent{MutationID: "m-9", Stage: model.StageAssetsUploading, Item: "intro.mp4"})
	h.Publish(model.MutationEvent{MutationID: "m-9", Stage: model.StageFailed, FailedAt: model.StageAssetsUploading})

	select {
	case body := <-done:
		assert.Contains(t, body, `"item":"intro.mp4"`)
		assert.Contains(t, body, `"failedAt":"AssetsUploading"`)
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not finish after terminal stage")
	}
}

func TestMutationHub_PrunesFinishedStreams(t *testing.T) {
	h := NewMutationHub()
	now := time.Now()
	h.now = func() time.Time { return now }
	h.Publish(model.MutationEvent{MutationID: "old", Stage: model.StageFailed})

	h.now = func() time.Time { return now.Add(retainFor + time.Second) }
	h.Publish(model.MutationEvent{MutationID: "new", Stage: model.StageValidated})

	_, ok := h.streams["old"]
	assert.False(t, ok)
	_, ok = h.streams["new"]
	assert.True(t, ok)
}

func TestMutationHub_HistoryIsBounded(t *testing.T) {
	h := NewMutationHub()
	for i := 0; i < historySize+10; i++ {
		h.Publish(model.MutationEvent{MutationID: "m", Stage: model.StageAssetsUploading})
	}
	assert.Len(t, h.streams["m"].history, historySize)
}

func TestMutationHub_TerminalStageReachesSlowSubscriber(t *testing.T) {
	h := NewMutationHub()
	ch, _ := h.subscribe("m-slow")
	defer h.unsubscribe("m-slow", ch)

	for i := 0; i < cap(ch)+4; i++ {
		h.Publish(model.MutationEvent{MutationID: "m-slow", Stage: model.StageAssetsUploading})
	}
	h.Publish(model.MutationEvent{MutationID: "m-slow", Stage: model.StageFailed})

	require.Len(t, ch, cap(ch))
	var last model.MutationEvent
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, model.StageFailed, last.Stage)
}
