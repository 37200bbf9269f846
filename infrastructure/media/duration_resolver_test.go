package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-service/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type probeCall struct {
	target   string
	deadline time.Duration
}

func recordingProbe(result float64, err error, calls *[]probeCall) Prober {
	return func(ctx context.Context, target string) (float64, error) {
		var left time.Duration
		if dl, ok := ctx.Deadline(); ok {
			left = time.Until(dl)
		}
		*calls = append(*calls, probeCall{target: target, deadline: left})
		return result, err
	}
}

func fastConfig() ResolverConfig {
	return ResolverConfig{RemoteDelay: time.Millisecond, PendingDelay: time.Millisecond}
}

func TestResolve_LocalProbeWins(t *testing.T) {
	remote := new(mockStore)
	var calls []probeCall
	path := writeTemp(t, "lesson.mp4", 4096)

	r := newDurationResolver(remote, recordingProbe(61.6, nil, &calls), true, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{LocalPath: path, StorageID: "vid-1", URL: "https://x/vid-1"})

	assert.Equal(t, 62, got)
	assert.Len(t, calls, 1)
	assert.InDelta(t, float64(15*time.Second), float64(calls[0].deadline), float64(time.Second))
	remote.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestResolve_TinyFileSkipsLocal(t *testing.T) {
	remote := new(mockStore)
	var calls []probeCall
	path := writeTemp(t, "broken.mp4", 999)
	remote.On("Probe", mock.Anything, "vid-1").Return(&model.MediaMetadata{DurationSeconds: 30}, nil).Once()

	r := newDurationResolver(remote, recordingProbe(12, nil, &calls), true, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{LocalPath: path, StorageID: "vid-1"})

	assert.Equal(t, 30, got)
	assert.Empty(t, calls)
}

func TestResolve_RemoteRetriesWhileProcessing(t *testing.T) {
	remote := new(mockStore)
	remote.On("Probe", mock.Anything, "vid-1").Return(&model.MediaMetadata{Processing: true}, nil).Twice()
	remote.On("Probe", mock.Anything, "vid-1").Return(nil, errors.New("timeout")).Once()
	remote.On("Probe", mock.Anything, "vid-1").Return(&model.MediaMetadata{DurationSeconds: 125}, nil).Once()

	r := newDurationResolver(remote, nil, false, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{StorageID: "vid-1"})

	assert.Equal(t, 125, got)
	remote.AssertNumberOfCalls(t, "Probe", 4)
}

func TestResolve_RemoteStopsAfterFiveAttempts(t *testing.T) {
	remote := new(mockStore)
	remote.On("Probe", mock.Anything, "vid-1").Return(&model.MediaMetadata{Processing: true}, nil)

	r := newDurationResolver(remote, nil, false, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{StorageID: "vid-1"})

	assert.Equal(t, 0, got)
	remote.AssertNumberOfCalls(t, "Probe", 5)
}

func TestResolve_RemoteWithoutDurationIsTerminal(t *testing.T) {
	remote := new(mockStore)
	remote.On("Probe", mock.Anything, "obj-1").Return(&model.MediaMetadata{Bytes: 4096}, nil).Once()

	r := newDurationResolver(remote, nil, false, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{StorageID: "obj-1"})

	assert.Equal(t, 0, got)
	remote.AssertNumberOfCalls(t, "Probe", 1)
}

func TestResolve_RemoteNotFoundIsTerminal(t *testing.T) {
	remote := new(mockStore)
	var calls []probeCall
	remote.On("Probe", mock.Anything, "gone").Return(nil, model.ErrAssetNotFound).Once()

	r := newDurationResolver(remote, recordingProbe(44, nil, &calls), true, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{StorageID: "gone", URL: "https://x/gone"})

	assert.Equal(t, 44, got)
	remote.AssertNumberOfCalls(t, "Probe", 1)
	assert.Len(t, calls, 1)
	assert.Equal(t, "https://x/gone", calls[0].target)
	assert.InDelta(t, float64(10*time.Second), float64(calls[0].deadline), float64(time.Second))
}

func TestResolve_PlaybackUnavailable(t *testing.T) {
	var calls []probeCall

	r := newDurationResolver(nil, recordingProbe(44, nil, &calls), false, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{URL: "https://x/vid"})

	assert.Equal(t, 0, got)
	assert.Empty(t, calls)
}

func TestResolve_AllStrategiesFailReturnsZero(t *testing.T) {
	remote := new(mockStore)
	var calls []probeCall
	path := writeTemp(t, "lesson.mp4", 4096)
	remote.On("Probe", mock.Anything, "vid-1").Return(nil, model.ErrAssetNotFound)

	r := newDurationResolver(remote, recordingProbe(0, errors.New("invalid data"), &calls), true, fastConfig())
	got := r.Resolve(context.Background(), model.DurationSource{LocalPath: path, StorageID: "vid-1", URL: "https://x/vid-1"})

	assert.Equal(t, 0, got)
	assert.Len(t, calls, 2)
}

func TestResolve_NothingToInspect(t *testing.T) {
	r := newDurationResolver(nil, nil, false, fastConfig())
	assert.Equal(t, 0, r.Resolve(context.Background(), model.DurationSource{}))
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 0, seconds(-3))
	assert.Equal(t, 0, seconds(0.4))
	assert.Equal(t, 1, seconds(0.5))
	assert.Equal(t, 90, seconds(89.7))
}
