package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"
	"course-service/infrastructure/retry"

	"gopkg.in/vansante/go-ffprobe.v2"
)

var (
	errFileTooSmall = errors.New("file too small to be a valid video")
	errStillPending = errors.New("remote asset still processing")
	errNoFormat     = errors.New("probe returned no format section")
	errNoDuration   = errors.New("remote service reports no duration")
)

// Prober reads the duration in seconds of a local path or URL.
type Prober func(ctx context.Context, target string) (float64, error)

type ResolverConfig struct {
	LocalTimeout    time.Duration
	MinFileBytes    int64
	RemoteAttempts  int
	RemoteDelay     time.Duration
	PendingDelay    time.Duration
	PlaybackTimeout time.Duration
	FFProbePath     string
}

// DurationResolver tries local inspection, then the remote metadata API, then a
// playback probe of the URL. It never fails: 0 means unknown.
type DurationResolver struct {
	remote   repository.IMediaStore
	probe    Prober
	playback bool
	cfg      ResolverConfig
	policy   retry.Policy
}

func NewDurationResolver(remote repository.IMediaStore, cfg ResolverConfig) *DurationResolver {
	if cfg.FFProbePath != "" {
		ffprobe.SetFFProbeBinPath(cfg.FFProbePath)
	}
	bin := cfg.FFProbePath
	if bin == "" {
		bin = "ffprobe"
	}
	_, err := exec.LookPath(bin)
	if err != nil {
		logger.GetLogger().Warnf("ffprobe not found (%v), playback probing disabled", err)
	}
	return newDurationResolver(remote, FFProbe, err == nil, cfg)
}

func newDurationResolver(remote repository.IMediaStore, probe Prober, playback bool, cfg ResolverConfig) *DurationResolver {
	if cfg.LocalTimeout <= 0 {
		cfg.LocalTimeout = 15 * time.Second
	}
	if cfg.MinFileBytes <= 0 {
		cfg.MinFileBytes = 1000
	}
	if cfg.RemoteAttempts < 1 {
		cfg.RemoteAttempts = 5
	}
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = 10 * time.Second
	}
	r := &DurationResolver{remote: remote, probe: probe, playback: playback, cfg: cfg}
	r.policy = retry.Policy{
		MaxAttempts: cfg.RemoteAttempts,
		Delay: func(_ int, err error) time.Duration {
			if errors.Is(err, errStillPending) {
				return cfg.PendingDelay
			}
			return cfg.RemoteDelay
		},
		Retryable: func(err error) bool {
			return !errors.Is(err, model.ErrAssetNotFound) && !errors.Is(err, errNoDuration)
		},
	}
	return r
}

func (r *DurationResolver) Resolve(ctx context.Context, src model.DurationSource) int {
	log := logger.GetLogger().WithField("storageId", src.StorageID)

	if src.LocalPath != "" {
		secs, err := r.local(ctx, src.LocalPath)
		if err == nil && secs > 0 {
			log.WithField("strategy", "local").Debugf("Resolved duration %ds", secs)
			return secs
		}
		log.WithField("strategy", "local").Debugf("Local probe failed: %v", err)
	}

	if src.StorageID != "" && r.remote != nil {
		secs, err := r.remoteQuery(ctx, src.StorageID)
		if err == nil && secs > 0 {
			log.WithField("strategy", "remote").Debugf("Resolved duration %ds", secs)
			return secs
		}
		log.WithField("strategy", "remote").Debugf("Remote query failed: %v", err)
	}

	if src.URL != "" && r.playback {
		secs, err := r.playbackProbe(ctx, src.URL)
		if err == nil && secs > 0 {
			log.WithField("strategy", "playback").Debugf("Resolved duration %ds", secs)
			return secs
		}
		log.WithField("strategy", "playback").Debugf("Playback probe failed: %v", err)
	}

	log.Warn("Could not determine video duration, storing 0")
	return 0
}

func (r *DurationResolver) local(ctx context.Context, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.Size() < r.cfg.MinFileBytes {
		return 0, fmt.Errorf("%w: %d bytes", errFileTooSmall, info.Size())
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.LocalTimeout)
	defer cancel()
	secs, err := r.probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return seconds(secs), nil
}

func (r *DurationResolver) remoteQuery(ctx context.Context, storageID string) (int, error) {
	var secs int
	_, err := r.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		meta, err := r.remote.Probe(ctx, storageID)
		if err != nil {
			return err
		}
		if s := seconds(meta.DurationSeconds); s > 0 {
			secs = s
			return nil
		}
		if meta.Processing {
			return errStillPending
		}
		return errNoDuration
	})
	return secs, err
}

func (r *DurationResolver) playbackProbe(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PlaybackTimeout)
	defer cancel()
	secs, err := r.probe(ctx, url)
	if err != nil {
		return 0, err
	}
	return seconds(secs), nil
}

// FFProbe reads the container duration with the ffprobe binary.
func FFProbe(ctx context.Context, target string) (float64, error) {
	data, err := ffprobe.ProbeURL(ctx, target)
	if err != nil {
		return 0, err
	}
	if data.Format == nil {
		return 0, errNoFormat
	}
	return data.Format.DurationSeconds, nil
}

func seconds(f float64) int {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}
