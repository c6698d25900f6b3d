package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/localstore"
	"github.com/set-night/cosmiccreator/internal/poll"
	"github.com/set-night/cosmiccreator/internal/storage"
)

const (
	msgNoVideo     = "Generation finished but no video was found."
	msgTimedOut    = "The animation did not manifest in time. Please try again."
	msgInvalidKey  = "Your API key is invalid. Please select a valid key."
	msgPollFailure = "Failed to poll video status."
)

var loadingMessages = []string{
	"Aligning cosmic frequencies...",
	"Gathering starlight...",
	"Weaving temporal threads...",
	"Synchronizing realities...",
	"Manifesting the vision...",
	"The animation is almost complete...",
}

// AnimateRequest starts a video job. Without Source the star's current
// image is used; without Prompt the star's animation prompt is used.
type AnimateRequest struct {
	Creator     string
	StarID      string
	Prompt      string
	AspectRatio string
	Source      *domain.Media
}

type videoJob struct {
	job    domain.VideoJob
	cancel context.CancelFunc
	video  domain.Media
}

// Animator runs video generation jobs, one goroutine each.
type Animator struct {
	videos    VideoGenerator
	blobs     *localstore.BlobStore
	cloud     *storage.CloudStore // videos bucket, nil when not configured
	sanctuary *Sanctuary
	notifier  Notifier
	client    *http.Client

	interval    time.Duration
	maxAttempts int
	now         func() time.Time

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	jobs   map[string]*videoJob
	closed bool
}

func NewAnimator(videos VideoGenerator, blobs *localstore.BlobStore, cloud *storage.CloudStore, sanctuary *Sanctuary, notifier Notifier) *Animator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	base, stop := context.WithCancel(context.Background())
	return &Animator{
		videos:      videos,
		blobs:       blobs,
		cloud:       cloud,
		sanctuary:   sanctuary,
		notifier:    notifier,
		client:      &http.Client{Timeout: config.SourceImageTimeout},
		interval:    config.VideoPollInterval,
		maxAttempts: config.VideoPollMaxAttempts,
		now:         time.Now,
		base:        base,
		stop:        stop,
		jobs:        make(map[string]*videoJob),
	}
}

// Start validates the request, resolves the source image and launches the
// job. The returned snapshot is in the generating state.
func (a *Animator) Start(ctx context.Context, req AnimateRequest) (domain.VideoJob, error) {
	aspectRatio, err := pickAspectRatio(req.AspectRatio, config.DefaultVideoAspect, config.VideoAspectRatios)
	if err != nil {
		return domain.VideoJob{}, err
	}

	prompt := strings.TrimSpace(req.Prompt)
	var source domain.Media
	if req.Source != nil {
		source = *req.Source
	}

	if req.StarID != "" {
		star, err := a.sanctuary.Star(ctx, req.Creator, req.StarID)
		if err != nil {
			return domain.VideoJob{}, err
		}
		if prompt == "" {
			prompt = AnimationPrompt(star)
		}
		if len(source.Data) == 0 {
			source, err = a.fetchSource(ctx, star.Image)
			if err != nil {
				return domain.VideoJob{}, fmt.Errorf("load star image: %w", err)
			}
		}
	}

	if len(source.Data) == 0 {
		return domain.VideoJob{}, domain.ErrMissingSource
	}
	if source.Kind() != domain.MediaTypeImage {
		return domain.VideoJob{}, domain.ErrNotAnImage
	}
	if prompt == "" {
		return domain.VideoJob{}, domain.ErrEmptyPrompt
	}

	now := a.now()
	e := &videoJob{job: domain.VideoJob{
		ID:          uuid.NewString(),
		Creator:     req.Creator,
		StarID:      req.StarID,
		Prompt:      prompt,
		AspectRatio: aspectRatio,
		Status:      domain.JobStatusGenerating,
		Message:     loadingMessages[0],
		CreatedAt:   now,
		UpdatedAt:   now,
	}}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return domain.VideoJob{}, domain.ErrShuttingDown
	}
	jobCtx, cancel := context.WithCancel(a.base)
	e.cancel = cancel
	a.jobs[e.job.ID] = e
	a.wg.Add(1)
	snapshot := e.job
	a.mu.Unlock()

	go a.run(jobCtx, e, source)

	slog.Info("video job started", "job", snapshot.ID, "creator", snapshot.Creator, "star", snapshot.StarID)
	return snapshot, nil
}

// Get returns the job if it belongs to the creator.
func (a *Animator) Get(creator, id string) (domain.VideoJob, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.jobs[id]
	if !ok || e.job.Creator != creator {
		return domain.VideoJob{}, domain.ErrJobNotFound
	}
	return e.job, nil
}

// Cancel stops polling for the job. The vendor operation is left running.
func (a *Animator) Cancel(creator, id string) (domain.VideoJob, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.jobs[id]
	if !ok || e.job.Creator != creator {
		return domain.VideoJob{}, domain.ErrJobNotFound
	}
	if !e.job.Status.Terminal() {
		e.job.Status = domain.JobStatusCanceled
		e.job.Message = ""
		e.job.UpdatedAt = a.now()
		e.cancel()
	}
	return e.job, nil
}

// Video returns the bytes of a finished job.
func (a *Animator) Video(ctx context.Context, creator, id string) (domain.Media, error) {
	a.mu.Lock()
	e, ok := a.jobs[id]
	if !ok || e.job.Creator != creator {
		a.mu.Unlock()
		return domain.Media{}, domain.ErrJobNotFound
	}
	job, video := e.job, e.video
	a.mu.Unlock()

	if job.Status != domain.JobStatusSuccess {
		return domain.Media{}, domain.ErrJobNotReady
	}
	if len(video.Data) > 0 {
		return video, nil
	}
	return a.blobs.Open(ctx, creator, job.StarID)
}

// Prune forgets finished jobs not updated within olderThan.
func (a *Animator) Prune(olderThan time.Duration) int {
	cutoff := a.now().Add(-olderThan)

	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for id, e := range a.jobs {
		if e.job.Status.Terminal() && e.job.UpdatedAt.Before(cutoff) {
			delete(a.jobs, id)
			n++
		}
	}
	return n
}

// RunJanitor prunes stale jobs periodically until ctx is done.
func (a *Animator) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(config.StaleJobCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Prune(config.StaleJobRetention); n > 0 {
				slog.Debug("pruned video jobs", "count", n)
			}
		}
	}
}

// Shutdown cancels every running job and waits for them to stop.
func (a *Animator) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.stop()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for video jobs: %w", ctx.Err())
	}
}

func (a *Animator) run(ctx context.Context, e *videoJob, source domain.Media) {
	defer a.wg.Done()
	defer e.cancel()

	job := a.snapshot(e)

	op, err := a.videos.StartVideo(ctx, source, job.Prompt, job.AspectRatio)
	if err != nil {
		a.fail(ctx, e, err, "")
		return
	}

	a.mutate(e, func(j *domain.VideoJob) {
		j.Status = domain.JobStatusPolling
		j.Operation = op.Name
	})

	if !op.Done {
		_, err = poll.Until(ctx, a.interval, a.maxAttempts, func(ctx context.Context, attempt int) (bool, error) {
			next, err := a.videos.PollVideo(ctx, op.Name)
			if err != nil {
				return false, err
			}
			op = next
			a.mutate(e, func(j *domain.VideoJob) {
				j.Attempts = attempt
				j.Message = loadingMessages[attempt%len(loadingMessages)]
			})
			return op.Done, nil
		})
		if err != nil {
			a.fail(ctx, e, err, msgPollFailure)
			return
		}
	}

	if op.VideoURI == "" {
		msg := op.Error
		if msg == "" {
			msg = msgNoVideo
		}
		a.finish(e, domain.JobStatusError, msg, "", domain.Media{})
		return
	}

	video, err := a.videos.FetchVideo(ctx, op.VideoURI)
	if err != nil {
		a.fail(ctx, e, err, msgPollFailure)
		return
	}

	url, err := a.persist(ctx, job, video)
	if err != nil {
		a.fail(ctx, e, err, "")
		return
	}

	a.finish(e, domain.JobStatusSuccess, "", url, video)
	a.notifier.LogVideoManifested(job.Creator, job.StarID)
	slog.Info("video job finished", "job", job.ID, "creator", job.Creator, "star", job.StarID)
}

// persist stores a star's video in the blob store, and in the cloud videos
// bucket when configured. Videos without a star stay in memory.
func (a *Animator) persist(ctx context.Context, job domain.VideoJob, video domain.Media) (string, error) {
	if job.StarID == "" {
		return "/api/chambers/animator/jobs/" + job.ID + "/video", nil
	}

	url, err := a.blobs.Save(ctx, job.Creator, job.StarID, video)
	if err != nil {
		return "", fmt.Errorf("store video: %w", err)
	}

	if a.cloud != nil {
		if _, err := a.cloud.Save(ctx, job.Creator, job.StarID, video); err != nil {
			slog.Warn("upload video to cloud", "job", job.ID, "error", err)
		}
	}

	if _, err := a.sanctuary.SetVideo(ctx, job.Creator, job.StarID, url); err != nil {
		slog.Warn("update star video", "job", job.ID, "error", err)
	}
	return url, nil
}

func (a *Animator) fail(ctx context.Context, e *videoJob, err error, fallback string) {
	if ctx.Err() != nil {
		a.finish(e, domain.JobStatusCanceled, "", "", domain.Media{})
		return
	}

	var msg string
	switch {
	case errors.Is(err, domain.ErrInvalidAPIKey):
		msg = msgInvalidKey
	case errors.Is(err, poll.ErrExhausted):
		msg = msgTimedOut
	case fallback != "":
		msg = fallback
	default:
		msg = err.Error()
	}

	slog.Error("video job failed", "job", e.job.ID, "error", err)
	a.notifier.LogError(err, "video job "+e.job.ID)
	a.finish(e, domain.JobStatusError, msg, "", domain.Media{})
}

// finish records the final state unless the job already ended.
func (a *Animator) finish(e *videoJob, status domain.JobStatus, msg, url string, video domain.Media) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.job.Status.Terminal() {
		return
	}
	e.job.Status = status
	e.job.Error = msg
	e.job.Message = ""
	e.job.VideoURL = url
	e.job.UpdatedAt = a.now()
	if e.job.StarID == "" {
		e.video = video
	}
}

func (a *Animator) mutate(e *videoJob, fn func(*domain.VideoJob)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.job.Status.Terminal() {
		return
	}
	fn(&e.job)
	e.job.UpdatedAt = a.now()
}

func (a *Animator) snapshot(e *videoJob) domain.VideoJob {
	a.mu.Lock()
	defer a.mu.Unlock()
	return e.job
}

// fetchSource loads a star image that is either inline or hosted.
func (a *Animator) fetchSource(ctx context.Context, url string) (domain.Media, error) {
	if strings.HasPrefix(url, "data:") {
		return storage.DecodeDataURL(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Media{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return domain.Media{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Media{}, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxUploadBytes))
	if err != nil {
		return domain.Media{}, fmt.Errorf("read image: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return domain.Media{Data: data, MIMEType: mimeType}, nil
}
