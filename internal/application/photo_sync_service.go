package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	locationDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	photoDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/photo"
	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"github.com/Kilat-Pet-Delivery/service-album/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-album/internal/provider/flickr"
	"github.com/Kilat-Pet-Delivery/service-album/internal/thumbnail"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRefreshSuperseded is returned by a refresh that lost to a newer refresh of the
	// same location, or to the location's deletion, before it replaced any photos.
	ErrRefreshSuperseded = errors.New("refresh superseded")

	// ErrServiceClosed is returned for refreshes requested during shutdown.
	ErrServiceClosed = errors.New("photo sync service closed")
)

const (
	hydrationStored    = metrics.HydrationStored
	hydrationFailed    = metrics.HydrationFailed
	hydrationDiscarded = metrics.HydrationDiscarded
)

// HydrationError describes one photo whose payload could not be fetched or stored.
// It never aborts the refresh.
type HydrationError struct {
	PhotoID uuid.UUID
	URL     string
	Err     error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrate photo %s from %s: %v", e.PhotoID, e.URL, e.Err)
}

func (e *HydrationError) Unwrap() error { return e.Err }

// PhotoSearcher finds photos near a coordinate.
type PhotoSearcher interface {
	SearchNear(ctx context.Context, coord locationDomain.Coordinate) (*flickr.SearchResult, error)
}

// ImageFetcher downloads image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*flickr.Image, error)
}

// SyncConfig tunes the hydration pool.
type SyncConfig struct {
	Workers         int
	DownloadTimeout time.Duration
}

// PhotoSyncService replaces a location's album with a fresh provider search and hydrates
// the new placeholders concurrently.
//
// A new refresh of a location supersedes the one in progress: the old refresh is
// cancelled, and its late results land on rows that no longer exist and are discarded.
type PhotoSyncService struct {
	locations locationDomain.LocationRepository
	photos    photoDomain.PhotoRepository
	searcher  PhotoSearcher
	fetcher   ImageFetcher
	loop      *StoreLoop
	events    *eventbus.Emitter
	cache     *PhotoCache
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cfg       SyncConfig

	baseCtx    context.Context
	cancelBase context.CancelFunc

	// active holds the newest refresh of a location. stored holds the refresh whose
	// placeholders are in the album; it differs from active while a newer refresh searches.
	mu     sync.Mutex
	active map[uuid.UUID]*Refresh
	stored map[uuid.UUID]*Refresh
	last   map[uuid.UUID]*Refresh
	closed bool
	wg     sync.WaitGroup
}

// NewPhotoSyncService creates a new PhotoSyncService.
func NewPhotoSyncService(
	locations locationDomain.LocationRepository,
	photos photoDomain.PhotoRepository,
	searcher PhotoSearcher,
	fetcher ImageFetcher,
	loop *StoreLoop,
	events *eventbus.Emitter,
	cache *PhotoCache,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg SyncConfig,
) *PhotoSyncService {
	if cfg.Workers <= 0 {
		cfg.Workers = 6
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Second
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &PhotoSyncService{
		locations:  locations,
		photos:     photos,
		searcher:   searcher,
		fetcher:    fetcher,
		loop:       loop,
		events:     events,
		cache:      cache,
		metrics:    m,
		logger:     logger,
		cfg:        cfg,
		baseCtx:    baseCtx,
		cancelBase: cancel,
		active:     make(map[uuid.UUID]*Refresh),
		stored:     make(map[uuid.UUID]*Refresh),
		last:       make(map[uuid.UUID]*Refresh),
	}
}

// Refresh searches the provider, replaces the location's photos with placeholders and
// starts hydrating them. It returns once the placeholders are stored; the returned
// handle reports hydration progress and completion.
//
// Search failures abort the refresh before any photo is touched, and a refresh already
// hydrating the album keeps running. It is superseded only once a newer refresh has
// replaced the album. Cancelling ctx aborts the search phase only; hydration continues
// until the refresh completes or is superseded.
func (s *PhotoSyncService) Refresh(ctx context.Context, locationID uuid.UUID) (*Refresh, error) {
	var loc *locationDomain.Location
	if err := s.loop.Do(ctx, func() error {
		var err error
		loc, err = s.locations.FindByID(ctx, locationID)
		return err
	}); err != nil {
		return nil, err
	}

	r, err := s.register(locationID)
	if err != nil {
		return nil, err
	}
	defer s.wg.Done()

	log := s.logger.With(
		zap.String("location_id", locationID.String()),
		zap.String("refresh_id", r.ID().String()),
	)
	log.Info("refresh started")

	stop := context.AfterFunc(ctx, r.cancel)
	result, err := s.searcher.SearchNear(r.ctx, loc.Coordinate())
	stop()
	if err != nil {
		return nil, s.abandon(r, err, log)
	}

	var placeholders []*photoDomain.Photo
	err = s.loop.Do(r.ctx, func() error {
		placeholders = make([]*photoDomain.Photo, 0, len(result.Photos))
		for _, d := range result.Photos {
			p, err := photoDomain.NewPlaceholder(locationID, d.URL)
			if err != nil {
				return err
			}
			placeholders = append(placeholders, p)
		}

		prev, ok := s.claim(r)
		if !ok {
			return ErrRefreshSuperseded
		}
		removed, err := s.photos.ReplaceForLocation(r.ctx, locationID, placeholders)
		if err != nil {
			s.unclaim(r, prev)
			return err
		}
		if prev != nil {
			prev.abort(abortSuperseded)
			log.Info("refresh superseded", zap.String("superseded_refresh_id", prev.ID().String()))
		}
		s.cache.Invalidate(removed...)
		r.startHydration(len(placeholders))

		ids := make([]uuid.UUID, len(placeholders))
		for i, p := range placeholders {
			ids[i] = p.ID()
		}
		s.events.Emit(context.Background(), eventbus.PhotosReplaced, locationID.String(), eventbus.PhotosReplacedEvent{
			LocationID:      locationID,
			RefreshID:       r.ID(),
			RemovedPhotoIDs: removed,
			PlaceholderIDs:  ids,
			OccurredAt:      time.Now().UTC(),
		})

		log.Info("photos replaced",
			zap.Int("removed", len(removed)),
			zap.Int("placeholders", len(placeholders)),
			zap.Int("page", result.Page),
		)

		if len(placeholders) == 0 {
			s.complete(r, log)
		}
		return nil
	})
	if err != nil {
		return nil, s.abandon(r, err, log)
	}

	if len(placeholders) > 0 {
		s.wg.Add(1)
		go s.hydrate(r, placeholders, log)
	}
	return r, nil
}

// Start runs Refresh in the background. Failures are logged.
func (s *PhotoSyncService) Start(locationID uuid.UUID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if _, err := s.Refresh(s.baseCtx, locationID); err != nil {
			s.logger.Warn("background refresh failed",
				zap.String("location_id", locationID.String()),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Status returns the active refresh of a location, or the most recent finished one.
func (s *PhotoSyncService) Status(locationID uuid.UUID) (RefreshSummary, bool) {
	s.mu.Lock()
	r, ok := s.last[locationID]
	s.mu.Unlock()
	if !ok {
		return RefreshSummary{}, false
	}
	return r.Summary(), true
}

// IsActive reports whether a refresh of the location is in progress.
func (s *PhotoSyncService) IsActive(locationID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, searching := s.active[locationID]
	_, hydrating := s.stored[locationID]
	return searching || hydrating
}

// Cancel aborts every running refresh of a location and forgets its history.
// Used when the location is deleted.
func (s *PhotoSyncService) Cancel(locationID uuid.UUID) {
	s.mu.Lock()
	running := []*Refresh{s.active[locationID], s.stored[locationID]}
	delete(s.last, locationID)
	s.mu.Unlock()
	for _, r := range running {
		if r != nil {
			r.abort(abortCanceled)
		}
	}
}

// Close cancels every active refresh and waits for their workers. Hydration results
// already handed to the store loop are applied when the loop drains.
func (s *PhotoSyncService) Close() {
	s.mu.Lock()
	s.closed = true
	for _, r := range s.active {
		r.abort(abortCanceled)
	}
	for _, r := range s.stored {
		r.abort(abortCanceled)
	}
	s.mu.Unlock()

	s.cancelBase()
	s.wg.Wait()
}

func (s *PhotoSyncService) register(locationID uuid.UUID) (*Refresh, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServiceClosed
	}

	// A refresh still searching has not touched the album and can go at once. One that
	// already stored placeholders keeps hydrating until this refresh replaces them.
	if prev, ok := s.active[locationID]; ok && prev != s.stored[locationID] {
		prev.abort(abortSuperseded)
		s.logger.Info("refresh superseded",
			zap.String("location_id", locationID.String()),
			zap.String("refresh_id", prev.ID().String()),
		)
	}

	r := newRefresh(s.baseCtx, locationID)
	s.active[locationID] = r
	s.last[locationID] = r
	s.wg.Add(1)
	s.metrics.RefreshStarted()
	return r, nil
}

// claim marks r as the owner of the album's placeholders and returns the refresh it
// takes over from. It fails if a newer refresh started or r was aborted. Runs on the
// store loop.
func (s *PhotoSyncService) claim(r *Refresh) (*Refresh, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := r.LocationID()
	if s.active[loc] != r || r.ctx.Err() != nil {
		return nil, false
	}
	prev := s.stored[loc]
	s.stored[loc] = r
	return prev, true
}

// unclaim hands the album back to prev after a failed replace.
func (s *PhotoSyncService) unclaim(r, prev *Refresh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := r.LocationID()
	if s.stored[loc] != r {
		return
	}
	if prev != nil {
		s.stored[loc] = prev
	} else {
		delete(s.stored, loc)
	}
}

// release forgets a finished refresh. If a failed refresh leaves an older one hydrating,
// Status reports the older one.
func (s *PhotoSyncService) release(r *Refresh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := r.LocationID()
	if s.active[loc] == r {
		delete(s.active, loc)
	}
	if s.stored[loc] == r {
		delete(s.stored, loc)
	}
	if prev, ok := s.stored[loc]; ok && s.last[loc] == r {
		s.last[loc] = prev
	}
}

// abandon finishes a refresh that never reached hydration and returns the error to
// surface to the caller.
func (s *PhotoSyncService) abandon(r *Refresh, err error, log *zap.Logger) error {
	reason := r.abortReason()
	if reason != notAborted && (errors.Is(err, context.Canceled) || errors.Is(err, ErrRefreshSuperseded)) {
		err = ErrRefreshSuperseded
	}

	s.release(r)
	if !r.finish(err) {
		return err
	}

	outcome := metrics.OutcomeFailed
	if reason != notAborted {
		outcome = metrics.OutcomeSuperseded
	}
	s.metrics.RefreshFinished(outcome, time.Since(r.startedAt))

	log.Warn("refresh failed", zap.Error(err))
	s.events.Emit(context.Background(), eventbus.RefreshFailed, r.LocationID().String(), eventbus.RefreshFailedEvent{
		LocationID: r.LocationID(),
		RefreshID:  r.ID(),
		Reason:     err.Error(),
		OccurredAt: time.Now().UTC(),
	})
	return err
}

// complete runs on the store loop once nothing is pending.
func (s *PhotoSyncService) complete(r *Refresh, log *zap.Logger) {
	s.release(r)
	if !r.finish(nil) {
		return
	}

	summary := r.Summary()
	outcome := metrics.OutcomeCompleted
	if summary.Superseded || summary.Canceled {
		outcome = metrics.OutcomeSuperseded
	}
	s.metrics.RefreshFinished(outcome, time.Since(r.startedAt))

	log.Info("refresh completed",
		zap.Int("total", summary.Total),
		zap.Int("hydrated", summary.Hydrated),
		zap.Int("failed", summary.Failed),
		zap.Int("discarded", summary.Discarded),
		zap.Bool("superseded", summary.Superseded || summary.Canceled),
	)
	s.events.Emit(context.Background(), eventbus.RefreshCompleted, r.LocationID().String(), eventbus.RefreshCompletedEvent{
		LocationID: r.LocationID(),
		RefreshID:  r.ID(),
		Total:      summary.Total,
		Hydrated:   summary.Hydrated,
		Failed:     summary.Failed,
		Discarded:  summary.Discarded,
		Superseded: summary.Superseded || summary.Canceled,
		OccurredAt: time.Now().UTC(),
	})
}

// hydrate downloads every placeholder on a bounded pool. Workers never touch the store;
// each result is handed to the store loop.
func (s *PhotoSyncService) hydrate(r *Refresh, placeholders []*photoDomain.Photo, log *zap.Logger) {
	defer s.wg.Done()

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, p := range placeholders {
		g.Go(func() error {
			payload, err := s.download(r.ctx, p)
			if perr := s.loop.Post(func() { s.applyHydration(r, p, payload, err, log) }); perr != nil {
				log.Error("hydration result dropped", zap.String("photo_id", p.ID().String()), zap.Error(perr))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *PhotoSyncService) download(ctx context.Context, p *photoDomain.Photo) (photoDomain.Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	defer cancel()

	img, err := s.fetcher.Fetch(ctx, p.SourceURL())
	if err != nil {
		return photoDomain.Payload{}, &HydrationError{PhotoID: p.ID(), URL: p.SourceURL(), Err: err}
	}

	meta, err := thumbnail.Inspect(img.Data)
	if err != nil {
		return photoDomain.Payload{}, &HydrationError{PhotoID: p.ID(), URL: p.SourceURL(), Err: err}
	}
	return photoDomain.Payload{
		Data:        img.Data,
		ContentType: meta.ContentType,
		Width:       meta.Width,
		Height:      meta.Height,
	}, nil
}

// applyHydration runs on the store loop.
func (s *PhotoSyncService) applyHydration(r *Refresh, p *photoDomain.Photo, payload photoDomain.Payload, fetchErr error, log *zap.Logger) {
	outcome := hydrationStored
	err := fetchErr
	switch {
	case err != nil && r.abortReason() != notAborted && errors.Is(err, context.Canceled):
		outcome = hydrationDiscarded
	case err != nil:
		outcome = hydrationFailed
	default:
		err = s.photos.SetPayload(context.Background(), p.ID(), payload)
		switch {
		case err == nil:
		case domain.IsNotFound(err), errors.Is(err, photoDomain.ErrAlreadyHydrated):
			outcome = hydrationDiscarded
		default:
			outcome = hydrationFailed
			err = &HydrationError{PhotoID: p.ID(), URL: p.SourceURL(), Err: err}
		}
	}

	s.metrics.Hydration(outcome)
	remaining := r.record(outcome)
	photoLog := log.With(zap.String("photo_id", p.ID().String()), zap.Int("remaining", remaining))

	switch outcome {
	case hydrationStored:
		photoLog.Debug("photo hydrated", zap.Int("bytes", len(payload.Data)))
		s.events.Emit(context.Background(), eventbus.PhotoHydrated, r.LocationID().String(), eventbus.PhotoHydratedEvent{
			LocationID:  r.LocationID(),
			RefreshID:   r.ID(),
			PhotoID:     p.ID(),
			ContentType: payload.ContentType,
			Width:       payload.Width,
			Height:      payload.Height,
			Remaining:   remaining,
			OccurredAt:  time.Now().UTC(),
		})
	case hydrationDiscarded:
		photoLog.Debug("hydration result discarded", zap.Error(err))
	default:
		photoLog.Warn("photo hydration failed", zap.Error(err))
		s.events.Emit(context.Background(), eventbus.PhotoHydrationFailed, r.LocationID().String(), eventbus.PhotoHydrationFailedEvent{
			LocationID: r.LocationID(),
			RefreshID:  r.ID(),
			PhotoID:    p.ID(),
			Reason:     err.Error(),
			Remaining:  remaining,
			OccurredAt: time.Now().UTC(),
		})
	}

	if remaining == 0 {
		s.complete(r, log)
	}
}
