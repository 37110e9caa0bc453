package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"videotube/internal/domain"
	"videotube/internal/metrics"
	"videotube/internal/repository"
)

const defaultSortKey = "created_at"

// AggregatorOptions configura límites y tiempos del ViewAggregator.
type AggregatorOptions struct {
	Timeout         time.Duration
	DefaultPageSize int
	MaxPageSize     int
	Metrics         *metrics.Metrics
}

// ViewAggregator compone vistas derivadas de solo lectura a partir de entidades y aristas.
// Los flags del espectador salen únicamente de sus propias aristas.
type ViewAggregator struct {
	logger          *zap.Logger
	entities        repository.EntityRepository
	edges           repository.EdgeRepository
	timeout         time.Duration
	defaultPageSize int
	maxPageSize     int
	metrics         *metrics.Metrics
}

func NewViewAggregator(logger *zap.Logger, entities repository.EntityRepository, edges repository.EdgeRepository, opts AggregatorOptions) *ViewAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.DefaultPageSize <= 0 || opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = min(10, opts.MaxPageSize)
	}
	return &ViewAggregator{
		logger:          logger,
		entities:        entities,
		edges:           edges,
		timeout:         opts.Timeout,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
		metrics:         opts.Metrics,
	}
}

func (a *ViewAggregator) DefaultPageSize() int { return a.defaultPageSize }

func (a *ViewAggregator) MaxPageSize() int { return a.maxPageSize }

// ChannelProfile devuelve el perfil público del canal con sus conteos y,
// si hay espectador, si está suscripto.
func (a *ViewAggregator) ChannelProfile(ctx context.Context, channelID, viewerID string) (domain.ChannelProfile, error) {
	channelID = domain.NormalizeID(channelID)
	viewerID = domain.NormalizeID(viewerID)
	if channelID == "" {
		return domain.ChannelProfile{}, domain.ErrInvalidInput.Withf("channel id is required")
	}
	var out domain.ChannelProfile
	err := a.run(ctx, "channel_profile", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			user, err := a.findUser(gctx, channelID)
			if err != nil {
				return err
			}
			out.Profile = user.Profile()
			return nil
		})
		g.Go(func() error {
			n, err := a.edges.CountEdges(gctx, domain.EdgeFilter{
				Kind:       domain.EdgeSubscription,
				TargetType: domain.TargetChannel,
				TargetID:   channelID,
			})
			out.SubscribersCount = n
			return err
		})
		g.Go(func() error {
			n, err := a.edges.CountEdges(gctx, domain.EdgeFilter{
				SubjectID:  channelID,
				Kind:       domain.EdgeSubscription,
				TargetType: domain.TargetChannel,
			})
			out.SubscribedCount = n
			return err
		})
		if viewerID != "" {
			g.Go(func() error {
				_, ok, err := a.edges.FindEdge(gctx, domain.NewEdgeKey(viewerID, domain.EdgeSubscription, domain.TargetChannel, channelID))
				out.IsSubscribed = ok
				return err
			})
		}
		return g.Wait()
	})
	if err != nil {
		return domain.ChannelProfile{}, err
	}
	return out, nil
}

// VideoWithEngagement devuelve el video con su dueño, likes y el flag del espectador.
// Un video no publicado solo es visible para su dueño.
func (a *ViewAggregator) VideoWithEngagement(ctx context.Context, videoID, viewerID string) (domain.VideoEngagement, error) {
	videoID = domain.NormalizeID(videoID)
	viewerID = domain.NormalizeID(viewerID)
	if videoID == "" {
		return domain.VideoEngagement{}, domain.ErrInvalidInput.Withf("video id is required")
	}
	var out domain.VideoEngagement
	err := a.run(ctx, "video_engagement", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			entity, err := a.entities.FindByID(gctx, domain.EntityVideo, videoID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.ErrTargetNotFound.Withf("video %s not found", videoID)
				}
				return err
			}
			video, ok := entity.(domain.Video)
			if !ok {
				return domain.ErrInternal.Withf("unexpected entity for video %s", videoID)
			}
			if !video.Published && !domain.SameIdentity(video.OwnerID, viewerID) {
				return domain.ErrTargetNotFound.Withf("video %s not found", videoID)
			}
			out.Video = video
			owner, err := a.findUser(gctx, video.OwnerID)
			if err != nil {
				if errors.Is(err, domain.ErrTargetNotFound) {
					// Dueño borrado: el video se muestra sin perfil.
					out.Owner = domain.PublicProfile{ID: video.OwnerID}
					return nil
				}
				return err
			}
			out.Owner = owner.Profile()
			return nil
		})
		g.Go(func() error {
			n, err := a.edges.CountEdges(gctx, domain.EdgeFilter{
				Kind:       domain.EdgeLike,
				TargetType: domain.TargetVideo,
				TargetID:   videoID,
			})
			out.LikesCount = n
			return err
		})
		if viewerID != "" {
			g.Go(func() error {
				_, ok, err := a.edges.FindEdge(gctx, domain.NewEdgeKey(viewerID, domain.EdgeLike, domain.TargetVideo, videoID))
				out.IsLiked = ok
				return err
			})
		}
		return g.Wait()
	})
	if err != nil {
		return domain.VideoEngagement{}, err
	}
	return out, nil
}

// ChannelStats agrega videos, vistas, likes y suscriptores del canal.
// Un canal sin videos ni aristas devuelve todo en cero. Solo el dueño
// cuenta sus videos no publicados.
func (a *ViewAggregator) ChannelStats(ctx context.Context, channelID, viewerID string) (domain.ChannelStats, error) {
	channelID = domain.NormalizeID(channelID)
	if channelID == "" {
		return domain.ChannelStats{}, domain.ErrInvalidInput.Withf("channel id is required")
	}
	publishedOnly := !domain.SameIdentity(channelID, viewerID)
	var out domain.ChannelStats
	err := a.run(ctx, "channel_stats", func(ctx context.Context) error {
		if err := a.requireUser(ctx, channelID); err != nil {
			return err
		}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			totals, err := a.entities.VideoTotals(gctx, channelID, publishedOnly)
			out.TotalVideos = totals.Count
			out.TotalViews = totals.Views
			return err
		})
		g.Go(func() error {
			ids, err := a.entities.VideoIDsByOwner(gctx, channelID, publishedOnly)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}
			n, err := a.edges.CountEdges(gctx, domain.EdgeFilter{
				Kind:       domain.EdgeLike,
				TargetType: domain.TargetVideo,
				TargetIDs:  ids,
			})
			out.TotalLikes = n
			return err
		})
		g.Go(func() error {
			n, err := a.edges.CountEdges(gctx, domain.EdgeFilter{
				Kind:       domain.EdgeSubscription,
				TargetType: domain.TargetChannel,
				TargetID:   channelID,
			})
			out.TotalSubscribers = n
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return domain.ChannelStats{}, err
	}
	return out, nil
}

// PlaylistWithVideos devuelve la playlist con su dueño y sus videos en el orden
// guardado. Los videos borrados se omiten, y los no publicados también salvo
// para el dueño de cada video.
func (a *ViewAggregator) PlaylistWithVideos(ctx context.Context, playlistID, viewerID string) (domain.PlaylistView, error) {
	playlistID = domain.NormalizeID(playlistID)
	viewerID = domain.NormalizeID(viewerID)
	if playlistID == "" {
		return domain.PlaylistView{}, domain.ErrInvalidInput.Withf("playlist id is required")
	}
	var out domain.PlaylistView
	err := a.run(ctx, "playlist", func(ctx context.Context) error {
		entity, err := a.entities.FindByID(ctx, domain.EntityPlaylist, playlistID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrTargetNotFound.Withf("playlist %s not found", playlistID)
			}
			return err
		}
		playlist, ok := entity.(domain.Playlist)
		if !ok {
			return domain.ErrInternal.Withf("unexpected entity for playlist %s", playlistID)
		}
		out.Playlist = playlist

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			owner, err := a.findUser(gctx, playlist.OwnerID)
			if err != nil {
				if errors.Is(err, domain.ErrTargetNotFound) {
					out.Owner = domain.PublicProfile{ID: playlist.OwnerID}
					return nil
				}
				return err
			}
			out.Owner = owner.Profile()
			return nil
		})
		g.Go(func() error {
			if len(playlist.VideoIDs) == 0 {
				return nil
			}
			entities, err := a.entities.FindByIDs(gctx, domain.EntityVideo, playlist.VideoIDs)
			if err != nil {
				return err
			}
			byID := make(map[string]domain.Video, len(entities))
			for _, e := range entities {
				if v, ok := e.(domain.Video); ok {
					byID[v.ID] = v
				}
			}
			for _, id := range playlist.VideoIDs {
				v, ok := byID[id]
				if !ok || (!v.Published && !domain.SameIdentity(v.OwnerID, viewerID)) {
					continue
				}
				out.Videos = append(out.Videos, v)
				out.TotalViews += v.Views
			}
			return nil
		})
		return g.Wait()
	})
	if err != nil {
		return domain.PlaylistView{}, err
	}
	if out.Videos == nil {
		out.Videos = []domain.Video{}
	}
	out.TotalVideos = int64(len(out.Videos))
	return out, nil
}

// SubscriberCount es el único dato público sobre quién sigue a un canal.
func (a *ViewAggregator) SubscriberCount(ctx context.Context, channelID string) (domain.SubscriberCount, error) {
	channelID = domain.NormalizeID(channelID)
	if channelID == "" {
		return domain.SubscriberCount{}, domain.ErrInvalidInput.Withf("channel id is required")
	}
	out := domain.SubscriberCount{ChannelID: channelID}
	err := a.run(ctx, "subscriber_count", func(ctx context.Context) error {
		if err := a.requireUser(ctx, channelID); err != nil {
			return err
		}
		n, err := a.edges.CountEdges(ctx, domain.EdgeFilter{
			Kind:       domain.EdgeSubscription,
			TargetType: domain.TargetChannel,
			TargetID:   channelID,
		})
		out.SubscribersCount = n
		return err
	})
	if err != nil {
		return domain.SubscriberCount{}, err
	}
	return out, nil
}

// PaginatedList lista entidades de un tipo con orden estable (clave, id).
func (a *ViewAggregator) PaginatedList(ctx context.Context, entityType domain.EntityType, filter domain.ListFilter, req domain.PageRequest) (domain.Page[domain.Entity], error) {
	if !entityType.Valid() {
		return domain.Page[domain.Entity]{}, domain.ErrInvalidInput.Withf("unknown entity type %q", entityType)
	}
	order, err := a.normalizeSort(entityType, req)
	if err != nil {
		return domain.Page[domain.Entity]{}, err
	}
	if err := a.validatePage(req.Page, req.PageSize); err != nil {
		return domain.Page[domain.Entity]{}, err
	}
	filter.OwnerID = domain.NormalizeID(filter.OwnerID)
	filter.VideoID = domain.NormalizeID(filter.VideoID)
	filter.Query = strings.TrimSpace(filter.Query)

	var out domain.Page[domain.Entity]
	err = a.run(ctx, "paginated_list", func(ctx context.Context) error {
		items, total, err := a.entities.FindPage(ctx, entityType, filter, order, req.Skip(), req.PageSize)
		if err != nil {
			return err
		}
		out = newPage(items, req, total)
		return nil
	})
	if err != nil {
		return domain.Page[domain.Entity]{}, err
	}
	return out, nil
}

// LikedVideos lista los videos que likeó el espectador, más recientes primero.
// Total cuenta likes; los videos borrados no aparecen en Items.
func (a *ViewAggregator) LikedVideos(ctx context.Context, viewerID string, page, pageSize int) (domain.Page[domain.Video], error) {
	viewerID = domain.NormalizeID(viewerID)
	if viewerID == "" {
		return domain.Page[domain.Video]{}, domain.ErrInvalidInput.Withf("viewer id is required")
	}
	if err := a.validatePage(page, pageSize); err != nil {
		return domain.Page[domain.Video]{}, err
	}
	req := domain.PageRequest{Page: page, PageSize: pageSize}
	var out domain.Page[domain.Video]
	err := a.run(ctx, "liked_videos", func(ctx context.Context) error {
		ids, total, err := a.edges.ListTargetIDs(ctx, viewerID, domain.EdgeLike, domain.TargetVideo, req.Skip(), pageSize)
		if err != nil {
			return err
		}
		entities, err := a.entities.FindByIDs(ctx, domain.EntityVideo, ids)
		if err != nil {
			return err
		}
		videos := make([]domain.Video, 0, len(entities))
		for _, e := range entities {
			if v, ok := e.(domain.Video); ok {
				videos = append(videos, v)
			}
		}
		out = newPage(videos, req, total)
		return nil
	})
	if err != nil {
		return domain.Page[domain.Video]{}, err
	}
	return out, nil
}

// SubscribedChannels lista los canales a los que está suscripto el espectador.
func (a *ViewAggregator) SubscribedChannels(ctx context.Context, viewerID string, page, pageSize int) (domain.Page[domain.PublicProfile], error) {
	viewerID = domain.NormalizeID(viewerID)
	if viewerID == "" {
		return domain.Page[domain.PublicProfile]{}, domain.ErrInvalidInput.Withf("viewer id is required")
	}
	if err := a.validatePage(page, pageSize); err != nil {
		return domain.Page[domain.PublicProfile]{}, err
	}
	req := domain.PageRequest{Page: page, PageSize: pageSize}
	var out domain.Page[domain.PublicProfile]
	err := a.run(ctx, "subscribed_channels", func(ctx context.Context) error {
		ids, total, err := a.edges.ListTargetIDs(ctx, viewerID, domain.EdgeSubscription, domain.TargetChannel, req.Skip(), pageSize)
		if err != nil {
			return err
		}
		entities, err := a.entities.FindByIDs(ctx, domain.EntityUser, ids)
		if err != nil {
			return err
		}
		profiles := make([]domain.PublicProfile, 0, len(entities))
		for _, e := range entities {
			if u, ok := e.(domain.User); ok {
				profiles = append(profiles, u.Profile())
			}
		}
		out = newPage(profiles, req, total)
		return nil
	})
	if err != nil {
		return domain.Page[domain.PublicProfile]{}, err
	}
	return out, nil
}

// run aplica el timeout de agregación y traduce los errores de store.
func (a *ViewAggregator) run(ctx context.Context, view string, fn func(ctx context.Context) error) error {
	if a.entities == nil || a.edges == nil {
		return domain.ErrInternal.Withf("view aggregator not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	timedOut := err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded))
	a.metrics.AggregationObserved(view, time.Since(start), timedOut)
	if err == nil {
		return nil
	}
	if timedOut {
		a.logger.Warn("aggregation timed out", zap.String("view", view), zap.Duration("timeout", a.timeout))
		return domain.ErrAggregationTimeout.With(err)
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	a.logger.Error("aggregation failed", zap.String("view", view), zap.Error(err))
	return domain.ErrStore.With(err)
}

func (a *ViewAggregator) findUser(ctx context.Context, id string) (domain.User, error) {
	entity, err := a.entities.FindByID(ctx, domain.EntityUser, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, domain.ErrTargetNotFound.Withf("channel %s not found", id)
		}
		return domain.User{}, err
	}
	user, ok := entity.(domain.User)
	if !ok {
		return domain.User{}, domain.ErrInternal.Withf("unexpected entity for user %s", id)
	}
	return user, nil
}

func (a *ViewAggregator) requireUser(ctx context.Context, id string) error {
	exists, err := a.entities.ExistsByID(ctx, domain.EntityUser, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrTargetNotFound.Withf("channel %s not found", id)
	}
	return nil
}

func (a *ViewAggregator) validatePage(page, pageSize int) error {
	if page < 1 {
		return domain.ErrInvalidInput.Withf("page must be >= 1, got %d", page)
	}
	if pageSize < 1 || pageSize > a.maxPageSize {
		return domain.ErrInvalidInput.Withf("page size must be between 1 and %d, got %d", a.maxPageSize, pageSize)
	}
	return nil
}

func (a *ViewAggregator) normalizeSort(entityType domain.EntityType, req domain.PageRequest) (domain.Sort, error) {
	key := strings.ToLower(strings.TrimSpace(req.SortKey))
	if key == "" {
		key = defaultSortKey
	}
	if !repository.SortKeyAllowed(entityType, key) {
		return domain.Sort{}, domain.ErrInvalidInput.Withf("unknown sort key %q for %s", req.SortKey, entityType)
	}
	dir := domain.SortDir(strings.ToLower(strings.TrimSpace(string(req.SortDir))))
	switch dir {
	case "":
		dir = domain.SortDesc
	case domain.SortAsc, domain.SortDesc:
	default:
		return domain.Sort{}, domain.ErrInvalidInput.Withf("unknown sort direction %q", req.SortDir)
	}
	return domain.Sort{Key: key, Dir: dir}, nil
}

func newPage[T any](items []T, req domain.PageRequest, total int64) domain.Page[T] {
	if items == nil {
		items = []T{}
	}
	return domain.Page[T]{
		Items:      items,
		Page:       req.Page,
		PageSize:   req.PageSize,
		Total:      total,
		TotalPages: domain.TotalPages(total, req.PageSize),
	}
}
