package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"videotube/internal/domain"
	"videotube/internal/metrics"
	"videotube/internal/repository"
)

// ToggleResult es el estado de la relación después del toggle.
type ToggleResult struct {
	Key    domain.EdgeKey `json:"key"`
	Active bool           `json:"active"`
}

// ToggleService crea o borra relaciones de like y suscripción.
type ToggleService struct {
	logger   *zap.Logger
	entities repository.EntityRepository
	edges    repository.EdgeRepository
	limiter  ToggleRateLimiter
	metrics  *metrics.Metrics
}

func NewToggleService(logger *zap.Logger, entities repository.EntityRepository, edges repository.EdgeRepository, limiter ToggleRateLimiter, m *metrics.Metrics) *ToggleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToggleService{
		logger:   logger,
		entities: entities,
		edges:    edges,
		limiter:  limiter,
		metrics:  m,
	}
}

func (s *ToggleService) ToggleVideoLike(ctx context.Context, userID, videoID string) (ToggleResult, error) {
	return s.Toggle(ctx, domain.NewEdgeKey(userID, domain.EdgeLike, domain.TargetVideo, videoID))
}

func (s *ToggleService) ToggleCommentLike(ctx context.Context, userID, commentID string) (ToggleResult, error) {
	return s.Toggle(ctx, domain.NewEdgeKey(userID, domain.EdgeLike, domain.TargetComment, commentID))
}

func (s *ToggleService) ToggleTweetLike(ctx context.Context, userID, tweetID string) (ToggleResult, error) {
	return s.Toggle(ctx, domain.NewEdgeKey(userID, domain.EdgeLike, domain.TargetTweet, tweetID))
}

func (s *ToggleService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (ToggleResult, error) {
	return s.Toggle(ctx, domain.NewEdgeKey(subscriberID, domain.EdgeSubscription, domain.TargetChannel, channelID))
}

// Toggle invierte la existencia de la arista key en un solo flip atómico.
// Un choque de unicidad se reintenta una vez; el segundo choque se reporta.
func (s *ToggleService) Toggle(ctx context.Context, key domain.EdgeKey) (ToggleResult, error) {
	if s.entities == nil || s.edges == nil {
		return ToggleResult{}, domain.ErrInternal.Withf("toggle service not configured")
	}
	key = domain.NewEdgeKey(key.SubjectID, key.Kind, key.TargetType, key.TargetID)
	if err := key.Validate(); err != nil {
		return ToggleResult{}, err
	}
	exists, err := s.entities.ExistsByID(ctx, key.TargetType.EntityType(), key.TargetID)
	if err != nil {
		return ToggleResult{}, domain.ErrStore.With(err)
	}
	if !exists {
		return ToggleResult{}, domain.ErrTargetNotFound.Withf("%s %s not found", key.TargetType, key.TargetID)
	}

	if s.limiter != nil {
		if wait, ok := s.limiter.Allow(ctx, key.SubjectID, key.Kind); !ok {
			s.metrics.ToggleRecorded(string(key.Kind), "rate_limited")
			return ToggleResult{}, domain.ErrRateLimited.WithRetryAfter(wait)
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		res, err := s.edges.FlipEdge(ctx, key)
		if err == nil {
			s.metrics.ToggleRecorded(string(key.Kind), res.String())
			s.logger.Debug("edge toggled",
				zap.String("edge", key.String()),
				zap.String("result", res.String()),
			)
			return ToggleResult{Key: key, Active: res == domain.FlipCreated}, nil
		}
		if !errors.Is(err, repository.ErrEdgeConflict) {
			var derr *domain.Error
			if errors.As(err, &derr) {
				return ToggleResult{}, err
			}
			s.logger.Error("flip edge failed", zap.String("edge", key.String()), zap.Error(err))
			return ToggleResult{}, domain.ErrStore.With(err)
		}
		if attempt == 0 {
			s.metrics.ToggleRetried()
			s.logger.Debug("toggle conflict, retrying", zap.String("edge", key.String()))
		}
	}
	s.metrics.ToggleConflicted()
	s.logger.Warn("toggle conflict not resolved", zap.String("edge", key.String()))
	return ToggleResult{}, domain.ErrToggleConflict
}
