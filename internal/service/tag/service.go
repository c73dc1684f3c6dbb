package tag

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/logger"
)

type TagStore interface {
	List(ctx context.Context, search string) ([]model.Tag, error)
	Insert(ctx context.Context, t *model.Tag) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	tags   TagStore
	logger *zap.Logger
}

func NewService(tags TagStore, logger *zap.Logger) *Service {
	return &Service{tags: tags, logger: logger}
}

func (s *Service) List(ctx context.Context, search string) ([]model.Tag, error) {
	return s.tags.List(ctx, strings.TrimSpace(search))
}

// Create builds the tag (deriving its slug) and stores it.
func (s *Service) Create(ctx context.Context, name, slug string) (*model.Tag, error) {
	t, err := model.NewTag(name, slug)
	if err != nil {
		return nil, err
	}
	if err := s.tags.Insert(ctx, t); err != nil {
		return nil, err
	}
	logger.WithTrace(ctx, s.logger).Info("Tag created", zap.Int64("tag_id", t.ID), zap.String("slug", t.Slug))
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tags.Delete(ctx, id)
}
