package service

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"notebook/internal/errs"
	"notebook/internal/models"
	"notebook/internal/store"
)

type TagService struct {
	store store.Store
	log   *slog.Logger
}

func NewTagService(s store.Store, logger *slog.Logger) *TagService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagService{store: s, log: logger}
}

// Create is idempotent by name: when the name is taken the existing tag is returned
// unchanged and created is false.
func (s *TagService) Create(ctx context.Context, req models.CreateTagRequest) (tag *models.Tag, created bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	tag, err = s.store.CreateTag(ctx, req.Name, req.Color)
	if err == nil {
		return tag, true, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return nil, false, errs.Store(err, "create tag")
	}

	s.log.Debug("tag exists, returning it", "name", req.Name)
	tag, err = s.store.GetTagByName(ctx, req.Name)
	if err != nil {
		return nil, false, errs.Store(err, "fetch existing tag")
	}
	return tag, false, nil
}

// List returns all tags, oldest first.
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, errs.Store(err, "list tags")
	}
	return tags, nil
}
