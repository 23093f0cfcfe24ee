package service

import (
	"context"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/validation"
)

type GroupService struct {
	groupRepo repository.GroupRepository
}

type CreateGroupInput struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

func NewGroupService(groupRepo repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

func (s *GroupService) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return s.groupRepo.GetBySlug(ctx, slug)
}

func (s *GroupService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.groupRepo.List(ctx)
}

func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	group, err := newGroup(in)
	if err != nil {
		return nil, err
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// ImportGroups upserts every group by slug. Nothing is written if any entry is invalid.
func (s *GroupService) ImportGroups(ctx context.Context, in []CreateGroupInput) (int, error) {
	groups := make([]*models.Group, 0, len(in))
	for _, item := range in {
		group, err := newGroup(item)
		if err != nil {
			return 0, err
		}
		groups = append(groups, group)
	}
	for i, group := range groups {
		if err := s.groupRepo.Upsert(ctx, group); err != nil {
			return i, err
		}
	}
	return len(groups), nil
}

func newGroup(in CreateGroupInput) (*models.Group, error) {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateGroupSlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateGroupTitle(title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return &models.Group{Title: title, Slug: slug, Description: strings.TrimSpace(in.Description)}, nil
}
