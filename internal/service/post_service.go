package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-blog-backend/internal/event"
	"go-blog-backend/internal/model"
	"go-blog-backend/pkg/apierror"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type postStore interface {
	Create(ctx context.Context, p model.Post) (model.Post, error)
	FindByID(ctx context.Context, id string) (model.Post, error)
	List(ctx context.Context, filter model.PostFilter) ([]model.Post, error)
	DeleteOwned(ctx context.Context, id string, authorID string) error
}

type PostService struct {
	posts         postStore
	bus           event.Bus
	publishedOnly bool
}

func NewPostService(posts postStore, bus event.Bus, publishedOnly bool) *PostService {
	return &PostService{posts: posts, bus: bus, publishedOnly: publishedOnly}
}

// Create validates the submission and stores it under author. Author fields
// come only from the resolved identity.
func (s *PostService) Create(ctx context.Context, author model.Identity, req model.CreatePostRequest) (model.Post, error) {
	if !author.Complete() {
		return model.Post{}, apierror.Unauthorized("authentication required")
	}

	draft, err := ValidatePost(req)
	if err != nil {
		return model.Post{}, err
	}

	post, err := s.posts.Create(ctx, model.Post{
		Title:    draft.Title,
		Category: draft.Category,
		Status:   draft.Status,
		Content:  draft.Content,
		Cover:    draft.Cover,
		Author:   author,
	})
	if err != nil {
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}

	if !s.publishedOnly || post.Status == model.PostStatusPublished {
		s.publish(event.New(event.TypePostCreated, author.ID, post.Summary()))
	}

	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (model.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, model.ErrPostNotFound) {
		return model.Post{}, apierror.NotFound("post not found", id)
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (s *PostService) Cover(ctx context.Context, id string) (model.CoverImage, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return model.CoverImage{}, err
	}
	if post.Cover == nil || len(post.Cover.Data) == 0 {
		return model.CoverImage{}, apierror.NotFound("cover image not found", id)
	}
	return *post.Cover, nil
}

func (s *PostService) List(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	filter.Status = strings.TrimSpace(filter.Status)
	filter.Category = strings.TrimSpace(filter.Category)

	switch filter.Status {
	case "", model.PostStatusDraft, model.PostStatusPublished:
	default:
		return nil, apierror.Validation("status", "status must be draft or published")
	}

	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit < 1 || filter.Limit > maxListLimit {
		return nil, apierror.Validation("limit", fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
	}

	if s.publishedOnly {
		if filter.Status == model.PostStatusDraft {
			return []model.Post{}, nil
		}
		filter.Status = model.PostStatusPublished
	}

	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Delete removes the post when requester is its author.
func (s *PostService) Delete(ctx context.Context, id string, requester model.Identity) error {
	if requester.ID == "" {
		return apierror.Unauthorized("authentication required")
	}

	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if post.Author.ID != requester.ID {
		return apierror.Forbidden("only the author can delete this post")
	}

	err = s.posts.DeleteOwned(ctx, post.ID, requester.ID)
	if errors.Is(err, model.ErrPostNotFound) {
		return apierror.NotFound("post not found", id)
	}
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if !s.publishedOnly || post.Status == model.PostStatusPublished {
		s.publish(event.New(event.TypePostDeleted, requester.ID, map[string]string{"id": post.ID}))
	}

	return nil
}

func (s *PostService) publish(e event.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(e)
}
