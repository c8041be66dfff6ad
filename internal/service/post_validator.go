package service

import (
	"encoding/base64"
	"strings"

	"go-blog-backend/internal/model"
	"go-blog-backend/internal/util"
	"go-blog-backend/pkg/apierror"
)

// ValidatePost checks a submission and returns the trimmed draft. Rules run in
// a fixed order and the first failure is reported. It never touches a store.
func ValidatePost(req model.CreatePostRequest) (model.PostDraft, error) {
	draft := model.PostDraft{
		Title:    strings.TrimSpace(req.Title),
		Category: strings.TrimSpace(req.Category),
		Status:   strings.TrimSpace(req.Status),
		Content:  strings.TrimSpace(req.Content),
	}

	if draft.Title == "" {
		return model.PostDraft{}, apierror.Validation("title", "title is required")
	}
	if draft.Category == "" {
		return model.PostDraft{}, apierror.Validation("category", "category is required")
	}
	if draft.Content == "" {
		return model.PostDraft{}, apierror.Validation("content", "content is required")
	}

	switch draft.Status {
	case "":
		draft.Status = model.PostStatusDraft
	case model.PostStatusDraft, model.PostStatusPublished:
	default:
		return model.PostDraft{}, apierror.Validation("status", "status must be draft or published")
	}

	if req.CoverImage != nil {
		cover, err := decodeCoverImage(*req.CoverImage)
		if err != nil {
			return model.PostDraft{}, err
		}
		draft.Cover = cover
	}

	return draft, nil
}

func decodeCoverImage(raw string) (*model.CoverImage, error) {
	encoded := strings.TrimSpace(raw)
	if encoded == "" {
		return nil, nil
	}

	// data:image/png;base64,<payload>
	if idx := strings.IndexByte(encoded, ','); idx >= 0 {
		encoded = encoded[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, apierror.Validation("coverImage", "cover image is not valid base64")
	}

	if len(data) > model.MaxCoverImageBytes {
		return nil, apierror.TooLarge("coverImage", "cover image exceeds 5MB")
	}

	mimeType, err := util.DetectImageMIME(data)
	if err != nil {
		return nil, apierror.Validation("coverImage", "cover image format is not supported")
	}

	return &model.CoverImage{MIMEType: mimeType, Data: data}, nil
}
