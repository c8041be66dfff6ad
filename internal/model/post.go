package model

import "time"

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// MaxCoverImageBytes bounds the decoded size of a post cover image.
const MaxCoverImageBytes = 5 * 1024 * 1024

type Author = Identity

type CoverImage struct {
	MIMEType string
	Data     []byte
}

type Post struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Category  string      `json:"category"`
	Status    string      `json:"status"`
	Content   string      `json:"content"`
	Cover     *CoverImage `json:"-"`
	Author    Author      `json:"author"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// PostDraft is a submission that passed validation and is ready to persist.
type PostDraft struct {
	Title    string
	Category string
	Status   string
	Content  string
	Cover    *CoverImage
}

type PostFilter struct {
	Status   string
	Category string
	Limit    int
}

// PostSummary is the post shape carried by feed events.
type PostSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Post) Summary() PostSummary {
	return PostSummary{
		ID:        p.ID,
		Title:     p.Title,
		Category:  p.Category,
		Status:    p.Status,
		Author:    p.Author,
		CreatedAt: p.CreatedAt,
	}
}
