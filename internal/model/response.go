package model

import (
	"encoding/base64"
	"time"
)

type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CreatePostResponse struct {
	Message string `json:"message"`
	PostID  string `json:"postId"`
	Status  string `json:"status"`
}

type PostResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	Content    string    `json:"content"`
	CoverImage string    `json:"coverImage,omitempty"`
	Author     Author    `json:"author"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewPostResponse(p Post) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Category:  p.Category,
		Status:    p.Status,
		Content:   p.Content,
		Author:    p.Author,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Cover != nil && len(p.Cover.Data) > 0 {
		resp.CoverImage = "data:" + p.Cover.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Cover.Data)
	}
	return resp
}
