package model

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreatePostRequest struct {
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Status     string  `json:"status"`
	Content    string  `json:"content"`
	CoverImage *string `json:"coverImage"`
}
