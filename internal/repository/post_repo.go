package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-blog-backend/internal/model"
)

const postColumns = `id::text, title, category, status, content, cover_image, cover_mime,
		        author_id, author_name, author_email, created_at, updated_at`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Create(ctx context.Context, p model.Post) (model.Post, error) {
	var coverData []byte
	var coverMIME *string
	if p.Cover != nil && len(p.Cover.Data) > 0 {
		coverData = p.Cover.Data
		coverMIME = &p.Cover.MIMEType
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (title, category, status, content, cover_image, cover_mime,
		                    author_id, author_name, author_email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id::text, created_at, updated_at`,
		p.Title, p.Category, p.Status, p.Content, coverData, coverMIME,
		p.Author.ID, p.Author.Name, p.Author.Email).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (model.Post, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return model.Post{}, model.ErrPostNotFound
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, strings.TrimSpace(id))

	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Post{}, model.ErrPostNotFound
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// List returns posts in insertion order, oldest first.
func (r *PostRepository) List(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 3)
	argIdx := 1

	if status := strings.TrimSpace(filter.Status); status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, status)
		argIdx++
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		where = append(where, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, category)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM posts %s ORDER BY seq ASC LIMIT $%d`, postColumns, whereClause, argIdx)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// DeleteOwned deletes the post only while it still belongs to authorID.
func (r *PostRepository) DeleteOwned(ctx context.Context, id string, authorID string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return model.ErrPostNotFound
	}

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND author_id = $2`, strings.TrimSpace(id), authorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	var coverData []byte
	var coverMIME *string

	err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Status, &p.Content, &coverData, &coverMIME,
		&p.Author.ID, &p.Author.Name, &p.Author.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Post{}, err
	}

	if len(coverData) > 0 && coverMIME != nil {
		p.Cover = &model.CoverImage{MIMEType: *coverMIME, Data: coverData}
	}
	return p, nil
}
