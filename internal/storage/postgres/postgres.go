package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ButyrinIA/blog/internal/models"
	"github.com/ButyrinIA/blog/internal/storage"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS blog_posts (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		author TEXT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		excerpt TEXT NOT NULL DEFAULT '',
		category TEXT,
		image_url TEXT,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		total_likes INTEGER NOT NULL DEFAULT 0,
		total_shares INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_blog_posts_published_created ON blog_posts(published, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_blog_posts_author_id ON blog_posts(author_id);
	CREATE TABLE IF NOT EXISTS post_likes (
		post_id TEXT NOT NULL REFERENCES blog_posts(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (post_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS post_shares (
		post_id TEXT NOT NULL REFERENCES blog_posts(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (post_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES blog_posts(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`

const postColumns = `id, author_id, author, title, content, excerpt, COALESCE(category, ''), image_url,
	published, created_at, updated_at, total_likes, total_shares`

// код postgres для нарушения внешнего ключа
const foreignKeyViolation = "23503"

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New открывает пул соединений и создает схему
func New(ctx context.Context, dsn string, maxConns int32) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Author, &p.Title, &p.Content, &p.Excerpt, &p.Category, &p.ImageURL,
		&p.Published, &p.CreatedAt, &p.UpdatedAt, &p.TotalLikes, &p.TotalShares)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStorage) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PostgresStorage) ListPublishedPosts(ctx context.Context) ([]*models.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE published = TRUE
		ORDER BY created_at DESC`)
}

func (s *PostgresStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return p, err
}

func (s *PostgresStorage) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE author_id = $1
		ORDER BY created_at DESC`, authorID)
}

func (s *PostgresStorage) ListPublishedCategories(ctx context.Context) ([]*string, error) {
	rows, err := s.pool.Query(ctx, `SELECT category FROM blog_posts WHERE published = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*string, 0)
	for rows.Next() {
		var c *string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blog_posts (id, author_id, author, title, content, excerpt, category, image_url,
			published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11)`,
		post.ID, post.AuthorID, post.Author, post.Title, post.Content, post.Excerpt, post.Category, post.ImageURL,
		post.Published, post.CreatedAt, post.UpdatedAt)
	return err
}

func (s *PostgresStorage) UpdatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `
		UPDATE blog_posts
		SET title = $1, content = $2, excerpt = $3, category = NULLIF($4, ''),
			image_url = CASE WHEN $5::TEXT IS NULL THEN image_url ELSE NULLIF($5, '') END,
			author = COALESCE($6, author), updated_at = $7
		WHERE id = $8 AND author_id = $9
		RETURNING `+postColumns,
		post.Title, post.Content, post.Excerpt, post.Category, post.ImageURL,
		post.Author, post.UpdatedAt, post.ID, post.AuthorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return p, err
}

func (s *PostgresStorage) DeletePost(ctx context.Context, id, authorID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1 AND author_id = $2`, id, authorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddLike вставляет связь и только потом увеличивает счетчик, без общей транзакции
func (s *PostgresStorage) AddLike(ctx context.Context, postID, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID)
	if err != nil {
		return false, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := s.pool.Exec(ctx, `UPDATE blog_posts SET total_likes = total_likes + 1 WHERE id = $1`, postID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStorage) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blog_posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, storage.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE blog_posts SET total_likes = GREATEST(total_likes - 1, 0) WHERE id = $1`, postID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStorage) AddShare(ctx context.Context, postID, userID string) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO post_shares (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID); err != nil {
		return mapWriteError(err)
	}

	_, err := s.pool.Exec(ctx, `UPDATE blog_posts SET total_shares = total_shares + 1 WHERE id = $1`, postID)
	return err
}

func (s *PostgresStorage) GetCounters(ctx context.Context, postIDs []string) (map[string]models.Counters, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, total_likes, total_shares
		FROM blog_posts
		WHERE id = ANY($1)`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]models.Counters, len(postIDs))
	for rows.Next() {
		var id string
		var c models.Counters
		if err := rows.Scan(&id, &c.Likes, &c.Shares); err != nil {
			return nil, err
		}
		result[id] = c
	}
	return result, rows.Err()
}

func (s *PostgresStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO comments (id, post_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt)
	return mapWriteError(err)
}

func (s *PostgresStorage) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, author_id, content, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

// mapWriteError превращает нарушение внешнего ключа на posts в ErrNotFound
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return storage.ErrNotFound
	}
	return err
}
