package storage

import (
	"context"
	"errors"

	"github.com/ButyrinIA/blog/internal/models"
)

var ErrNotFound = errors.New("post not found")

type Storage interface {
	ListPublishedPosts(ctx context.Context) ([]*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	// ListPublishedCategories возвращает категории всех опубликованных постов, nil - категории нет
	ListPublishedCategories(ctx context.Context) ([]*string, error)
	CreatePost(ctx context.Context, post *models.Post) error
	// UpdatePost обновляет пост по паре (ID, AuthorID); ErrNotFound если строка не найдена.
	// ImageURL == nil оставляет картинку, пустая строка ее убирает; Author == nil оставляет имя.
	UpdatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	DeletePost(ctx context.Context, id, authorID string) (bool, error)

	AddLike(ctx context.Context, postID, userID string) (bool, error)
	RemoveLike(ctx context.Context, postID, userID string) (bool, error)
	AddShare(ctx context.Context, postID, userID string) error
	GetCounters(ctx context.Context, postIDs []string) (map[string]models.Counters, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID string) ([]*models.Comment, error)
	Close() error
}
