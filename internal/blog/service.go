// Package blog содержит операции над постами поверх хранилища.
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ButyrinIA/blog/internal/auth"
	"github.com/ButyrinIA/blog/internal/category"
	"github.com/ButyrinIA/blog/internal/events"
	"github.com/ButyrinIA/blog/internal/models"
	"github.com/ButyrinIA/blog/internal/storage"
	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"
	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("authentication required")

// PostInput - тело запроса на создание или изменение поста
type PostInput struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Excerpt  *string `json:"excerpt"`
	ImageURL *string `json:"imageUrl"`
	Author   *string `json:"author"`
}

func (in *PostInput) validate() error {
	title := field("title", in.Title)
	content := field("content", in.Content)
	cat := field("category", in.Category)

	return mergeErrors(
		title.check(title.required, title.notBlank),
		content.check(content.required, content.notBlank),
		cat.check(cat.required, cat.notBlank),
	)
}

func (in *PostInput) excerpt() string {
	if in.Excerpt != nil && strings.TrimSpace(*in.Excerpt) != "" {
		return strings.TrimSpace(*in.Excerpt)
	}
	return models.MakeExcerpt(*in.Content)
}

type Service struct {
	store     storage.Storage
	publisher events.Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewService(store storage.Storage, publisher events.Publisher, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.store.ListPublishedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	for _, p := range posts {
		withDisplayAuthor(p)
	}
	return posts, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return withDisplayAuthor(post), nil
}

func (s *Service) ListUserPosts(ctx context.Context, authorID string) ([]*models.Post, error) {
	posts, err := s.store.ListPostsByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user posts: %w", err)
	}
	return posts, nil
}

func (s *Service) CreatePost(ctx context.Context, id auth.Identity, in PostInput) (*models.Post, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	post := &models.Post{
		ID:        uuid.New().String(),
		AuthorID:  id.UserID,
		Author:    authorName(in.Author, id),
		Title:     strings.TrimSpace(*in.Title),
		Content:   *in.Content,
		Excerpt:   in.excerpt(),
		Category:  strings.TrimSpace(*in.Category),
		ImageURL:  nonEmpty(in.ImageURL),
		Published: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.publish(ctx, models.PostCreated, post.ID, post.AuthorID, post)
	return post, nil
}

// UpdatePost меняет только пост вызывающего; чужой или отсутствующий пост - storage.ErrNotFound
func (s *Service) UpdatePost(ctx context.Context, id auth.Identity, postID string, in PostInput) (*models.Post, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:        postID,
		AuthorID:  id.UserID,
		Author:    nonEmpty(in.Author),
		Title:     strings.TrimSpace(*in.Title),
		Content:   *in.Content,
		Excerpt:   in.excerpt(),
		Category:  strings.TrimSpace(*in.Category),
		ImageURL:  in.ImageURL,
		UpdatedAt: s.now(),
	}
	updated, err := s.store.UpdatePost(ctx, post)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.publish(ctx, models.PostUpdated, updated.ID, updated.AuthorID, updated)
	return updated, nil
}

func (s *Service) DeletePost(ctx context.Context, id auth.Identity, postID string) error {
	if id.UserID == "" {
		return ErrUnauthorized
	}
	deleted, err := s.store.DeletePost(ctx, postID, id.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if !deleted {
		return storage.ErrNotFound
	}

	s.publish(ctx, models.PostDeleted, postID, id.UserID, nil)
	return nil
}

// CategoryCounts считает опубликованные посты по категориям и общий итог в ключе "all"
func (s *Service) CategoryCounts(ctx context.Context) (map[string]int, error) {
	categories, err := s.store.ListPublishedCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return category.Tally(categories), nil
}

// UserStats суммирует счетчики по всем постам пользователя за все время
func (s *Service) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	posts, err := s.store.ListPostsByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user posts: %w", err)
	}

	stats := &models.UserStats{TotalPosts: len(posts)}
	if len(posts) == 0 {
		return stats, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	counters, errs := s.counterLoader().LoadMany(ctx, ids)()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to load counters: %w", err)
		}
	}
	for _, c := range counters {
		stats.TotalLikes += c.Likes
		stats.TotalShares += c.Shares
	}
	return stats, nil
}

// counterLoader собирает запросы счетчиков в пакетные вызовы GetCounters.
// Загрузчик живет в пределах одного запроса, кэш отключен.
func (s *Service) counterLoader() *dataloader.Loader[string, models.Counters] {
	batch := func(ctx context.Context, keys []string) []*dataloader.Result[models.Counters] {
		results := make([]*dataloader.Result[models.Counters], len(keys))
		counters, err := s.store.GetCounters(ctx, keys)
		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[models.Counters]{Error: err}
				continue
			}
			results[i] = &dataloader.Result[models.Counters]{Data: counters[key]}
		}
		return results
	}
	return dataloader.NewBatchedLoader(batch,
		dataloader.WithCache[string, models.Counters](&dataloader.NoCache[string, models.Counters]{}),
		dataloader.WithBatchCapacity[string, models.Counters](100),
	)
}

func (s *Service) LikePost(ctx context.Context, id auth.Identity, postID string) (*models.Post, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}
	if _, err := s.store.AddLike(ctx, postID, id.UserID); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, postID)
}

func (s *Service) UnlikePost(ctx context.Context, id auth.Identity, postID string) (*models.Post, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}
	if _, err := s.store.RemoveLike(ctx, postID, id.UserID); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, postID)
}

func (s *Service) SharePost(ctx context.Context, id auth.Identity, postID string) (*models.Post, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}
	if err := s.store.AddShare(ctx, postID, id.UserID); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, postID)
}

func (s *Service) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, postID)
}

func (s *Service) AddComment(ctx context.Context, id auth.Identity, postID string, content *string) (*models.Comment, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}
	body := field("content", content)
	if err := mergeErrors(body.check(body.required, body.notBlank,
		func() *FieldError { return body.maxLength(maxCommentLength) })); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		AuthorID:  id.UserID,
		Content:   strings.TrimSpace(*content),
		CreatedAt: s.now(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// publish не влияет на результат запроса: данные уже сохранены
func (s *Service) publish(ctx context.Context, t models.EventType, postID, authorID string, post *models.Post) {
	if s.publisher == nil {
		return
	}
	ev := models.PostEvent{Type: t, PostID: postID, AuthorID: authorID, Post: post, At: s.now()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warnw("failed to publish post event", "type", t, "post_id", postID, "error", err)
	}
}

func withDisplayAuthor(p *models.Post) *models.Post {
	name := p.DisplayAuthor()
	p.Author = &name
	return p
}

func authorName(fromBody *string, id auth.Identity) *string {
	if v := nonEmpty(fromBody); v != nil {
		return v
	}
	if id.Name != "" {
		name := id.Name
		return &name
	}
	return nil
}

func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
