package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ButyrinIA/blog/internal/models"
	"github.com/ButyrinIA/blog/internal/storage"
)

type pairKey struct {
	postID string
	userID string
}

type MemoryStorage struct {
	posts    map[string]*models.Post
	likes    map[pairKey]*models.Like
	shares   map[pairKey]*models.Share
	comments map[string][]*models.Comment
	mu       sync.RWMutex
}

func New() *MemoryStorage {
	s := &MemoryStorage{}
	s.reset()
	return s
}

func (s *MemoryStorage) reset() {
	s.posts = make(map[string]*models.Post)
	s.likes = make(map[pairKey]*models.Like)
	s.shares = make(map[pairKey]*models.Share)
	s.comments = make(map[string][]*models.Comment)
}

// копия, чтобы вызывающий код не менял данные хранилища
func clonePost(p *models.Post) *models.Post {
	c := *p
	return &c
}

func sortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func (s *MemoryStorage) ListPublishedPosts(ctx context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if p.Published {
			posts = append(posts, clonePost(p))
		}
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clonePost(post), nil
}

func (s *MemoryStorage) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*models.Post, 0)
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			posts = append(posts, clonePost(p))
		}
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (s *MemoryStorage) ListPublishedCategories(ctx context.Context) ([]*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]*string, 0, len(s.posts))
	for _, p := range s.posts {
		if !p.Published {
			continue
		}
		if p.Category == "" {
			categories = append(categories, nil)
			continue
		}
		c := p.Category
		categories = append(categories, &c)
	}
	return categories, nil
}

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *MemoryStorage) UpdatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[post.ID]
	if !ok || existing.AuthorID != post.AuthorID {
		return nil, storage.ErrNotFound
	}

	existing.Title = post.Title
	existing.Content = post.Content
	existing.Excerpt = post.Excerpt
	existing.Category = post.Category
	if post.ImageURL != nil {
		if *post.ImageURL == "" {
			existing.ImageURL = nil
		} else {
			img := *post.ImageURL
			existing.ImageURL = &img
		}
	}
	if post.Author != nil {
		existing.Author = post.Author
	}
	existing.UpdatedAt = post.UpdatedAt
	return clonePost(existing), nil
}

func (s *MemoryStorage) DeletePost(ctx context.Context, id, authorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[id]
	if !ok || existing.AuthorID != authorID {
		return false, nil
	}
	delete(s.posts, id)
	delete(s.comments, id)
	for k := range s.likes {
		if k.postID == id {
			delete(s.likes, k)
		}
	}
	for k := range s.shares {
		if k.postID == id {
			delete(s.shares, k)
		}
	}
	return true, nil
}

func (s *MemoryStorage) AddLike(ctx context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return false, storage.ErrNotFound
	}
	key := pairKey{postID: postID, userID: userID}
	if _, liked := s.likes[key]; liked {
		return false, nil
	}
	s.likes[key] = &models.Like{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
	post.TotalLikes++
	return true, nil
}

func (s *MemoryStorage) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return false, storage.ErrNotFound
	}
	key := pairKey{postID: postID, userID: userID}
	if _, liked := s.likes[key]; !liked {
		return false, nil
	}
	delete(s.likes, key)
	if post.TotalLikes > 0 {
		post.TotalLikes--
	}
	return true, nil
}

func (s *MemoryStorage) AddShare(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	key := pairKey{postID: postID, userID: userID}
	if _, shared := s.shares[key]; !shared {
		s.shares[key] = &models.Share{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
	}
	post.TotalShares++
	return nil
}

func (s *MemoryStorage) GetCounters(ctx context.Context, postIDs []string) (map[string]models.Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]models.Counters, len(postIDs))
	for _, id := range postIDs {
		if p, ok := s.posts[id]; ok {
			result[id] = models.Counters{Likes: p.TotalLikes, Shares: p.TotalShares}
		}
	}
	return result, nil
}

func (s *MemoryStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return storage.ErrNotFound
	}
	c := *comment
	s.comments[comment.PostID] = append(s.comments[comment.PostID], &c)
	return nil
}

func (s *MemoryStorage) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*models.Comment, 0, len(s.comments[postID]))
	for _, c := range s.comments[postID] {
		cc := *c
		comments = append(comments, &cc)
	}
	// Сортировка по CreatedAt, старые первыми
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// Close очищает хранилище
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}
