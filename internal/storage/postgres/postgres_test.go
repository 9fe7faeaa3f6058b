package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ButyrinIA/blog/internal/category"
	"github.com/ButyrinIA/blog/internal/models"
	"github.com/ButyrinIA/blog/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newPost(authorID, cat string, published bool, createdAt time.Time) *models.Post {
	return &models.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     "Тестовый пост",
		Content:   "Содержимое",
		Excerpt:   "Содержимое",
		Category:  cat,
		Published: published,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
		UpdatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("интеграционный тест с контейнером PostgreSQL")
	}

	// Запуск тестового контейнера PostgreSQL
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "user",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "blog",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить контейнер PostgreSQL: %v", err)
	}
	defer postgresC.Terminate(ctx)

	host, err := postgresC.Host(ctx)
	require.NoError(t, err, "Не удалось получить хост контейнера")
	port, err := postgresC.MappedPort(ctx, "5432")
	require.NoError(t, err, "Не удалось получить порт контейнера")
	dsn := "postgres://user:password@" + host + ":" + port.Port() + "/blog?sslmode=disable"

	store, err := New(ctx, dsn, 4)
	require.NoError(t, err, "Не удалось инициализировать PostgresStorage")
	defer store.Close()

	t.Run("CreatePost and GetPost", func(t *testing.T) {
		post := newPost("user1", "Tech", true, time.Now())
		author := "Alice"
		post.Author = &author

		require.NoError(t, store.CreatePost(ctx, post), "Ошибка при создании поста")

		retrieved, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err, "Ошибка при получении поста")
		assert.Equal(t, post.ID, retrieved.ID, "ID поста не совпадает")
		assert.Equal(t, post.Title, retrieved.Title, "Заголовок поста не совпадает")
		assert.Equal(t, "Alice", retrieved.DisplayAuthor())
		assert.Nil(t, retrieved.ImageURL)
		assert.True(t, post.CreatedAt.Equal(retrieved.CreatedAt))
	})

	t.Run("GetPost Not Found", func(t *testing.T) {
		_, err := store.GetPost(ctx, "non-existent-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, "post not found", err.Error(), "Неверное сообщение об ошибке")
	})

	t.Run("Published listing and categories", func(t *testing.T) {
		author := "lister-" + uuid.New().String()
		older := newPost(author, "AI & ML", true, time.Now().Add(-time.Hour))
		newer := newPost(author, "", true, time.Now())
		draft := newPost(author, "Draft", false, time.Now())
		for _, p := range []*models.Post{older, newer, draft} {
			require.NoError(t, store.CreatePost(ctx, p))
		}

		posts, err := store.ListPublishedPosts(ctx)
		require.NoError(t, err)
		for _, p := range posts {
			assert.True(t, p.Published, "В списке только опубликованные посты")
			assert.NotEqual(t, draft.ID, p.ID)
		}
		for i := 1; i < len(posts); i++ {
			assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt), "Сортировка по убыванию даты")
		}

		byAuthor, err := store.ListPostsByAuthor(ctx, author)
		require.NoError(t, err)
		require.Len(t, byAuthor, 3)

		categories, err := store.ListPublishedCategories(ctx)
		require.NoError(t, err)
		counts := category.Tally(categories)
		assert.Equal(t, len(posts), counts[category.AllKey])
		assert.GreaterOrEqual(t, counts["aiml"], 1)
	})

	t.Run("UpdatePost and DeletePost are owner scoped", func(t *testing.T) {
		post := newPost("owner", "Tech", true, time.Now().Add(-time.Minute))
		require.NoError(t, store.CreatePost(ctx, post))

		foreign := *post
		foreign.AuthorID = "intruder"
		_, err := store.UpdatePost(ctx, &foreign)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		upd := *post
		upd.Title = "Обновлено"
		upd.UpdatedAt = time.Now().UTC()
		got, err := store.UpdatePost(ctx, &upd)
		require.NoError(t, err)
		assert.Equal(t, "Обновлено", got.Title)
		assert.True(t, got.CreatedAt.Equal(post.CreatedAt))
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

		ok, err := store.DeletePost(ctx, post.ID, "intruder")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.DeletePost(ctx, post.ID, "owner")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = store.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Likes shares and counters", func(t *testing.T) {
		post := newPost("author", "Tech", true, time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		added, err := store.AddLike(ctx, post.ID, "reader")
		require.NoError(t, err)
		assert.True(t, added)
		added, err = store.AddLike(ctx, post.ID, "reader")
		require.NoError(t, err)
		assert.False(t, added)

		require.NoError(t, store.AddShare(ctx, post.ID, "reader"))
		require.NoError(t, store.AddShare(ctx, post.ID, "reader"))

		counters, err := store.GetCounters(ctx, []string{post.ID})
		require.NoError(t, err)
		assert.Equal(t, models.Counters{Likes: 1, Shares: 2}, counters[post.ID])

		removed, err := store.RemoveLike(ctx, post.ID, "reader")
		require.NoError(t, err)
		assert.True(t, removed)

		_, err = store.AddLike(ctx, "missing", "reader")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.RemoveLike(ctx, "missing", "reader")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("CreateComment and ListComments", func(t *testing.T) {
		post := newPost("user1", "Tech", true, time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		comment := &models.Comment{
			ID:        uuid.New().String(),
			PostID:    post.ID,
			AuthorID:  "user1",
			Content:   "Тестовый комментарий",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.CreateComment(ctx, comment), "Ошибка при создании комментария")

		comments, err := store.ListComments(ctx, post.ID)
		require.NoError(t, err, "Ошибка при получении комментариев")
		require.Len(t, comments, 1, "Ожидался один комментарий")
		assert.Equal(t, comment.ID, comments[0].ID, "Полученный комментарий не совпадает")

		err = store.CreateComment(ctx, &models.Comment{ID: uuid.New().String(), PostID: "missing", AuthorID: "u", Content: "x", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
