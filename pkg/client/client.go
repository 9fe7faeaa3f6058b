// Package client - Go клиент API блога с теми же вызовами, что и у фронтенда.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ButyrinIA/blog/internal/auth"
	"github.com/ButyrinIA/blog/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// Ответы сервера. Псевдонимы доступны и за пределами модуля.
type (
	Post      = models.Post
	UserStats = models.UserStats
)

// PostInput - тело запроса на создание или изменение поста.
// nil поле не отправляется; пустой ImageURL при изменении убирает картинку.
type PostInput struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Category *string `json:"category,omitempty"`
	Excerpt  *string `json:"excerpt,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
	Author   *string `json:"author,omitempty"`
}

// FieldError - ошибка проверки одного поля запроса
type FieldError struct {
	Location string `json:"location"`
	Param    string `json:"param"`
	Value    string `json:"value,omitempty"`
	Msg      string `json:"msg"`
}

func String(s string) *string { return &s }

// APIError - ответ сервера с кодом не 2xx
type APIError struct {
	StatusCode int
	Message    string
	Errors     []*FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	userID     string
	userName   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken передает Bearer токен провайдера
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTrustedUser передает пользователя заголовками, как это делает шлюз
func WithTrustedUser(userID, name string) Option {
	return func(c *Client) {
		c.userID = userID
		c.userName = name
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetAllPosts(ctx context.Context) ([]*Post, error) {
	var posts []*Post
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPostByID возвращает nil без ошибки, если поста нет
func (c *Client) GetPostByID(ctx context.Context, id string) (*Post, error) {
	var post Post
	err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, &post)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id string, in PostInput) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPut, "/api/posts/"+url.PathEscape(id), in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GetUserPosts(ctx context.Context, userID string) ([]*Post, error) {
	var posts []*Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/user/"+url.PathEscape(userID), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	var stats UserStats
	if err := c.do(ctx, http.MethodGet, "/api/userStats/"+url.PathEscape(userID), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) GetCategoryCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	if err := c.do(ctx, http.MethodGet, "/api/categoryCounts", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) Like(ctx context.Context, postID string) (*Post, error) {
	return c.postAction(ctx, http.MethodPost, postID, "like")
}

func (c *Client) Unlike(ctx context.Context, postID string) (*Post, error) {
	return c.postAction(ctx, http.MethodDelete, postID, "like")
}

func (c *Client) Share(ctx context.Context, postID string) (*Post, error) {
	return c.postAction(ctx, http.MethodPost, postID, "share")
}

func (c *Client) postAction(ctx context.Context, method, postID, action string) (*Post, error) {
	var post Post
	if err := c.do(ctx, method, "/api/posts/"+url.PathEscape(postID)+"/"+action, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.userID != "":
		req.Header.Set(auth.DefaultUserHeader, c.userID)
		if c.userName != "" {
			req.Header.Set(auth.DefaultNameHeader, c.userName)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string        `json:"message"`
			Errors  []*FieldError `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Message
			apiErr.Errors = payload.Errors
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
