package models

import (
	"time"
	"unicode/utf8"
)

const (
	// ExcerptLength - длина автоматически вычисляемого анонса в рунах
	ExcerptLength = 200
	UnknownAuthor = "Unknown Author"
)

type Post struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	Author      *string   `json:"author"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"imageUrl"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	TotalLikes  int       `json:"totalLikes"`
	TotalShares int       `json:"totalShares"`
}

// DisplayAuthor возвращает имя автора для вывода
func (p *Post) DisplayAuthor() string {
	if p.Author == nil || *p.Author == "" {
		return UnknownAuthor
	}
	return *p.Author
}

type Like struct {
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Share struct {
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Counters - счетчики лайков и репостов одного поста
type Counters struct {
	Likes  int `json:"likes"`
	Shares int `json:"shares"`
}

type UserStats struct {
	TotalPosts  int `json:"totalPosts"`
	TotalShares int `json:"totalShares"`
	TotalLikes  int `json:"totalLikes"`
}

type EventType string

const (
	PostCreated EventType = "post.created"
	PostUpdated EventType = "post.updated"
	PostDeleted EventType = "post.deleted"
)

type PostEvent struct {
	Type     EventType `json:"type"`
	PostID   string    `json:"postId"`
	AuthorID string    `json:"authorId"`
	Post     *Post     `json:"post,omitempty"`
	At       time.Time `json:"at"`
}

// MakeExcerpt обрезает текст до ExcerptLength рун и добавляет многоточие
func MakeExcerpt(content string) string {
	if utf8.RuneCountInString(content) <= ExcerptLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:ExcerptLength]) + "..."
}
