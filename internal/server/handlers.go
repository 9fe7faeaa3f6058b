package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/ButyrinIA/blog/internal/auth"
	"github.com/ButyrinIA/blog/internal/blog"
	"github.com/ButyrinIA/blog/internal/models"
	"github.com/gorilla/mux"
)

const (
	maxBodySize     = 1 << 20
	defaultTokenTTL = 24 * time.Hour
)

// requireIdentity пишет 401, если пользователь не определен
func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		WriteResponse(w, msgUnauthorized, http.StatusUnauthorized)
		return auth.Identity{}, false
	}
	return id, true
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.ListPosts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.svc.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var in blog.PostInput
	if !decodeBody(w, r, &in) {
		return
	}

	post, err := s.svc.CreatePost(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var in blog.PostInput
	if !decodeBody(w, r, &in) {
		return
	}

	post, err := s.svc.UpdatePost(r.Context(), id, mux.Vars(r)["id"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeletePost(r.Context(), id, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) myPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	posts, err := s.svc.ListUserPosts(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) myStats(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	stats, err := s.svc.UserStats(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) userPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.ListUserPosts(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.UserStats(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) categoryCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.svc.CategoryCounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) likePost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	postID := mux.Vars(r)["id"]
	var (
		post *models.Post
		err  error
	)
	if r.Method == http.MethodDelete {
		post, err = s.svc.UnlikePost(r.Context(), id, postID)
	} else {
		post, err = s.svc.LikePost(r.Context(), id, postID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) sharePost(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	post, err := s.svc.SharePost(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.svc.ListComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Content *string `json:"content"`
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	comment, err := s.svc.AddComment(r.Context(), id, mux.Vars(r)["id"], req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

type tokenRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// issueToken выдает токен для локальной разработки без провайдера
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, &ErrorsResponse{
			Message: msgValidation,
			Errors:  []*blog.FieldError{{Location: "body", Param: "userId", Msg: "is required"}},
		})
		return
	}

	token, err := s.auth.Issue(auth.Identity{UserID: req.UserID, Name: strings.TrimSpace(req.Name)}, defaultTokenTTL)
	if err != nil {
		s.logger.Errorw("failed to issue token", "error", err)
		WriteResponse(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &tokenResponse{Token: token, ExpiresAt: time.Now().Add(defaultTokenTTL).UTC()})
}
