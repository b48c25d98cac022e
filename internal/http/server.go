package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storyblog/internal/auth"
	"storyblog/internal/config"
	"storyblog/internal/model"
	"storyblog/internal/store"

	_ "storyblog/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

type Server struct {
	store  store.Store
	auth   *auth.Service
	cfg    config.Config
	logger *slog.Logger
}

func NewServer(store store.Store, authSvc *auth.Service, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, auth: authSvc, cfg: cfg, logger: logger}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.route(rec, r)
	s.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path)

	switch {
	case len(segments) == 2 && segments[0] == "api" && segments[1] == "users":
		if r.Method == http.MethodPost {
			s.handleRegisterUser(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "api" && segments[1] == "protected":
		if r.Method == http.MethodPost {
			s.handleProtected(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleListPosts(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreatePost(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleGetPost(w, r, segments[1])
			return
		}
		if r.Method == http.MethodPut {
			s.handleUpdatePost(w, r, segments[1])
			return
		}
		if r.Method == http.MethodDelete {
			s.handleDeletePost(w, r, segments[1])
			return
		}
	case len(segments) == 2 && segments[0] == "api" && segments[1] == "openapi.json":
		if r.Method == http.MethodGet {
			s.serveOpenAPIJSON(w, r)
			return
		}
	case len(segments) >= 1 && segments[0] == "swagger":
		httpSwagger.WrapHandler.ServeHTTP(w, r)
		return
	}

	notFound(w)
}

// handleRegisterUser godoc
//
//	@Summary		Register a new user
//	@Description	Create an account with a unique username. The password is stored as a bcrypt hash and never returned.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			user	body		object{username=string,password=string,firstName=string,lastName=string}	true	"User data"
//	@Success		201		{object}	model.SerializedUser
//	@Failure		400		{object}	map[string]string	"Missing username or password"
//	@Failure		422		{object}	map[string]string	"Username already taken"
//	@Router			/api/users [post]
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password required"))
		return
	}

	user, err := s.auth.Register(r.Context(), strings.TrimSpace(req.Username), req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, http.StatusUnprocessableEntity, errors.New("username already taken"))
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user.Serialize())
}

// handleProtected godoc
//
//	@Summary		Authentication probe
//	@Description	Verify a username/password pair. Has no side effect; returns the serialized user on success.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		object{username=string,password=string}	true	"Credentials"
//	@Success		200			{object}	model.SerializedUser
//	@Failure		401			{object}	map[string]string	"Unauthorized"
//	@Router			/api/protected [post]
func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, ok := s.authenticate(w, r, req.Username, req.Password)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user.Serialize())
}

// handleListPosts godoc
//
//	@Summary		List posts
//	@Description	Get every post, newest first. No pagination.
//	@Tags			Posts
//	@Produce		json
//	@Success		200	{array}	model.SerializedPost
//	@Router			/posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	serialized := make([]model.SerializedPost, 0, len(posts))
	for _, post := range posts {
		serialized = append(serialized, post.Serialize())
	}
	writeJSON(w, http.StatusOK, serialized)
}

// handleGetPost godoc
//
//	@Summary		Get a post
//	@Description	Get a single post by id. The embedded author is flattened to a display name.
//	@Tags			Posts
//	@Produce		json
//	@Param			id	path		string	true	"Post ID"
//	@Success		200	{object}	model.SerializedPost
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, id string) {
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post.Serialize())
}

// handleCreatePost godoc
//
//	@Summary		Create a post
//	@Description	Create a blog post. Requires credentials in the body; title, content, and author must all be present.
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Param			post	body		object{username=string,password=string,title=string,content=string,author=model.Author}	true	"Post data with credentials"
//	@Success		201		{object}	model.SerializedPost
//	@Failure		400		{object}	map[string]string	"Missing field"
//	@Failure		401		{object}	map[string]string	"Unauthorized"
//	@Router			/posts [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string        `json:"username"`
		Password string        `json:"password"`
		Title    *string       `json:"title"`
		Content  *string       `json:"content"`
		Author   *model.Author `json:"author"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.authenticate(w, r, req.Username, req.Password); !ok {
		return
	}
	// Presence checks mirror the request contract: all three keys must be
	// in the body, even if content is empty.
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing `title` in request body"))
		return
	}
	if req.Content == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing `content` in request body"))
		return
	}
	if req.Author == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing `author` in request body"))
		return
	}
	if strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, errors.New("title must not be blank"))
		return
	}

	post := model.Post{
		Author:  *req.Author,
		Title:   *req.Title,
		Content: *req.Content,
	}
	if err := s.store.CreatePost(r.Context(), &post); err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post.Serialize())
}

// handleUpdatePost godoc
//
//	@Summary		Update a post
//	@Description	Partially update a post. The body id must match the path id; only fields present among title, content, and author are overwritten.
//	@Tags			Posts
//	@Accept			json
//	@Param			id		path		string	true	"Post ID"
//	@Param			post	body		object{username=string,password=string,id=string,title=string,content=string,author=model.Author}	true	"Fields to update, with credentials"
//	@Success		204		"Updated"
//	@Failure		400		{object}	map[string]string	"Path and body id mismatch"
//	@Failure		401		{object}	map[string]string	"Unauthorized"
//	@Failure		404		{object}	map[string]string	"Post not found"
//	@Router			/posts/{id} [put]
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Username string        `json:"username"`
		Password string        `json:"password"`
		ID       string        `json:"id"`
		Title    *string       `json:"title"`
		Content  *string       `json:"content"`
		Author   *model.Author `json:"author"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.authenticate(w, r, req.Username, req.Password); !ok {
		return
	}
	if req.ID == "" || req.ID != id {
		writeError(w, http.StatusBadRequest, errors.New("request path id and request body id values must match"))
		return
	}

	upd := store.PostUpdate{Title: req.Title, Content: req.Content, Author: req.Author}
	if err := s.store.UpdatePost(r.Context(), id, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return
		}
		s.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeletePost godoc
//
//	@Summary		Delete a post
//	@Description	Delete a post by id. Requires credentials in the body.
//	@Tags			Posts
//	@Accept			json
//	@Param			id			path		string	true	"Post ID"
//	@Param			credentials	body		object{username=string,password=string}	true	"Credentials"
//	@Success		204			"Deleted"
//	@Failure		401			{object}	map[string]string	"Unauthorized"
//	@Failure		404			{object}	map[string]string	"Post not found"
//	@Router			/posts/{id} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.authenticate(w, r, req.Username, req.Password); !ok {
		return
	}

	if err := s.store.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("post not found"))
			return
		}
		s.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(doc))
}

// authenticate re-verifies body credentials against the credential store.
// There is no session: every mutating request pays for a full check. The
// 401 body never distinguishes unknown-user from wrong-password; the real
// reason only goes to the log.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, username, password string) (model.User, bool) {
	user, err := s.auth.Verify(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownUser) || errors.Is(err, auth.ErrWrongPassword) {
			s.logger.Warn("authentication rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"username", username,
				"reason", err,
			)
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return model.User{}, false
		}
		s.serverError(w, r, err)
		return model.User{}, false
	}
	return user, true
}

// serverError logs the cause and answers with a generic 500; the underlying
// error is never propagated to the client.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("store operation failed",
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
