package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"smoothie-orders/internal/form"
	"smoothie-orders/internal/metrics"
	"smoothie-orders/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var formTemplate = template.Must(template.ParseFS(templatesFS, "templates/form.html"))

const cookieName = "smoothie_session"

// sessionStore persists the form state of each browser session.
type sessionStore interface {
	Load(ctx context.Context, key string) (form.State, error)
	Save(ctx context.Context, key string, st form.State) error
}

// Server serves the order form over HTTP.
type Server struct {
	form     *form.Service
	sessions sessionStore
	signer   *session.Signer
	logger   *zap.Logger
}

// NewServer creates a new Server.
func NewServer(formSvc *form.Service, sessions sessionStore, signer *session.Signer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{form: formSvc, sessions: sessions, signer: signer, logger: logger}
}

// Routes builds the router for the web surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleForm)
	r.Post("/", s.handleSubmit)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sessionKey(w, r)
	if !ok {
		return
	}
	st, err := s.sessions.Load(r.Context(), key)
	if err != nil {
		s.logger.Error("failed to load session", zap.String("session", key), zap.Error(err))
	}

	var extra []form.Banner
	if st.Flash != "" {
		extra = append(extra, form.Banner{Kind: form.BannerSuccess, Text: st.Flash})
		st.Flash = ""
	}
	s.write(w, s.render(r, key, &st, form.ActionView, extra))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sessionKey(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	st, err := s.sessions.Load(r.Context(), key)
	if err != nil {
		s.logger.Error("failed to load session", zap.String("session", key), zap.Error(err))
	}

	var extra []form.Banner
	act := form.ActionView
	switch r.PostFormValue("action") {
	case "reset":
		st.Reset()
	default:
		st.SetName(r.PostFormValue("name"))
		st.ShowNutrition = r.PostFormValue("nutrition") != ""
		if err := st.SetSelection(r.PostForm["ingredients"]); err != nil {
			extra = append(extra, form.Banner{Kind: form.BannerWarning, Text: "You can choose up to 5 ingredients. Your previous selection was kept."})
			break
		}
		if r.PostFormValue("action") == "submit" {
			act = form.ActionSubmit
		}
	}

	view := s.form.Render(r.Context(), &st, act)
	if placed := view.BannersOf(form.BannerSuccess); act == form.ActionSubmit && len(placed) > 0 {
		// Post/Redirect/Get: a browser refresh must not submit the order again.
		st.Flash = placed[0]
		s.save(r, key, st)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	view.Banners = append(extra, view.Banners...)
	s.save(r, key, st)
	s.write(w, view)
}

// render runs the form for the session and persists the resulting state.
func (s *Server) render(r *http.Request, key string, st *form.State, act form.Action, extra []form.Banner) *form.View {
	view := s.form.Render(r.Context(), st, act)
	view.Banners = append(extra, view.Banners...)
	s.save(r, key, *st)
	return view
}

func (s *Server) save(r *http.Request, key string, st form.State) {
	if err := s.sessions.Save(r.Context(), key, st); err != nil {
		s.logger.Error("failed to save session", zap.String("session", key), zap.Error(err))
	}
}

func (s *Server) write(w http.ResponseWriter, view *form.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if view.Halted {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := formTemplate.Execute(w, view); err != nil {
		s.logger.Error("failed to render form", zap.Error(err))
	}
}

// sessionKey returns the key from the signed cookie, issuing a new session when it is missing or invalid.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	if c, err := r.Cookie(cookieName); err == nil {
		if key, err := s.signer.Verify(c.Value); err == nil {
			return key, true
		}
	}

	key := session.NewKey()
	token, err := s.signer.Sign(key)
	if err != nil {
		s.logger.Error("failed to issue session", zap.Error(err))
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return "", false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key, true
}
