package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"learnportal-backend/internal/config"
	"learnportal-backend/internal/models"
	"learnportal-backend/internal/session"
	"learnportal-backend/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const configBanner = "Accounts are unavailable: the database password is not configured (DB_PASSWORD). Contact the site operator."

type Handler struct {
	cfg      *config.Config
	store    *store.Store // nil when storage is not configured
	sessions *session.Manager
}

func New(cfg *config.Config, st *store.Store, sessions *session.Manager) *Handler {
	return &Handler{cfg: cfg, store: st, sessions: sessions}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/article", h.ToggleArticle)
	r.Get("/healthz", h.Healthz)
}

type pageData struct {
	DemoMode    bool
	Mode        string // "register" or "login"
	Form        formValues
	Errors      map[string]string
	Banner      string
	User        *models.UserView
	ShowArticle bool
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.FromRequest(w, r)
	data := pageData{DemoMode: h.cfg.DemoMode, Mode: "register"}

	if sess.LoggedIn {
		data.User = h.profileFor(r, sess)
		data.ShowArticle = sess.ShowArticle
		h.render(w, data)
		return
	}

	if r.URL.Query().Get("mode") == "login" {
		data.Mode = "login"
	}
	if h.store == nil && !h.cfg.DemoMode {
		data.Banner = configBanner
	}
	h.render(w, data)
}

// profileFor refreshes the displayed profile from storage. When storage
// cannot serve it the session's own name and email keep the page working.
func (h *Handler) profileFor(r *http.Request, sess session.Session) *models.UserView {
	if h.store != nil && !h.cfg.DemoMode {
		view, err := h.store.GetByEmail(r.Context(), sess.Email)
		if err != nil {
			log.Printf("profile refresh failed for %s: %v", sess.Email, err)
		} else if view != nil {
			return view
		}
	}
	return &models.UserView{Email: sess.Email, FullName: sess.FullName}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.FromRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	form := valuesFrom(r)
	pw := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm_password")
	data := pageData{DemoMode: h.cfg.DemoMode, Mode: "register", Form: form}

	// Validation never reaches storage.
	if errs := validateRegistration(form, pw, confirm, h.cfg.DemoMode); len(errs) > 0 {
		data.Errors = errs
		h.render(w, data)
		return
	}

	if h.cfg.DemoMode {
		h.sessions.Login(w, sess, store.NormalizeEmail(form.Email), form.FullName)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if h.store == nil {
		data.Banner = configBanner
		h.render(w, data)
		return
	}

	var phone *string
	if form.Phone != "" {
		phone = &form.Phone
	}

	err := h.store.Register(r.Context(), form.Email, pw, form.FullName, phone)
	switch {
	case err == nil:
		h.sessions.Login(w, sess, store.NormalizeEmail(form.Email), form.FullName)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, store.ErrDuplicateEmail):
		data.Errors = map[string]string{"email": "This email is already registered. Try logging in instead."}
	case errors.Is(err, store.ErrConnection):
		data.Errors = map[string]string{"form": "We could not reach the database. Please try again."}
	default:
		log.Printf("register failed: %v", err)
		data.Errors = map[string]string{"form": "Registration failed. Please try again later."}
	}
	h.render(w, data)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.FromRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	form := valuesFrom(r)
	pw := r.PostFormValue("password")
	data := pageData{DemoMode: h.cfg.DemoMode, Mode: "login", Form: form}

	if errs := validateLogin(form.Email, pw); len(errs) > 0 {
		data.Errors = errs
		h.render(w, data)
		return
	}

	if h.store == nil {
		data.Banner = configBanner
		h.render(w, data)
		return
	}

	view, err := h.store.Authenticate(r.Context(), form.Email, pw)
	switch {
	case err == nil && view != nil:
		h.sessions.Login(w, sess, view.Email, view.FullName)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case err == nil:
		// Unknown email and wrong password share one message.
		data.Errors = map[string]string{"form": "Invalid email or password."}
	case errors.Is(err, store.ErrConnection):
		data.Errors = map[string]string{"form": "We could not reach the database. Please try again."}
	default:
		log.Printf("login failed: %v", err)
		data.Errors = map[string]string{"form": "Login failed. Please try again later."}
	}
	h.render(w, data)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.FromRequest(w, r)
	h.sessions.Logout(w, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) ToggleArticle(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.FromRequest(w, r)
	h.sessions.ToggleArticle(sess.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.cfg.DemoMode {
		// Demo mode serves the full page without storage.
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "mode": "demo"})
		return
	}
	if h.store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "storage not configured"})
		return
	}
	if err := h.store.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "database unreachable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func (h *Handler) render(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "page.html", data); err != nil {
		log.Printf("render failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
