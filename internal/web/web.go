package web

import (
    "embed"
    "html/template"
    "net/http"

    "github.com/local/pdfsplitter/internal/config"
    "github.com/local/pdfsplitter/internal/selection"
)

//go:embed templates/*.html
var templates embed.FS

type Web struct {
    tpl      *template.Template
    username string
    password string
    defaults config.SplitConfig
}

// Options configures the upload form. Login is only required when both
// Username and Password are set.
type Options struct {
    Username string
    Password string
    Defaults config.SplitConfig
}

func New(opts Options) *Web {
    tpl := template.Must(template.ParseFS(templates, "templates/*.html"))
    return &Web{
        tpl:      tpl,
        username: opts.Username,
        password: opts.Password,
        defaults: opts.Defaults,
    }
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/web/login", w.handleLogin)
    mux.HandleFunc("/web/logout", w.handleLogout)
    mux.HandleFunc("/web/", w.requireAuth(w.handleForm))
    mux.HandleFunc("/", func(wr http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/" { http.NotFound(wr, r); return }
        http.Redirect(wr, r, "/web/", http.StatusSeeOther)
    })
}

func (w *Web) render(wr http.ResponseWriter, name string, data any) {
    wr.Header().Set("Content-Type", "text/html; charset=utf-8")
    _ = w.tpl.ExecuteTemplate(wr, name, data)
}

func (w *Web) authEnabled() bool { return w.username != "" && w.password != "" }

func (w *Web) requireAuth(next http.HandlerFunc) http.HandlerFunc {
    return func(wr http.ResponseWriter, r *http.Request) {
        if !w.authEnabled() {
            next(wr, r)
            return
        }
        c, err := r.Cookie("auth")
        if err != nil || c.Value != "1" {
            http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
            return
        }
        next(wr, r)
    }
}

func (w *Web) handleLogin(wr http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        w.render(wr, "login.html", map[string]any{"Error": r.URL.Query().Get("error")})
    case http.MethodPost:
        if err := r.ParseForm(); err != nil { http.Redirect(wr, r, "/web/login?error=invalid+form", http.StatusSeeOther); return }
        if w.authEnabled() && r.Form.Get("username") == w.username && r.Form.Get("password") == w.password {
            http.SetCookie(wr, &http.Cookie{Name: "auth", Value: "1", Path: "/", HttpOnly: true})
            http.Redirect(wr, r, "/web/", http.StatusSeeOther)
            return
        }
        http.Redirect(wr, r, "/web/login?error=invalid+credentials", http.StatusSeeOther)
    default:
        wr.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (w *Web) handleLogout(wr http.ResponseWriter, r *http.Request) {
    http.SetCookie(wr, &http.Cookie{Name: "auth", Value: "", Path: "/", MaxAge: -1})
    http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
}

func (w *Web) handleForm(wr http.ResponseWriter, r *http.Request) {
    w.render(wr, "form.html", map[string]any{
        "Modes":    selection.Modes,
        "Parities": []selection.OddEvenChoice{selection.Odd, selection.Even, selection.Both},
        "Defaults": w.defaults,
        "Auth":     w.authEnabled(),
    })
}
