package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	cookieName      = "frameview_session"
	cookieDelimiter = "|"
)

// signCookie creates an HMAC-signed cookie value.
// Format: "timestamp|hmac-signature"
func signCookie(secret string) string {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	return timestamp + cookieDelimiter + computeHMAC(timestamp, secret)
}

// verifyCookie validates an HMAC-signed cookie value.
func verifyCookie(cookie, secret string) bool {
	if cookie == "" {
		return false
	}

	parts := strings.SplitN(cookie, cookieDelimiter, 2)
	if len(parts) != 2 {
		return false
	}

	expectedSignature := computeHMAC(parts[0], secret)
	return hmac.Equal([]byte(parts[1]), []byte(expectedSignature))
}

// computeHMAC generates an HMAC-SHA256 signature.
func computeHMAC(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Login - {{.Title}}</title>
</head>
<body>
    {{if .Failed}}<p>Wrong password.</p>{{end}}
    <form method="POST" action="/login">
        <input type="hidden" name="next" value="{{.Next}}">
        <input type="password" name="password" autocomplete="current-password" placeholder="Password" required>
        <button type="submit">Login</button>
    </form>
</body>
</html>`))

// PasswordGate protects the viewer with a shared password
type PasswordGate struct {
	secret string
	title  string
}

// loginHandler shows the form on GET and checks the password on POST
func (g *PasswordGate) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		g.loginPostHandler(w, r)
		return
	}
	g.renderLogin(w, http.StatusOK, r.URL.Query().Get("next"), false)
}

func (g *PasswordGate) renderLogin(w http.ResponseWriter, status int, next string, failed bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := struct {
		Title  string
		Next   string
		Failed bool
	}{g.title, next, failed}
	if err := loginTemplate.Execute(w, data); err != nil {
		log.Printf("[AUTH] Login template error: %v", err)
	}
}

// loginPostHandler validates the password, sets the cookie and redirects
func (g *PasswordGate) loginPostHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	next := safeRedirect(r.FormValue("next"))
	password := r.FormValue("password")
	if password == "" || !hmac.Equal([]byte(password), []byte(g.secret)) {
		log.Printf("[AUTH] Failed login from %s", r.RemoteAddr)
		g.renderLogin(w, http.StatusUnauthorized, next, true)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    signCookie(g.secret),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
	})
	http.Redirect(w, r, next, http.StatusFound)
}

// Wrap requires a valid cookie on every route except the login page
func (g *PasswordGate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			g.loginHandler(w, r)
			return
		}
		cookie, err := r.Cookie(cookieName)
		if err != nil || !verifyCookie(cookie.Value, g.secret) {
			if r.Method == http.MethodGet && !strings.HasPrefix(r.URL.Path, "/ws/") && !strings.HasPrefix(r.URL.Path, "/api/") {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// safeRedirect only allows local absolute paths
func safeRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
