package server

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-wellness-portal/users"
)

// pageData feeds every page template. Unused fields stay zero.
type pageData struct {
	Title          string
	Error          string
	Notice         string
	Email          string
	RedirectTarget string
	GoogleSignIn   bool
	User           *users.User
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("template render failed")
	}
}

var pages = template.Must(template.New("pages").Parse(`
{{define "top"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} - Wellness Portal</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
{{end}}

{{define "bottom"}}</body>
</html>
{{end}}

{{define "home"}}{{template "top" .}}
{{if .User}}
<p>Welcome back, {{.User.FullName}}.</p>
<p><a href="/account">Your account</a></p>
<form method="post" action="/logout"><button type="submit">Sign out</button></form>
{{else}}
<p><a href="/signin">Sign in</a> or <a href="/signup">create an account</a>.</p>
{{end}}
{{template "bottom" .}}{{end}}

{{define "signin"}}{{template "top" .}}
<form method="post" action="/signin">
<input type="hidden" name="redirect" value="{{.RedirectTarget}}">
<label>Email <input type="email" name="email" value="{{.Email}}" required></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Sign in</button>
</form>
{{if .GoogleSignIn}}<p><a href="/auth/google?redirect={{.RedirectTarget}}">Continue with Google</a></p>{{end}}
<p><a href="/signup">Create an account</a></p>
{{template "bottom" .}}{{end}}

{{define "signup"}}{{template "top" .}}
<form method="post" action="/signup">
<label>First name <input type="text" name="firstName" required></label>
<label>Last name <input type="text" name="lastName" required></label>
<label>Email <input type="email" name="email" required></label>
<label>Phone <input type="tel" name="phone"></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Create account</button>
</form>
{{template "bottom" .}}{{end}}

{{define "verify"}}{{template "top" .}}
<p>Enter the one-time code we sent to your email.</p>
<form method="post" action="/verify-email">
<input type="hidden" name="email" value="{{.Email}}">
<label>Code <input type="text" name="otp" inputmode="numeric" required></label>
<button type="submit">Verify</button>
</form>
{{template "bottom" .}}{{end}}

{{define "account"}}{{template "top" .}}
{{with .User}}
<p>{{.Email}} ({{.Role}})</p>
{{if .ProfilePicture}}<img src="{{.ProfilePicture}}" alt="Profile picture">{{end}}
<form method="post" action="/account">
<label>First name <input type="text" name="firstName" value="{{.FirstName}}"></label>
<label>Last name <input type="text" name="lastName" value="{{.LastName}}"></label>
<label>Phone <input type="tel" name="phone" value="{{.Phone}}"></label>
<label>City <input type="text" name="city" value="{{.City}}"></label>
<label>Address <input type="text" name="address" value="{{.Address}}"></label>
<label>Bio <textarea name="bio">{{.Bio}}</textarea></label>
<button type="submit">Save</button>
</form>
<form method="post" action="/account/picture" enctype="multipart/form-data">
<label>Picture <input type="file" name="picture"></label>
<button type="submit">Upload</button>
</form>
{{end}}
<form method="post" action="/logout"><button type="submit">Sign out</button></form>
{{template "bottom" .}}{{end}}

{{define "moderation"}}{{template "top" .}}
<p>Moderation tools for {{.User.FullName}}.</p>
{{template "bottom" .}}{{end}}

{{define "management"}}{{template "top" .}}
<p>Management console for {{.User.FullName}}.</p>
{{template "bottom" .}}{{end}}

{{define "denied"}}{{template "top" .}}
<p>You don't have access to that page.</p>
<p><a href="/">Back to home</a></p>
{{template "bottom" .}}{{end}}
`))
