// Package web holds the server-rendered page templates.
package web

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/freemirror/yatube/utils"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page. mediaURL turns a stored image name into a public URL.
func Templates(mediaURL func(string) string) (*template.Template, error) {
	funcs := template.FuncMap{
		// post and comment text is stored as typed
		"sanitize": func(s string) template.HTML { return template.HTML(utils.Sanitize(s)) },
		"media": func(name string) string {
			if name == "" || mediaURL == nil {
				return ""
			}
			return mediaURL(name)
		},
		"date": func(t time.Time) string { return t.Format("2 Jan 2006 15:04") },
		"truncate": func(s string, n int) string {
			r := []rune(s)
			if len(r) <= n {
				return s
			}
			return strings.TrimSpace(string(r[:n])) + "…"
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
