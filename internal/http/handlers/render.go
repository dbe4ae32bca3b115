package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// renderHTML executes a page into a buffer first so a template fault becomes
// a clean 500 instead of a half-written body.
func renderHTML(ctx *gin.Context, status int, page string, data interface{}) {
	var buf bytes.Buffer

	if err := pages.ExecuteTemplate(&buf, page, data); err != nil {
		slog.ErrorContext(ctx.Request.Context(), "template render failed", "page", page, "err", err)
		RenderServerError(ctx)
		return
	}

	ctx.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// RenderNotFound serves the site's 404 page.
func RenderNotFound(ctx *gin.Context) {
	var buf bytes.Buffer

	if err := pages.ExecuteTemplate(&buf, "404.html", nil); err != nil {
		ctx.String(http.StatusNotFound, "Page not found")
		return
	}

	ctx.Data(http.StatusNotFound, "text/html; charset=utf-8", buf.Bytes())
}

func RenderServerError(ctx *gin.Context) {
	var buf bytes.Buffer

	if err := pages.ExecuteTemplate(&buf, "error.html", nil); err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong")
		return
	}

	ctx.Data(http.StatusInternalServerError, "text/html; charset=utf-8", buf.Bytes())
}

// IsScriptRequest is the one policy decision point for the dual response
// mode: a request carrying the XMLHttpRequest marker gets structured JSON,
// everything else gets the rendered page.
func IsScriptRequest(ctx *gin.Context) bool {
	return ctx.GetHeader("X-Requested-With") == "XMLHttpRequest"
}
