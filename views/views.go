// Package views renders the HTML representations of posts. It only formats
// data handed to it and never reads the database or the request.
package views

import (
	"bytes"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/cppla/wallpress/models"
)

// Template names registered by Templates.
const (
	PostListTemplate   = "post_list.html"
	PostDetailTemplate = "post_detail.html"
	NotFoundTemplate   = "not_found.html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// PostListPage is the data of the post listing page.
type PostListPage struct {
	Posts     []models.PostWithAuthor
	Page      int
	PageCount int
	Limit     int
	Total     int64
}

// HasPrev reports whether a previous page exists.
func (p PostListPage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p PostListPage) HasNext() bool { return p.Page < p.PageCount }

// PostDetailPage is the data of a single post page.
type PostDetailPage struct {
	Post models.PostWithAuthor
	Body template.HTML
}

// NotFoundPage is the data of the 404 page.
type NotFoundPage struct {
	Message string
}

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

// NewPostDetailPage renders the post body for display.
func NewPostDetailPage(post models.PostWithAuthor) (PostDetailPage, error) {
	body, err := RenderMarkdown(post.Content)
	if err != nil {
		return PostDetailPage{}, err
	}
	return PostDetailPage{Post: post, Body: body}, nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Templates parses every page template.
func Templates() *template.Template {
	funcs := template.FuncMap{
		"date": formatDate,
		"prev": func(p int) int { return p - 1 },
		"next": func(p int) int { return p + 1 },
	}
	t := template.New("").Funcs(funcs)
	template.Must(t.New("layout_head").Parse(layoutHead))
	template.Must(t.New("layout_foot").Parse(layoutFoot))
	template.Must(t.New(PostListTemplate).Parse(postListHTML))
	template.Must(t.New(PostDetailTemplate).Parse(postDetailHTML))
	template.Must(t.New(NotFoundTemplate).Parse(notFoundHTML))
	return t
}

const layoutHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title>
</head>
<body>
<main>`

const layoutFoot = `</main>
</body>
</html>`

const postListHTML = `{{template "layout_head" "Posts"}}
<h1>Posts</h1>
{{range .Posts}}
<article>
  <h2><a href="/posts/{{.Slug}}">{{.Title}}</a></h2>
  <p class="meta">{{if .AuthorName}}{{.AuthorName}} · {{end}}{{date .PublishedAt}}</p>
  {{if .Excerpt}}<p>{{.Excerpt}}</p>{{end}}
</article>
{{else}}
<p>No posts yet.</p>
{{end}}
<nav>
  {{if .HasPrev}}<a rel="prev" href="/posts?page={{prev .Page}}&limit={{.Limit}}">Newer</a>{{end}}
  {{if .HasNext}}<a rel="next" href="/posts?page={{next .Page}}&limit={{.Limit}}">Older</a>{{end}}
</nav>
{{template "layout_foot"}}`

const postDetailHTML = `{{template "layout_head" .Post.Title}}
<article>
  <h1>{{.Post.Title}}</h1>
  <p class="meta">{{if .Post.AuthorName}}{{.Post.AuthorName}} · {{end}}{{date .Post.PublishedAt}}</p>
  <div class="content">{{.Body}}</div>
</article>
{{template "layout_foot"}}`

const notFoundHTML = `{{template "layout_head" "Not found"}}
<h1>Not found</h1>
<p>{{.Message}}</p>
{{template "layout_foot"}}`
