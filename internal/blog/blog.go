// Package blog renders a snapshot as a standalone HTML post.
package blog

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deusflow/dailybrief/internal/snapshot"
)

const allCategory = "all"

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	// Generated summaries keep their line breaks.
	"paragraphs": func(s string) []string {
		var out []string
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	},
}

var postTemplate = template.Must(template.New("post").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Date}}의 주요 뉴스를 정리해 드립니다.</p>
<hr/>
{{range .Groups}}
<h2 style="color: #2c3e50;">{{if .Category.Name}}{{.Category.Name}}{{else}}{{.Category.ID}}{{end}}</h2>
{{range $i, $it := .Items}}
<h3 style="background: #f1f3f5; padding: 10px;">{{inc $i}}. {{$it.Title}}</h3>
{{range paragraphs $it.Summary}}<p style="line-height: 1.8;">{{.}}</p>
{{end}}{{if $it.URL}}<p><a href="{{$it.URL}}" target="_blank" rel="noopener">기사 원문 확인하기</a> · {{$it.Source}}</p>{{end}}
{{end}}
<hr/>
{{end}}
<p><small>Generated {{.GeneratedAt}}</small></p>
</body>
</html>
`))

type page struct {
	Title       string
	Date        string
	GeneratedAt string
	Groups      []snapshot.Group
}

// Render writes the post for s, with up to perCategory items per display
// category. The "all" category is skipped.
func Render(w io.Writer, s *snapshot.Snapshot, perCategory int, date time.Time) error {
	day := date.Format("2006년 01월 02일")
	p := page{
		Title:       fmt.Sprintf("[%s] 오늘의 분야별 뉴스 요약", day),
		Date:        day,
		GeneratedAt: s.GeneratedAt,
		Groups:      s.ByCategory(perCategory, allCategory),
	}
	if err := postTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("failed to render post: %w", err)
	}
	return nil
}

// WriteFile renders the post to path, replacing any previous file.
func WriteFile(path string, s *snapshot.Snapshot, perCategory int, date time.Time) error {
	var buf bytes.Buffer
	if err := Render(&buf, s, perCategory, date); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create post dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write post: %w", err)
	}
	return nil
}
