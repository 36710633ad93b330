package httpapp

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/favicon.svg
var faviconSVG []byte

type Templates struct {
	Home *template.Template
	Post *template.Template
}

func loadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"truncate": func(s string, n int) string {
			if len(s) <= n {
				return s
			}
			return s[:n] + "…"
		},
	}

	layoutContent, err := templateFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, err
	}

	// Each page template is the layout plus one content block.
	makePage := func(pageName string) (*template.Template, error) {
		pageContent, err := templateFS.ReadFile("templates/" + pageName + ".html")
		if err != nil {
			return nil, err
		}
		t := template.New("layout").Funcs(funcs)
		t, err = t.Parse(string(layoutContent))
		if err != nil {
			return nil, err
		}
		t, err = t.Parse(string(pageContent))
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	home, err := makePage("home")
	if err != nil {
		return nil, err
	}

	post, err := makePage("post")
	if err != nil {
		return nil, err
	}

	return &Templates{
		Home: home,
		Post: post,
	}, nil
}
