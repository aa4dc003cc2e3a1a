package view

import (
	"github.com/sifan077/LinkGate/internal/app/model"
)

type bioPageData struct {
	Title string
	Theme string
	Card  *model.BioCard
}

var bioPageTmpl = page("bio_page", `{{define "content"}}
		{{with .Card}}
		{{if .AvatarURL}}<img class="avatar" src="{{.AvatarURL}}" alt="{{.Title}}" />{{end}}
		<h1>{{.Title}}</h1>
		{{if .Bio}}<p>{{.Bio}}</p>{{end}}
		<div class="links">
			{{$slug := .Slug}}
			{{range .Links}}<a class="button" href="/p/{{$slug}}/l/{{.ID}}" rel="noopener">{{.Title}}</a>{{end}}
		</div>
		{{if .Socials}}
		<div class="socials">
			{{range .Socials}}<a href="{{.URL}}" rel="noopener me">{{.Platform}}</a>{{end}}
		</div>
		{{end}}
		{{end}}
{{end}}`)

// RenderBioPage renders a published card.
func RenderBioPage(card *model.BioCard) (string, error) {
	title := card.Title
	if title == "" {
		title = card.Slug
	}
	theme := card.Theme
	if theme == "" {
		theme = "default"
	}
	return render(bioPageTmpl, bioPageData{Title: title, Theme: theme, Card: card})
}
