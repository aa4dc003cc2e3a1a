package view

// PageState names the terminal states a public page can end in.
type PageState string

const (
	StateNotFound PageState = "not_found"
	StateExpired  PageState = "expired"
	StateError    PageState = "error"
)

type statePageData struct {
	Title   string
	Theme   string
	Heading string
	Message string
}

var statePageTmpl = page("state_page", `{{define "content"}}
		<h1>{{.Heading}}</h1>
		<p>{{.Message}}</p>
		<a class="button" href="/">Home</a>
{{end}}`)

// RenderState renders the page shown for a terminal state.
func RenderState(state PageState) (string, error) {
	data := statePageData{Theme: "default"}
	switch state {
	case StateNotFound:
		data.Title, data.Heading = "Not found", "Link not found"
		data.Message = "This link does not exist or is no longer available."
	case StateExpired:
		data.Title, data.Heading = "Expired", "Link expired"
		data.Message = "The owner set this link to expire and it is no longer active."
	default:
		data.Title, data.Heading = "Error", "Something went wrong"
		data.Message = "Please try again in a moment."
	}
	return render(statePageTmpl, data)
}
