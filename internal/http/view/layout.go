// Package view renders the minimal server-side pages: challenge pages, bio cards and
// the terminal states (not found, expired, error).
package view

import (
	"bytes"
	"html/template"
)

const layoutTmpl = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{if .Title}}{{.Title}}{{else}}LinkGate{{end}}</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			--accent-strong: #38bdf8;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		body.theme-light { background: #f4f6fb; color: #111827; }
		body.theme-sunset { background: linear-gradient(160deg, #f97316, #7c2d12); }
		body.theme-ocean { background: linear-gradient(160deg, #0ea5e9, #0c4a6e); }
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(520px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
			text-align: center;
		}
		h1 { font-size: 1.5rem; margin-bottom: 6px; }
		p { color: var(--muted); margin-top: 0; }
		.button {
			display: inline-flex;
			align-items: center;
			justify-content: center;
			padding: 0 28px;
			height: 48px;
			border: 0;
			border-radius: 999px;
			background: linear-gradient(120deg, var(--accent), var(--accent-strong));
			color: #050708;
			font-weight: 600;
			font-size: 1rem;
			text-decoration: none;
			cursor: pointer;
			margin: 6px;
		}
		.button[disabled] { opacity: 0.5; cursor: default; }
		.status { margin-top: 18px; color: var(--muted); }
		.swatches { display: flex; flex-wrap: wrap; justify-content: center; gap: 10px; margin: 20px 0; }
		.swatch { width: 56px; height: 56px; border-radius: 14px; border: 2px solid var(--border); cursor: pointer; }
		.progress { letter-spacing: 0.3em; font-size: 1.4rem; }
		.links a { display: block; margin: 10px 0; }
		.avatar { width: 96px; height: 96px; border-radius: 50%; object-fit: cover; }
		.socials a { margin: 0 6px; color: var(--accent); }
	</style>
</head>
<body class="theme-{{.Theme}}">
	<div class="card">
		{{template "content" .}}
	</div>
	{{template "script" .}}
</body>
</html>{{end}}
{{define "script"}}{{end}}`

// page parses body (which must define "content" and may define "script") on top of
// the shared layout.
func page(name, body string) *template.Template {
	t := template.Must(template.New(name).Parse(layoutTmpl))
	return template.Must(t.Parse(body))
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
