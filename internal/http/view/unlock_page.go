package view

import (
	"github.com/sifan077/LinkGate/internal/unlock"
)

// CountdownPageData drives the click/countdown unlocker page.
type CountdownPageData struct {
	Title            string
	Theme            string
	SessionURL       string
	ClickURL         string
	ButtonTexts      []string
	RequiredClicks   int
	CountdownSeconds int
}

var countdownPageTmpl = page("countdown_page", `{{define "content"}}
		<h1>{{if .Title}}{{.Title}}{{else}}Unlock your link{{end}}</h1>
		<p>Click {{.RequiredClicks}} time{{if ne .RequiredClicks 1}}s{{end}}{{if gt .CountdownSeconds 0}}, then wait {{.CountdownSeconds}} seconds{{end}}.</p>
		<button id="cta" class="button" type="button">Continue</button>
		<div id="status" class="status">0 / {{.RequiredClicks}}</div>
{{end}}
{{define "script"}}
	<script>
		(function() {
			const texts = {{.ButtonTexts}} || [];
			const required = {{.RequiredClicks}};
			const sessionURL = {{.SessionURL}};
			const clickURL = {{.ClickURL}};
			const cta = document.getElementById("cta");
			const status = document.getElementById("status");
			let polling = null;

			const label = (clicks) => texts[clicks] || ("Continue (" + (clicks + 1) + "/" + required + ")");
			const show = (res) => {
				const s = res.snapshot;
				if (res.open_url) window.open(res.open_url, "_blank", "noopener");
				if (s.state === "unlocked" && res.continue_url) {
					clearInterval(polling);
					cta.disabled = false;
					cta.textContent = "Go to destination";
					cta.onclick = () => window.location.assign(res.continue_url);
					status.textContent = "Unlocked";
					return;
				}
				if (s.state === "counting") {
					cta.disabled = true;
					status.textContent = "Unlocking in " + s.countdown_remaining + "s";
					if (!polling) polling = setInterval(refresh, 1000);
					return;
				}
				cta.textContent = label(s.clicks);
				status.textContent = s.clicks + " / " + required;
			};
			const refresh = () => fetch(sessionURL).then(r => r.json()).then(show);
			cta.textContent = label(0);
			cta.onclick = () => fetch(clickURL, {method: "POST"}).then(r => r.json()).then(show);
		})();
	</script>
{{end}}`)

// RenderCountdownPage renders the click/countdown challenge.
func RenderCountdownPage(data CountdownPageData) (string, error) {
	if data.Theme == "" {
		data.Theme = "default"
	}
	return render(countdownPageTmpl, data)
}

// SequencePageData drives the colour sequence unlocker page. The target is never sent.
type SequencePageData struct {
	Title      string
	Theme      string
	SessionURL string
	PressURL   string
	Length     int
	Palette    []unlock.Color
}

var sequencePageTmpl = page("sequence_page", `{{define "content"}}
		<h1>{{if .Title}}{{.Title}}{{else}}Enter the sequence{{end}}</h1>
		<p>Tap the {{.Length}} colours in the right order. A wrong colour starts over.</p>
		<div class="swatches">
			{{range .Palette}}<button class="swatch" type="button" data-color="{{.}}" style="background: {{.}}" aria-label="{{.}}"></button>{{end}}
		</div>
		<div id="progress" class="progress"></div>
		<div id="status" class="status"></div>
		<a id="go" class="button" style="display:none">Go to destination</a>
{{end}}
{{define "script"}}
	<script>
		(function() {
			const pressURL = {{.PressURL}};
			const length = {{.Length}};
			const progress = document.getElementById("progress");
			const status = document.getElementById("status");
			const go = document.getElementById("go");

			const show = (res) => {
				const s = res.snapshot;
				progress.textContent = "●".repeat(s.progress) + "○".repeat(length - s.progress);
				status.textContent = res.reset ? "Wrong colour, start again" : "";
				if (s.state === "unlocked" && res.continue_url) {
					go.href = res.continue_url;
					go.style.display = "inline-flex";
					status.textContent = "Unlocked";
				}
			};
			document.querySelectorAll(".swatch").forEach((b) => {
				b.onclick = () => fetch(pressURL, {
					method: "POST",
					headers: {"Content-Type": "application/json"},
					body: JSON.stringify({color: b.dataset.color}),
				}).then(r => r.json()).then(show);
			});
			show({snapshot: {progress: 0}});
		})();
	</script>
{{end}}`)

// RenderSequencePage renders the colour sequence challenge.
func RenderSequencePage(data SequencePageData) (string, error) {
	if data.Theme == "" {
		data.Theme = "default"
	}
	if len(data.Palette) == 0 {
		data.Palette = unlock.Palette
	}
	return render(sequencePageTmpl, data)
}
