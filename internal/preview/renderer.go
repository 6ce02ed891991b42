package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Renderer mounts a fragment in a sandbox. Compile and runtime failures of the fragment
// are part of the rendered output, not errors; the error return is for the renderer itself.
type Renderer interface {
	Render(fragment, language string) ([]byte, error)
}

// The frame document gets React, ReactDOM and Babel from cdnBase and exposes render(el).
var frameTmpl = template.Must(template.New("frame").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Inter, sans-serif; margin: 12px; }
  #error { color: red; font-weight: bold; white-space: pre-wrap; }
</style>
{{- if .Supported}}
<script crossorigin src="{{.CDNBase}}/react@18/umd/react.development.js"></script>
<script crossorigin src="{{.CDNBase}}/react-dom@18/umd/react-dom.development.js"></script>
<script crossorigin src="{{.CDNBase}}/@babel/standalone/babel.min.js"></script>
{{- end}}
</head>
<body>
<div id="root"></div>
<pre id="error"></pre>
<script>
  const source = {{.Fragment}};
  const language = {{.Language}};
  const showError = (err) => { document.getElementById("error").textContent = String(err); };
  window.addEventListener("error", (e) => showError(e.error || e.message));
  {{- if .Supported}}
  try {
    const root = ReactDOM.createRoot(document.getElementById("root"));
    const render = (el) => root.render(el);
    const code = Babel.transform(source, { presets: ["react"] }).code;
    new Function("React", "render", code)(React, render);
  } catch (err) {
    showError(err);
  }
  {{- else}}
  showError("Live preview is not available for " + language + " code.");
  {{- end}}
</script>
</body>
</html>`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Live Preview</title></head>
<body style="margin:0">
<iframe title="Live Preview" sandbox="allow-scripts" style="border:1px solid #ddd;border-radius:6px;width:100%;height:100vh" srcdoc="{{.}}"></iframe>
</body>
</html>`))

// SandboxRenderer produces an HTML page hosting the fragment in a scripts-only iframe.
type SandboxRenderer struct {
	cdnBase string
}

func NewSandboxRenderer(cdnBase string) *SandboxRenderer {
	if cdnBase == "" {
		cdnBase = "https://unpkg.com"
	}
	return &SandboxRenderer{cdnBase: strings.TrimRight(cdnBase, "/")}
}

func (r *SandboxRenderer) Render(fragment, language string) ([]byte, error) {
	var frame bytes.Buffer
	err := frameTmpl.Execute(&frame, struct {
		CDNBase   string
		Fragment  string
		Language  string
		Supported bool
	}{
		CDNBase:   r.cdnBase,
		Fragment:  fragment,
		Language:  language,
		Supported: language == "jsx" || language == "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render preview frame: %w", err)
	}

	var page bytes.Buffer
	if err := pageTmpl.Execute(&page, frame.String()); err != nil {
		return nil, fmt.Errorf("failed to render preview page: %w", err)
	}
	return page.Bytes(), nil
}
