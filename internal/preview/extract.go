// Package preview turns generated source text into something a sandboxed renderer can mount.
package preview

import (
	"regexp"
	"strings"
)

var (
	importLineRe  = regexp.MustCompile(`(?m)^import .*from .*\n?`)
	appFunctionRe = regexp.MustCompile(`function\s+App\s*\(`)
)

const (
	exportDefault = "export default "
	renderCall    = "\n\nrender(<App />);"
)

// ExtractRenderable strips module import lines and "export default " keywords and, when a
// function named App is present, appends a render call for it.
//
// It is a text heuristic, not a parser: the render call always goes at the end of the
// text, so trailing prose or an App nested past a later declaration produces a fragment
// the renderer will reject. It never fails.
func ExtractRenderable(raw string) string {
	code := stripModuleSyntax(raw)
	if appFunctionRe.MatchString(code) {
		return code + renderCall
	}
	return code
}

func stripModuleSyntax(src string) string {
	src = importLineRe.ReplaceAllString(src, "")
	return strings.ReplaceAll(src, exportDefault, "")
}

// Extractor is the signature shared by ExtractRenderable and ScanRenderable.
type Extractor func(raw string) string

// ExtractorByName returns ScanRenderable for "scan" and ExtractRenderable otherwise.
func ExtractorByName(name string) Extractor {
	if strings.EqualFold(name, "scan") {
		return ScanRenderable
	}
	return ExtractRenderable
}
