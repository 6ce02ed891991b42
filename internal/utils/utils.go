package utils

import (
	"path/filepath"
	"strings"

	"ai_app_server/internal/types"
)

// SourceFileName is the name given to the generated code inside the download archive.
func SourceFileName(framework string) string {
	switch types.Framework(framework) {
	case types.FrameworkNextJS:
		return "page.jsx"
	case types.FrameworkVue:
		return "App.vue"
	case types.FrameworkFlutter:
		return "main.dart"
	default:
		return "App.jsx"
	}
}

// PreviewLanguage is the language hint handed to the live renderer.
func PreviewLanguage(framework string) string {
	return LanguageForFile(SourceFileName(framework))
}

// LanguageForFile maps a file name to a syntax/language tag.
func LanguageForFile(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jsx", ".js":
		return "jsx"
	case ".tsx", ".ts":
		return "tsx"
	case ".vue":
		return "vue"
	case ".dart":
		return "dart"
	case ".html":
		return "html"
	case ".css":
		return "css"
	case ".json":
		return "json"
	default:
		return "text"
	}
}
