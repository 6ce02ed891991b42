package prompts

import "fmt"

// appGenerationPromptTemplate verbs, in order: app type, framework, user text, framework.
const appGenerationPromptTemplate = `Generate a %s using %s.

User Prompt: %s

Follow these rules:

1.  Follow current best practices and idiomatic project conventions for %s.
2.  Implement every feature listed in the user prompt above.
3.  In addition to the main code, include one standalone top-level component named ` + "`App`" + `
    declared as ` + "`function App() { ... }`" + `, with no props, that renders a working preview
    of the application on its own. It must not depend on routing, other files, or
    environment variables, so it can be rendered in isolation.

Only include code and short inline comments.`

// Compose builds the instruction string sent to the generation service.
// appType, framework and userText are embedded verbatim; inputs are trusted to be
// non-empty (form validation runs upstream).
func Compose(appType, framework, userText string) string {
	return fmt.Sprintf(appGenerationPromptTemplate, appType, framework, userText, framework)
}
