package ai

import (
	"fmt"
	"regexp"
	"strings"
)

// promptVarRe matches {{name}} tokens in prompt templates.
var promptVarRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// allowedPromptVars is the fixed whitelist of substitutable template
// variables. Anything else in a template is a programming error, not an
// expression language.
var allowedPromptVars = map[string]bool{
	"query": true,
}

// RenderPrompt substitutes whitelisted {{var}} tokens in a template. It
// returns an error when the template references a variable outside the
// whitelist or one missing from vars.
func RenderPrompt(template string, vars map[string]string) (string, error) {
	var renderErr error
	out := promptVarRe.ReplaceAllStringFunc(template, func(token string) string {
		name := promptVarRe.FindStringSubmatch(token)[1]
		if !allowedPromptVars[name] {
			if renderErr == nil {
				renderErr = fmt.Errorf("prompt template references unknown variable %q", name)
			}
			return token
		}
		value, ok := vars[name]
		if !ok {
			if renderErr == nil {
				renderErr = fmt.Errorf("prompt template variable %q has no value", name)
			}
			return token
		}
		return strings.TrimSpace(value)
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}
