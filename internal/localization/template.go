package localization

import (
	"fmt"
	"regexp"
)

var placeholderRE = regexp.MustCompile(`\[%s:([a-zA-Z]+)]`)

// interpolate substitutes [%s:name] placeholders in a translated template.
// Unknown placeholders render as <name> so a broken translation is visible
// instead of silently dropped.
func interpolate(s string, subst map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholderRE.FindStringSubmatch(m)[1]
		if v, ok := subst[key]; ok {
			return v
		}
		return fmt.Sprintf("<%s>", key)
	})
}
