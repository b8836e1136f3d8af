package utils

import "github.com/microcosm-cc/bluemonday"

// user content may carry basic formatting; scripts, styles and event handlers are stripped
var sanitizer = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// Sanitize cleans user-submitted HTML.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
