package utils

import "regexp"

var regexSpecials = regexp.MustCompile(`[-\[\]{}()*+?.,\\^$|#\s]`)

// EscapeRegex backslash-escapes regex metacharacters, commas, hashes and
// whitespace so user input can be embedded in a MongoDB $regex literally.
func EscapeRegex(text string) string {
	return regexSpecials.ReplaceAllString(text, `\${0}`)
}
