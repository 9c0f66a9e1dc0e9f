package tts

import (
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	bulletRe  = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+`)
	linkRe    = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	spaceRe   = regexp.MustCompile(`\s+`)

	markup = strings.NewReplacer(
		"```", " ",
		"**", "",
		"__", "",
		"`", "",
		"$", "",
		`\times`, " times ",
		`\cdot`, " times ",
		`\div`, " divided by ",
		`\pm`, " plus or minus ",
		`\sqrt`, " square root of ",
		`\le`, " less than or equal to ",
		`\ge`, " greater than or equal to ",
	)
)

// SpokenText turns a markdown solution into plain text for speech.
// Headings, list markers, emphasis, code and inline math markup are
// dropped and whitespace is collapsed.
func SpokenText(s string) string {
	s = headingRe.ReplaceAllString(s, "")
	s = bulletRe.ReplaceAllString(s, "")
	s = linkRe.ReplaceAllString(s, "$1")
	s = markup.Replace(s)
	s = strings.ReplaceAll(s, "*", "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// truncate cuts s to at most n bytes, preferring the last space before
// the limit.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.ToValidUTF8(cut, "")
}
