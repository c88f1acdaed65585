// Package tags extracts and strips the tagged spans embedded in model output.
//
// Turn text in transit carries plain substring conventions, not a schema:
// a <thinking> span, a <branches> span with newline-delimited choices, the
// <table_stored>/<state_update> world-state blocks, and a <user_input>
// wrapper around player messages. Every consumer of model output goes
// through this package.
package tags

import (
	"fmt"
	"regexp"
	"strings"
)

// Well-known tag names.
const (
	TagThinking    = "thinking"
	TagBranches    = "branches"
	TagTableStored = "table_stored"
	TagStateUpdate = "state_update"
	TagUserInput   = "user_input"
)

// tagPatterns caches one compiled pattern per tag name. The set of tags is
// small and fixed, so patterns are built up-front.
var tagPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, tag := range []string{
		TagThinking, TagBranches, TagTableStored, TagStateUpdate, TagUserInput,
		"content", "tableEdit", "tableThink", "table_rule",
	} {
		tagPatterns[tag] = compileTag(tag)
	}
}

func compileTag(tag string) *regexp.Regexp {
	// (?s) so the span may cross newlines; non-greedy so the first closing
	// tag wins.
	return regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, regexp.QuoteMeta(tag), regexp.QuoteMeta(tag)))
}

// Extract returns the inner content of the first <tag>...</tag> span in text,
// or "" when the tag is absent. Exactly one extraction per call.
func Extract(text, tag string) string {
	re, ok := tagPatterns[tag]
	if !ok {
		re = compileTag(tag)
	}

	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m[1])
}

// Wrap surrounds text with <tag>...</tag>. Wrapping is idempotent: text that
// already contains the opening tag is returned unchanged.
func Wrap(text, tag string) string {
	if strings.Contains(text, "<"+tag+">") {
		return text
	}
	return fmt.Sprintf("<%s>%s</%s>", tag, text, tag)
}

// artifactPatterns are the structural spans removed from model output before
// any other cleanup. Order matters: whole tagged blocks go first, then the
// stray tag remnants.
var artifactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<tableEdit>(?:.*?)</tableEdit>`),
	regexp.MustCompile(`(?s)<tableThink>(?:.*?)</tableThink>`),
	regexp.MustCompile(`(?s)<table_stored>(?:.*?)</table_stored>`),
	regexp.MustCompile(`(?s)<state_update>(?:.*?)</state_update>`),
	regexp.MustCompile(`(?s)<thinking>(?:.*?)</thinking>`),
	regexp.MustCompile(`(?s)<branches>(?:.*?)</branches>`),
	regexp.MustCompile(`(?s)<user_input>(?:.*?)</user_input>`),
	regexp.MustCompile(`</?content>`),
}

var (
	asteriskPattern = regexp.MustCompile(`\*+`)
	quotePattern    = regexp.MustCompile(`"([^"\n]+)"`)
	blankRunPattern = regexp.MustCompile(`\n{3,}`)
)

// Clean strips all recognized system tags and artifacts from raw model output,
// yielding human-facing prose. Artifact removal runs before asterisk removal;
// runs of blank lines left behind by removed blocks are collapsed.
func Clean(raw string) string {
	out := raw
	for _, re := range artifactPatterns {
		out = re.ReplaceAllString(out, "")
	}

	out = asteriskPattern.ReplaceAllString(out, "")
	out = blankRunPattern.ReplaceAllString(out, "\n\n")

	return strings.TrimSpace(out)
}

// Highlight wraps "double-quoted" spans in the given left/right markers for
// display. It is applied last, on already-cleaned prose, and never as part of
// extraction.
func Highlight(cleaned, left, right string) string {
	return quotePattern.ReplaceAllString(cleaned, left+`"$1"`+right)
}
