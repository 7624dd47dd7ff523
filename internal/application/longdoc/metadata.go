package longdoc

import (
	"regexp"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

var (
	applicationNumberRe = regexp.MustCompile(
		`(?i)(?:application|serial)\s*(?:no\.?|number|#)\s*:?\s*(\d{2}/\d{3},\d{3}|\d{2}/\d{6}|\d{2},?\d{3},?\d{3}|PCT/[A-Z]{2}\d{4}/\d{6})`)

	mailingDateRe = regexp.MustCompile(
		`(?i)(?:mailing\s+date|notification\s+date|date\s+mailed)\s*:?\s*(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2}|[A-Za-z]{3,9}\.?\s+\d{1,2},\s*\d{4})`)

	// Keyword is case-insensitive, the name itself must be capitalised.
	examinerNameRe = regexp.MustCompile(
		`(?i:examiner)[ \t]*:?[ \t]*([A-Z][A-Za-z'.\-]+(?:,?[ \t]+[A-Z][A-Za-z'.\-]+){1,2})`)
)

// Form labels that follow "Examiner" on USPTO forms.  A name stops at the
// first of them, and a name starting with one is not a name.
var examinerStopWords = map[string]bool{
	"Art": true, "Paper": true, "Note": true, "Interview": true, "Initiated": true, "Signature": true,
}

// ExtractMetadata pulls optional header fields out of the full document text.
// Fields without a match are left empty.
func ExtractMetadata(text string) document.DocumentMetadata {
	var meta document.DocumentMetadata

	if m := applicationNumberRe.FindStringSubmatch(text); m != nil {
		meta.ApplicationNumber = m[1]
	}
	if m := mailingDateRe.FindStringSubmatch(text); m != nil {
		meta.MailingDate = strings.TrimSpace(m[1])
	}
	for _, m := range examinerNameRe.FindAllStringSubmatch(text, -1) {
		if name := examinerName(m[1]); name != "" {
			meta.ExaminerName = name
			break
		}
	}
	if n := strings.Count(text, "\f"); n > 0 {
		meta.PageCount = n + 1
	}
	return meta
}

// examinerName cuts the captured words at the first form label and collapses
// whitespace.  It returns "" when nothing precedes the label.
func examinerName(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		if examinerStopWords[strings.TrimRight(w, ",")] {
			words = words[:i]
			break
		}
	}
	return strings.TrimRight(strings.Join(words, " "), ",")
}

//Personal.AI order the ending
