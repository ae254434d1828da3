package device

import (
	"regexp"
	"strings"

	"liyu1981.xyz/printwatch-service/pkg/models"
)

// Condition is the classified status read from the device status page.
type Condition struct {
	Severity   models.Severity
	Text       string
	Background string
}

var (
	classOK      = regexp.MustCompile(`(?i)moniOk|ok`)
	classWarning = regexp.MustCompile(`(?i)warn|warning|moniWarn|moniWarning`)
	classError   = regexp.MustCompile(`(?i)err|error|ng|moniNg|moniErr`)

	backgroundDecl = regexp.MustCompile(`(?i)background(?:-color)?:\s*([^;]+)`)
)

type hueBucket struct {
	severity models.Severity
	tokens   []string
}

// Later buckets win when a color matches more than one.
var hueBuckets = []hueBucket{
	{models.SeverityWarning, []string{"#ffc", "yellow", "ffbf", "ffc107"}},
	{models.SeverityError, []string{"#f00", "red", "#dc3545", "#ff0000"}},
	{models.SeverityOK, []string{"#dff", "green", "#ddffcc", "#28a745"}},
}

// Background extracts the inline background color from a style attribute.
func Background(style string) string {
	m := backgroundDecl.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Classify maps a status element's class and inline style to a severity.
// Class keywords always outrank the background color.
func Classify(class, style string) (models.Severity, string) {
	bg := Background(style)

	switch {
	case classOK.MatchString(class):
		return models.SeverityOK, bg
	case classWarning.MatchString(class):
		return models.SeverityWarning, bg
	case classError.MatchString(class):
		return models.SeverityError, bg
	}

	severity := models.SeverityUnknown
	if bg != "" {
		lc := strings.ToLower(bg)
		for _, bucket := range hueBuckets {
			for _, tok := range bucket.tokens {
				if strings.Contains(lc, tok) {
					severity = bucket.severity
					break
				}
			}
		}
	}
	return severity, bg
}
