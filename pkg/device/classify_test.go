package device

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"liyu1981.xyz/printwatch-service/pkg/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		class    string
		style    string
		severity models.Severity
		bg       string
	}{
		{"ok class", "moniOk", "", models.SeverityOK, ""},
		{"warning class", "moniWarn", "", models.SeverityWarning, ""},
		{"error class", "moniErr", "", models.SeverityError, ""},
		{"ng class", "moniNg", "", models.SeverityError, ""},
		{"class beats color", "moniWarn", "background: red", models.SeverityWarning, "red"},
		{"yellow color", "status", "background-color: #FFC107;", models.SeverityWarning, "#FFC107"},
		{"red color", "status", "color: #fff; background: #ff0000", models.SeverityError, "#ff0000"},
		{"green color", "status", "background-color:#ddffcc", models.SeverityOK, "#ddffcc"},
		{"unmatched color", "status", "background: #123456", models.SeverityUnknown, "#123456"},
		{"nothing", "", "", models.SeverityUnknown, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			severity, bg := Classify(tc.class, tc.style)
			assert.Equal(t, tc.severity, severity)
			assert.Equal(t, tc.bg, bg)
		})
	}
}

func TestClassifyLaterHueBucketWins(t *testing.T) {
	// "yellowgreen" hits both the yellow and the green bucket
	severity, _ := Classify("", "background: yellowgreen")
	assert.Equal(t, models.SeverityOK, severity)
}
