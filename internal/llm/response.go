package llm

import (
	"regexp"
	"strings"

	"github.com/queryscout/queryscout/internal/errors"
)

// The query-maker instructs the model to tag its output so the SQL statement
// and the explanation can be split apart afterward:
//
//	<SQL>
//	```sql
//	SELECT ...
//	```
//	<EXPLANATION>
//	```plaintext
//	...
//	```
var (
	sqlBlockRe         = regexp.MustCompile("(?s)<SQL>\\s*```sql\\n(.*?)```")
	explanationBlockRe = regexp.MustCompile("(?s)<EXPLANATION>\\s*```(?:plaintext|text)?\\n(.*?)```")
	bareSQLFenceRe     = regexp.MustCompile("(?s)```sql\\n(.*?)```")
)

// ExtractSQL pulls the SQL statement out of tagged model output. A missing
// SQL block is an extraction error, typed so callers can fall back to showing
// the raw text instead of crashing.
func ExtractSQL(text string) (string, error) {
	if match := sqlBlockRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1]), nil
	}

	// Models occasionally drop the tag but keep the fence
	if match := bareSQLFenceRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1]), nil
	}

	return "", errors.New(errors.ErrTypeExtraction, "no SQL block found in model output").
		WithSuggestion("Inspect the raw model output; the model may have refused or rambled")
}

// ExtractExplanation pulls the explanation block out of tagged model output.
// The explanation is optional: absence yields an empty string, not an error.
func ExtractExplanation(text string) string {
	if match := explanationBlockRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}

	return ""
}
