package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscout/queryscout/internal/errors"
)

const taggedOutput = "<SQL>\n```sql\nSELECT count(*) FROM orders\n```\n" +
	"<EXPLANATION>\n```plaintext\nCounts all orders.\n```"

func TestExtractSQL(t *testing.T) {
	sql, err := ExtractSQL(taggedOutput)
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM orders", sql)
}

func TestExtractSQLBareFence(t *testing.T) {
	output := "Here is the query:\n```sql\nSELECT 1\n```\nHope that helps."

	sql, err := ExtractSQL(output)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
}

func TestExtractSQLMultiline(t *testing.T) {
	output := "<SQL>\n```sql\nSELECT user_id,\n       count(*)\nFROM orders\nGROUP BY 1\n```"

	sql, err := ExtractSQL(output)
	require.NoError(t, err)
	assert.Equal(t, "SELECT user_id,\n       count(*)\nFROM orders\nGROUP BY 1", sql)
}

func TestExtractSQLMissing(t *testing.T) {
	_, err := ExtractSQL("I cannot answer that question.")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeExtraction))
}

func TestExtractExplanation(t *testing.T) {
	assert.Equal(t, "Counts all orders.", ExtractExplanation(taggedOutput))
}

func TestExtractExplanationTextFence(t *testing.T) {
	output := "<EXPLANATION>\n```text\nJoins users to orders.\n```"
	assert.Equal(t, "Joins users to orders.", ExtractExplanation(output))
}

func TestExtractExplanationAbsent(t *testing.T) {
	assert.Empty(t, ExtractExplanation("<SQL>\n```sql\nSELECT 1\n```"))
}
