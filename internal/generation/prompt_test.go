package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyForModel(t *testing.T) {
	assert.Equal(t, FamilySeq2Seq, FamilyForModel("google/flan-t5-base"))
	assert.Equal(t, FamilySeq2Seq, FamilyForModel("T5-small"))
	assert.Equal(t, FamilyCausal, FamilyForModel("gpt-4o-mini"))
}

func TestPromptBuilder_Seq2Seq(t *testing.T) {
	b, err := NewPromptBuilder(PromptOptions{Family: FamilySeq2Seq})
	require.NoError(t, err)
	got, err := b.Build([]string{"Paris is the capital of France.", "It is large."}, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Context: Paris is the capital of France. It is large.\n\nQuestion: What is the capital of France?\n\nAnswer:", got)
}

func TestPromptBuilder_Causal(t *testing.T) {
	b, err := NewPromptBuilder(PromptOptions{Family: FamilyCausal})
	require.NoError(t, err)
	got, err := b.Build([]string{"ctx"}, "q?")
	require.NoError(t, err)
	assert.Equal(t, "Given the following context:\n\nctx\n\nAnswer the question: q?\n\nAnswer:", got)
}

func TestPromptBuilder_ContextTruncated(t *testing.T) {
	b, err := NewPromptBuilder(PromptOptions{Family: FamilySeq2Seq, MaxContextChars: 5})
	require.NoError(t, err)
	got, err := b.Build([]string{"héllo world"}, "q")
	require.NoError(t, err)
	assert.Equal(t, "Context: héllo\n\nQuestion: q\n\nAnswer:", got)
}

func TestPromptBuilder_TokenLimit(t *testing.T) {
	b, err := NewPromptBuilder(PromptOptions{Family: FamilySeq2Seq, MaxContextChars: 10000, MaxPromptTokens: 4})
	require.NoError(t, err)
	got, err := b.Build([]string{strings.Repeat("word ", 50)}, "q")
	require.NoError(t, err)
	assert.Equal(t, "Context: word word word", got)
}

func TestPromptBuilder_CustomTemplate(t *testing.T) {
	b, err := NewPromptBuilder(PromptOptions{Template: "Q={{.Question}} C={{.Context}}"})
	require.NoError(t, err)
	got, err := b.Build([]string{"a", "b"}, "x")
	require.NoError(t, err)
	assert.Equal(t, "Q=x C=a b", got)

	_, err = NewPromptBuilder(PromptOptions{Template: "{{.Question"})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a  b", TruncateTokens("a  b c", 2))
	assert.Equal(t, "a b", TruncateTokens("a b", 5))
	assert.Equal(t, "", TruncateTokens("a b", 0))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "abc", TruncateRunes("abc", 10))
}
