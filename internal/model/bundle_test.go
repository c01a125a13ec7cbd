package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBundleCanonicalForm(t *testing.T) {
	raw := []byte(`{
		"shortSummary": "breve",
		"extendedSummary": "esteso",
		"conceptMap": [{"title":"root","children":[{"title":"leaf"}]}],
		"flashcards": [{"front":"f","back":"b"}],
		"quiz": [{"kind":"single_choice","prompt":"q","options":["a","b"],"correctIndex":1}],
		"examGuide": {"freeform":"ripassa tutto"},
		"sessionId": "abc-123",
		"creditsCharged": 3,
		"newBalance": 7
	}`)

	bundle, dropped, err := DecodeBundle(raw)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, "breve", bundle.ShortSummary)
	assert.Equal(t, "esteso", bundle.ExtendedSummary)
	require.Len(t, bundle.ConceptMap, 1)
	assert.Equal(t, "leaf", bundle.ConceptMap[0].Children[0].Title)
	assert.Equal(t, "ripassa tutto", bundle.ExamGuide.Freeform)
	assert.Equal(t, "abc-123", bundle.SessionID)
	assert.Equal(t, 3, bundle.CreditsCharged)
	assert.Equal(t, 7, bundle.NewBalance)
}

// 旧字段名记录解码结果必须与规范字段名完全一致
func TestDecodeBundleLegacyAliasEquivalence(t *testing.T) {
	canonical := []byte(`{
		"shortSummary": "s",
		"extendedSummary": "e",
		"conceptMap": [{"title":"n","children":[{"title":"c"}]}],
		"flashcards": [{"front":"f","back":"b"}],
		"quiz": [{"kind":"single_choice","prompt":"q","options":["a","b"],"correctIndex":0}],
		"examGuide": "testo",
		"creditsCharged": 2,
		"newBalance": 5
	}`)
	legacy := []byte(`{
		"summary": "s",
		"detailedSummary": "e",
		"mindMap": [{"name":"n","nodes":[{"name":"c"}]}],
		"cards": [{"front":"f","back":"b"}],
		"questions": [{"type":"multiple_choice","question":"q","choices":["a","b"],"answerIndex":0}],
		"guide": "testo",
		"creditsUsed": 2,
		"newCreditBalance": 5
	}`)

	a, _, err := DecodeBundle(canonical)
	require.NoError(t, err)
	b, _, err := DecodeBundle(legacy)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeBundleMissingCollectionsDefaultEmpty(t *testing.T) {
	bundle, dropped, err := DecodeBundle([]byte(`{"shortSummary":"solo"}`))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.NotNil(t, bundle.ConceptMap)
	assert.NotNil(t, bundle.Flashcards)
	assert.NotNil(t, bundle.Quiz)
	assert.Empty(t, bundle.ConceptMap)
	assert.Empty(t, bundle.Flashcards)
	assert.Empty(t, bundle.Quiz)
	assert.True(t, bundle.ExamGuide.IsZero())
}

func TestDecodeBundleBothSummariesMissing(t *testing.T) {
	_, _, err := DecodeBundle([]byte(`{"quiz":[],"summary":"  "}`))
	assert.ErrorIs(t, err, ErrMissingSummaries)
}

func TestDecodeBundleCountsDroppedQuestions(t *testing.T) {
	raw := []byte(`{
		"shortSummary": "s",
		"quiz": [
			{"kind":"single_choice","prompt":"ok","options":["a","b"],"correctIndex":0},
			{"kind":"single_choice","prompt":"broken","options":["a"],"correctIndex":0},
			{"prompt":""}
		]
	}`)

	bundle, dropped, err := DecodeBundle(raw)
	require.NoError(t, err)
	assert.Len(t, bundle.Quiz, 1)
	assert.Equal(t, 2, dropped)
}

func TestDecodeBundleSingleRootConceptMap(t *testing.T) {
	bundle, _, err := DecodeBundle([]byte(`{"shortSummary":"s","mindMap":{"name":"radice","nodes":[{"name":"foglia"}]}}`))
	require.NoError(t, err)
	require.Len(t, bundle.ConceptMap, 1)
	assert.Equal(t, "radice", bundle.ConceptMap[0].Title)
	require.Len(t, bundle.ConceptMap[0].Children, 1)
	assert.Equal(t, "foglia", bundle.ConceptMap[0].Children[0].Title)
}

func TestExamGuideUnmarshalForms(t *testing.T) {
	t.Run("plain string", func(t *testing.T) {
		var g ExamGuide
		require.NoError(t, g.UnmarshalJSON([]byte(`"ripasso"`)))
		assert.Equal(t, "ripasso", g.Freeform)
		assert.Nil(t, g.Structured)
	})

	t.Run("canonical structured", func(t *testing.T) {
		var g ExamGuide
		require.NoError(t, g.UnmarshalJSON([]byte(`{"structured":{"totalTime":"2h","studyPhases":[{"phase":"p1","duration":"1h","description":"d"}]}}`)))
		require.NotNil(t, g.Structured)
		assert.Equal(t, "2h", g.Structured.TotalTime)
		assert.Empty(t, g.Freeform)
	})

	t.Run("bare structured object", func(t *testing.T) {
		var g ExamGuide
		require.NoError(t, g.UnmarshalJSON([]byte(`{"totalTime":"3h","introduction":"i","studyPhases":[],"finalAdvice":"a"}`)))
		require.NotNil(t, g.Structured)
		assert.Equal(t, "3h", g.Structured.TotalTime)
	})

	t.Run("dirty input degrades to zero", func(t *testing.T) {
		var g ExamGuide
		require.NoError(t, g.UnmarshalJSON([]byte(`{"unrelated":true}`)))
		assert.True(t, g.IsZero())
	})

	t.Run("null", func(t *testing.T) {
		var g ExamGuide
		require.NoError(t, g.UnmarshalJSON([]byte(`null`)))
		assert.True(t, g.IsZero())
	})
}
