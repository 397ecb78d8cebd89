package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerValue_Equal(t *testing.T) {
	assert.True(t, ChoiceAnswer(2).Equal(ChoiceAnswer(2)))
	assert.False(t, ChoiceAnswer(2).Equal(ChoiceAnswer(1)))
	assert.True(t, TextAnswer("dns").Equal(TextAnswer("dns")))
	assert.False(t, TextAnswer("dns").Equal(TextAnswer("DNS")), "text comparison is exact")
	assert.False(t, ChoiceAnswer(0).Equal(TextAnswer("0")), "variants never match each other")
	assert.False(t, AnswerValue{}.Equal(AnswerValue{}), "two skipped answers are not a correct match")
}

func TestAnswerValue_Validate(t *testing.T) {
	assert.NoError(t, ChoiceAnswer(0).Validate())
	assert.NoError(t, TextAnswer("").Validate())
	assert.ErrorIs(t, ChoiceAnswer(-1).Validate(), ErrInvalidAnswerValue)

	idx := 1
	text := "both"
	both := AnswerValue{Choice: &idx, Text: &text}
	assert.ErrorIs(t, both.Validate(), ErrInvalidAnswerValue)
}

func TestAnswerValue_JSON(t *testing.T) {
	t.Run("ChoiceMarshalsAsBareNumber", func(t *testing.T) {
		data, err := json.Marshal(ChoiceAnswer(3))
		require.NoError(t, err)
		assert.Equal(t, "3", string(data))
	})

	t.Run("TextMarshalsAsBareString", func(t *testing.T) {
		data, err := json.Marshal(TextAnswer("osmosis"))
		require.NoError(t, err)
		assert.Equal(t, `"osmosis"`, string(data))
	})

	t.Run("SkippedMarshalsAsNull", func(t *testing.T) {
		data, err := json.Marshal(AnswerValue{})
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})

	t.Run("UnmarshalRestoresVariant", func(t *testing.T) {
		var v AnswerValue
		require.NoError(t, json.Unmarshal([]byte("4"), &v))
		assert.True(t, v.IsChoice())
		assert.Equal(t, 4, *v.Choice)

		require.NoError(t, json.Unmarshal([]byte(`"paris"`), &v))
		require.NotNil(t, v.Text)
		assert.Equal(t, "paris", *v.Text)
		assert.Nil(t, v.Choice)

		require.NoError(t, json.Unmarshal([]byte("null"), &v))
		assert.True(t, v.IsEmpty())
	})

	t.Run("NullNeverBecomesChoiceZero", func(t *testing.T) {
		// A skipped answer must survive a store-and-reload round trip
		// without turning into a selection of option 0.
		data, err := json.Marshal(AnswerValue{})
		require.NoError(t, err)

		var v AnswerValue
		require.NoError(t, json.Unmarshal(data, &v))
		assert.True(t, v.IsEmpty())
		assert.False(t, v.IsChoice())
		assert.Nil(t, v.Choice)
	})

	t.Run("RejectsStructuredValues", func(t *testing.T) {
		var v AnswerValue
		assert.ErrorIs(t, json.Unmarshal([]byte(`{"a":1}`), &v), ErrInvalidAnswerValue)
	})
}
