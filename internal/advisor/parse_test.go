package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecommendationPlain(t *testing.T) {
	rec, err := ParseRecommendation(`{"action":"buy","confidence":0.82,"reasoning":"strong flow"}`)
	require.NoError(t, err)
	assert.Equal(t, "buy", rec.Action)
	assert.InDelta(t, 0.82, rec.Confidence, 1e-9)
	assert.Equal(t, "strong flow", rec.Reasoning)
}

func TestParseRecommendationToleratesProseAndFences(t *testing.T) {
	raw := "Here is my verdict:\n```json\n{\"action\": \"HOLD\", \"confidence\": 0.4, \"reasoning\": \"mixed signals\"}\n```\nGood luck."
	rec, err := ParseRecommendation(raw)
	require.NoError(t, err)
	assert.Equal(t, "hold", rec.Action)
	assert.InDelta(t, 0.4, rec.Confidence, 1e-9)
}

func TestParseRecommendationRejectsBadPayloads(t *testing.T) {
	cases := []string{
		"",
		"no json here",
		`{"action":"yolo","confidence":0.9}`,
		`{"action":"buy","confidence":1.7}`,
		`{"confidence":0.5}`,
		`{"action":"buy"`,
	}
	for _, raw := range cases {
		_, err := ParseRecommendation(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
