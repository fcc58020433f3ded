package screening

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "marketgate/pkg/domain-errors"
)

func TestParseStage(t *testing.T) {
	for _, st := range Stages() {
		parsed, err := ParseStage(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}

	_, err := ParseStage("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParseStage("credit_check")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestOrdinalIsTotalOrder(t *testing.T) {
	all := Stages()
	for i := 1; i < len(all); i++ {
		assert.Equal(t, all[i-1].Ordinal()+1, all[i].Ordinal())
		assert.True(t, all[i].AtLeast(all[i-1]))
		assert.False(t, all[i-1].AtLeast(all[i]))
	}
	assert.Equal(t, -1, Stage("nope").Ordinal())
}

func TestTransitionMovement(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     Movement
	}{
		{StageConditionalOffer, StageConditionalOffer, MovementStall},
		{StageConditionalOffer, StageBackgroundCheck, MovementAdvance},
		{StageInitialInquiry, StageBackgroundCheck, MovementSkip},
		{StageBackgroundCheck, StageApplicationSubmitted, MovementBackward},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Transition{From: tc.from, To: tc.to}.Movement())
		})
	}
}

func TestTransitionSkippedAndBypass(t *testing.T) {
	tr := Transition{From: StageInitialInquiry, To: StageBackgroundCheck}
	assert.Equal(t, []Stage{StageApplicationSubmitted, StageApplicationReview, StageConditionalOffer}, tr.Skipped())
	assert.True(t, tr.BypassesGate(StageConditionalOffer, StageBackgroundCheck))

	ok := Transition{From: StageConditionalOffer, To: StageBackgroundCheck}
	assert.Nil(t, ok.Skipped())
	assert.False(t, ok.BypassesGate(StageConditionalOffer, StageBackgroundCheck))
}

func TestStageUnmarshalRejectsUnknown(t *testing.T) {
	var s Stage
	require.NoError(t, json.Unmarshal([]byte(`"final_approval"`), &s))
	assert.Equal(t, StageFinalApproval, s)
	assert.Error(t, json.Unmarshal([]byte(`"approved"`), &s))
}
