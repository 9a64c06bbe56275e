package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageSKAfterIsStrictBound(t *testing.T) {
	watermark := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	same := MessageSK(watermark, "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	later := MessageSK(watermark.Add(time.Nanosecond), "00000000-0000-0000-0000-000000000000")
	earlier := MessageSK(watermark.Add(-time.Second), "ffffffff-ffff-ffff-ffff-ffffffffffff")
	bound := MessageSKAfter(watermark)

	assert.Less(t, same, bound)
	assert.Less(t, earlier, bound)
	assert.Greater(t, later, bound)
	assert.Less(t, later, MessageSKUpperBound())
}

func TestEpochZeroSortsBeforeEverything(t *testing.T) {
	assert.Less(t, MessageSKAfter(EpochZero), MessageSK(time.Date(1971, 1, 1, 0, 0, 0, 0, time.UTC), "a"))
}

func TestRoundKeys(t *testing.T) {
	assert.Equal(t, "round_3", RoundKey(3))
	assert.Equal(t, "ROUND#03", RoundSK(3))
	assert.Less(t, RoundSK(9), RoundSK(10))
}

func TestExtractIDs(t *testing.T) {
	id, err := ExtractTournamentID(DrawPK("t1", "mens"))
	assert.NoError(t, err)
	assert.Equal(t, "t1", id)

	gid, err := ExtractGroupID("GROUP#g9")
	assert.NoError(t, err)
	assert.Equal(t, "g9", gid)

	_, err = ExtractGroupID("MEMBER#u1")
	assert.Error(t, err)

	uid, err := ExtractUserID(UserPK("u1"))
	assert.NoError(t, err)
	assert.Equal(t, "u1", uid)
}
