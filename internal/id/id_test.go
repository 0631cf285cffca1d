package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPollID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		pollID, err := NewPollID()
		require.NoError(t, err)
		assert.Len(t, pollID, 6)
		for _, r := range pollID {
			assert.True(t, strings.ContainsRune(pollIDAlphabet, r), "非法字符: %c", r)
		}
		seen[pollID] = true
	}
	// 100次生成全部相同的概率可以忽略
	assert.Greater(t, len(seen), 1)
}

func TestNewNominationID(t *testing.T) {
	nominationID, err := NewNominationID()
	require.NoError(t, err)
	assert.Len(t, nominationID, 8)
}

func TestNewUserID(t *testing.T) {
	a := NewUserID()
	b := NewUserID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
