package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad")))
	assert.Equal(t, KindAuthentication, KindOf(Authentication("bad")))
	assert.Equal(t, KindAuthorization, KindOf(Authorization("bad")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("bad")))
	assert.Equal(t, KindPrecondition, KindOf(Precondition("bad")))
	assert.Equal(t, KindStorage, KindOf(Storage("bad", nil)))

	// 非业务错误一律视为storage
	assert.Equal(t, KindStorage, KindOf(errors.New("boom")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("外层: %w", NotFound("投票不存在"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindValidation))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("读取失败", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "读取失败")
	assert.Contains(t, err.Error(), "connection refused")
}
