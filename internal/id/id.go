package id

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// 投票ID字母表，6位足以避免短期内的碰撞，且方便口头传播
const pollIDAlphabet = "1234567890abcdef"

const (
	pollIDLength       = 6
	nominationIDLength = 8
)

// NewPollID 生成6位投票ID
func NewPollID() (string, error) {
	return randomString(pollIDLength)
}

// NewUserID 生成参与者ID
func NewUserID() string {
	return uuid.NewString()
}

// NewNominationID 生成8位提名ID
func NewNominationID() (string, error) {
	return randomString(nominationIDLength)
}

func randomString(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成随机ID失败: %w", err)
	}
	for i, b := range buf {
		buf[i] = pollIDAlphabet[int(b)%len(pollIDAlphabet)]
	}
	return string(buf), nil
}
