package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/rankvote/internal/model"
)

func TestPollKey(t *testing.T) {
	assert.Equal(t, "polls:abc123", pollKey("abc123"))
}

func TestChildPathQuotesKey(t *testing.T) {
	// 参与者ID是带'-'的UUID, 点号路径会被解析器拆开, 必须用括号引用
	assert.Equal(t, ".participants['b7d0b1c0-3c4f-4f8e-9a2d-1f2e3d4c5b6a']",
		childPath(".participants", "b7d0b1c0-3c4f-4f8e-9a2d-1f2e3d4c5b6a"))
	assert.Equal(t, ".nominations['a1b2c3d4']", childPath(".nominations", "a1b2c3d4"))
	assert.Equal(t, ".rankings['user-1']", childPath(".rankings", "user-1"))
}

func TestInitialDocumentShape(t *testing.T) {
	// 初始文档必须带空容器而非null, 路径级JSON.SET依赖容器存在
	poll := model.NewPoll("abc123", "话题", 3, "admin-1")

	data, err := json.Marshal(poll)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, false, doc["hasStarted"])
	assert.Equal(t, map[string]interface{}{}, doc["participants"])
	assert.Equal(t, map[string]interface{}{}, doc["nominations"])
	assert.Equal(t, map[string]interface{}{}, doc["rankings"])
	assert.Equal(t, []interface{}{}, doc["results"])
}
