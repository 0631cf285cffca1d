package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/rankvote/internal/model"
)

func nominations(pairs ...string) map[string]model.Nomination {
	m := make(map[string]model.Nomination)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = model.Nomination{UserID: "u1", Text: pairs[i+1]}
	}
	return m
}

func TestComputeResultsSingleVote(t *testing.T) {
	// votesPerVoter=1 时首选得分 (1/1)^1 = 1.0
	rankings := map[string][]string{"alice": {"n1"}}
	results, skipped := ComputeResults(rankings, nominations("n1", "Pizza"), 1)

	require.Len(t, results, 1)
	require.Empty(t, skipped)
	assert.Equal(t, "n1", results[0].NominationID)
	assert.Equal(t, "Pizza", results[0].NominationText)
	assert.InDelta(t, 1.0, results[0].Score, 1e-12)
}

func TestComputeResultsFormula(t *testing.T) {
	// votesPerVoter=3: 第0位 (3/3)^1=1, 第1位 (2.5/3)^2, 第2位 (2/3)^3
	rankings := map[string][]string{"alice": {"n1", "n2", "n3"}}
	noms := nominations("n1", "A", "n2", "B", "n3", "C")

	results, _ := ComputeResults(rankings, noms, 3)
	require.Len(t, results, 3)

	byID := map[string]float64{}
	for _, r := range results {
		byID[r.NominationID] = r.Score
	}

	assert.InDelta(t, 1.0, byID["n1"], 1e-12)
	assert.InDelta(t, math.Pow(2.5/3.0, 2), byID["n2"], 1e-12)
	assert.InDelta(t, math.Pow(2.0/3.0, 3), byID["n3"], 1e-12)
}

func TestComputeResultsDescendingOrder(t *testing.T) {
	rankings := map[string][]string{
		"alice": {"n1", "n2", "n3"},
		"bob":   {"n1", "n3", "n2"},
		"carol": {"n2", "n1", "n3"},
	}
	noms := nominations("n1", "A", "n2", "B", "n3", "C")

	results, _ := ComputeResults(rankings, noms, 3)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	// 全员首选n1时它必然居首
	assert.Equal(t, "n1", results[0].NominationID)
}

func TestComputeResultsSymmetricTieIsStable(t *testing.T) {
	// 两名参与者偏好完全对称，两个提名得分相等，
	// 同分时保持计分过程中首次出现的顺序
	rankings := map[string][]string{
		"alice": {"n1", "n2"},
		"bob":   {"n2", "n1"},
	}
	noms := nominations("n1", "Pizza", "n2", "Sushi")

	results, _ := ComputeResults(rankings, noms, 2)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-12)

	// 参与者按ID排序遍历: alice先计分, n1先出现
	assert.Equal(t, "n1", results[0].NominationID)
	assert.Equal(t, "n2", results[1].NominationID)
}

func TestComputeResultsExactNominationSet(t *testing.T) {
	// 结果恰好包含被排名引用过的提名，未被引用的不出现
	rankings := map[string][]string{
		"alice": {"n1"},
		"bob":   {"n2", "n1"},
	}
	noms := nominations("n1", "A", "n2", "B", "n3", "C")

	results, _ := ComputeResults(rankings, noms, 2)
	require.Len(t, results, 2)

	ids := map[string]bool{}
	for _, r := range results {
		ids[r.NominationID] = true
	}
	assert.True(t, ids["n1"])
	assert.True(t, ids["n2"])
	assert.False(t, ids["n3"])
}

func TestComputeResultsSkipsDanglingNomination(t *testing.T) {
	// 排名引用了已被移除的提名: 悬空条目被跳过并返回
	rankings := map[string][]string{
		"alice": {"n1", "gone"},
	}
	noms := nominations("n1", "A")

	results, skipped := ComputeResults(rankings, noms, 2)
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].NominationID)
	assert.Equal(t, []string{"gone"}, skipped)
}

func TestComputeResultsOverlongRankingSelfPenalizes(t *testing.T) {
	// 排名长度不受votesPerVoter限制, 从第2*votesPerVoter位起分子不再为正, 自我惩罚
	rankings := map[string][]string{
		"alice": {"n1", "n2", "n3", "n4", "n5", "n6", "n7"},
	}
	noms := nominations("n1", "A", "n2", "B", "n3", "C", "n4", "D", "n5", "E", "n6", "F", "n7", "G")

	results, _ := ComputeResults(rankings, noms, 2)
	require.Len(t, results, 7)

	byID := map[string]float64{}
	for _, r := range results {
		byID[r.NominationID] = r.Score
	}

	// 第4位(n=4): 分子 2-0.5*4 = 0
	assert.InDelta(t, 0.0, byID["n5"], 1e-12)
	// 第6位(n=6): 分子为负且指数为奇数, 贡献为负
	assert.Less(t, byID["n7"], 0.0)
	// 首选仍然严格高于所有超长位置
	assert.Greater(t, byID["n1"], byID["n5"])
}

func TestComputeResultsDeterministic(t *testing.T) {
	// 同样的输入重复计分得到完全一致的结果（关闭操作的幂等性基础）
	rankings := map[string][]string{
		"alice": {"n2", "n1"},
		"bob":   {"n1", "n3"},
		"carol": {"n3", "n2"},
	}
	noms := nominations("n1", "A", "n2", "B", "n3", "C")

	first, _ := ComputeResults(rankings, noms, 3)
	for i := 0; i < 10; i++ {
		again, _ := ComputeResults(rankings, noms, 3)
		assert.Equal(t, first, again)
	}
}

func TestComputeResultsEmptyRankings(t *testing.T) {
	results, skipped := ComputeResults(map[string][]string{}, nominations("n1", "A"), 3)
	assert.Empty(t, results)
	assert.Empty(t, skipped)
}
