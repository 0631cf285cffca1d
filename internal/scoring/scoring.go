package scoring

import (
	"math"
	"sort"

	"github.com/lvdashuaibi/rankvote/internal/model"
)

// ComputeResults 把全部参与者的排名转换为降序结果列表。
//
// 第n位（从0计）的提名得分为 ((votesPerVoter - 0.5*n) / votesPerVoter)^(n+1)，
// 首选票严格高于后续票，衰减随名次几何级加深。排名长度不做截断，
// 超出votesPerVoter一倍的位置分子不为正，过长的排名自我惩罚。
//
// 排名中引用了已不存在提名的条目会被跳过，其ID在第二个返回值中返回，
// 由调用方决定是否记录日志。同分提名保持首次出现的先后顺序（稳定排序）。
func ComputeResults(rankings map[string][]string, nominations map[string]model.Nomination, votesPerVoter int) ([]model.Result, []string) {
	scores := map[string]float64{}

	// 记录首次出现顺序，保证同分时结果可复现
	var order []string

	// 遍历参与者时按ID排序，使累计顺序与map迭代顺序无关
	userIDs := make([]string, 0, len(rankings))
	for userID := range rankings {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	v := float64(votesPerVoter)
	for _, userID := range userIDs {
		for n, nominationID := range rankings[userID] {
			value := math.Pow((v-0.5*float64(n))/v, float64(n+1))

			if _, seen := scores[nominationID]; !seen {
				order = append(order, nominationID)
			}
			scores[nominationID] += value
		}
	}

	results := make([]model.Result, 0, len(order))
	var skipped []string
	for _, nominationID := range order {
		nomination, ok := nominations[nominationID]
		if !ok {
			// 提名在计分前已被移除，跳过悬空引用
			skipped = append(skipped, nominationID)
			continue
		}
		results = append(results, model.Result{
			NominationID:   nominationID,
			NominationText: nomination.Text,
			Score:          scores[nominationID],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, skipped
}
