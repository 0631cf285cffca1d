package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/lvdashuaibi/rankvote/config"
	"github.com/lvdashuaibi/rankvote/internal/apperr"
	"github.com/lvdashuaibi/rankvote/internal/model"
)

const (
	// Redis键前缀
	PollKeyPrefix = "polls:"

	// RedisJSON文档根路径
	rootPath = "."
)

// PollRepository 投票文档仓库，整个系统中唯一直接访问Redis的组件。
// 每次变更都是一条路径级的JSON.SET/JSON.DEL，随后整体读回作为快照返回，
// 并发变更下快照可能不只包含自己的写入（最终收敛，见服务层契约）。
type PollRepository struct {
	client *redis.Client
}

func NewPollRepository() (*PollRepository, error) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:         config.AppConfig.Redis.Address,
		Password:     config.AppConfig.Redis.Password,
		DB:           config.AppConfig.Redis.DB,
		PoolSize:     config.AppConfig.Redis.PoolSize,
		MaxRetries:   config.AppConfig.Redis.MaxRetries,
		DialTimeout:  config.AppConfig.Redis.Timeout,
		ReadTimeout:  config.AppConfig.Redis.Timeout,
		WriteTimeout: config.AppConfig.Redis.Timeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接测试失败: %w", err)
	}

	return &PollRepository{client: client}, nil
}

func pollKey(pollID string) string {
	return PollKeyPrefix + pollID
}

// childPath 构造容器下指定键的JSON路径。键用括号引用，
// 参与者等ID中可能带'-'，点号路径会被解析器拆开
func childPath(container, key string) string {
	return container + "['" + key + "']"
}

// Create 写入初始投票文档并设置过期时间
func (r *PollRepository) Create(ctx context.Context, pollID, topic string, votesPerVoter int, adminID string) (*model.Poll, error) {
	poll := model.NewPoll(pollID, topic, votesPerVoter, adminID)

	data, err := json.Marshal(poll)
	if err != nil {
		return nil, apperr.Storage("序列化投票文档失败", err)
	}

	key := pollKey(pollID)
	ttl := config.AppConfig.Poll.TTL

	if err := r.client.Do(ctx, "JSON.SET", key, rootPath, string(data)).Err(); err != nil {
		return nil, apperr.Storage("创建投票文档失败", err)
	}

	// 过期时间从创建起固定计时，后续操作不刷新
	pipe := r.client.Pipeline()
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, apperr.Storage("设置投票过期时间失败", err)
	}

	return poll, nil
}

// Get 读取完整投票文档
func (r *PollRepository) Get(ctx context.Context, pollID string) (*model.Poll, error) {
	key := pollKey(pollID)

	data, err := r.client.Do(ctx, "JSON.GET", key, rootPath).Text()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound(fmt.Sprintf("投票 %s 不存在", pollID))
		}
		return nil, apperr.Storage(fmt.Sprintf("读取投票 %s 失败", pollID), err)
	}

	var poll model.Poll
	if err := json.Unmarshal([]byte(data), &poll); err != nil {
		// 解析失败直接上抛，不吞掉损坏的数据
		return nil, apperr.Storage(fmt.Sprintf("解析投票 %s 文档失败", pollID), err)
	}

	return &poll, nil
}

// AddParticipant 添加参与者，重复添加同一ID时覆盖名称
func (r *PollRepository) AddParticipant(ctx context.Context, pollID, userID, name string) (*model.Poll, error) {
	key := pollKey(pollID)

	// 确认文档存在
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, apperr.Storage(fmt.Sprintf("检查投票 %s 失败", pollID), err)
	}
	if exists == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("投票 %s 不存在", pollID))
	}

	// participants容器缺失时先补建
	if _, err := r.client.Do(ctx, "JSON.GET", key, ".participants").Text(); err != nil {
		if err := r.client.Do(ctx, "JSON.SET", key, ".participants", "{}").Err(); err != nil {
			return nil, apperr.Storage("初始化参与者容器失败", err)
		}
	}

	nameJSON, err := json.Marshal(name)
	if err != nil {
		return nil, apperr.Storage("序列化参与者名称失败", err)
	}

	path := childPath(".participants", userID)
	if err := r.client.Do(ctx, "JSON.SET", key, path, string(nameJSON)).Err(); err != nil {
		return nil, apperr.Storage(fmt.Sprintf("添加参与者 %s 失败", userID), err)
	}

	return r.Get(ctx, pollID)
}

// RemoveParticipant 移除参与者，路径不存在时不视为错误
func (r *PollRepository) RemoveParticipant(ctx context.Context, pollID, userID string) (*model.Poll, error) {
	key := pollKey(pollID)
	path := childPath(".participants", userID)

	if err := r.client.Do(ctx, "JSON.DEL", key, path).Err(); err != nil && err != redis.Nil {
		return nil, apperr.Storage(fmt.Sprintf("移除参与者 %s 失败", userID), err)
	}

	return r.Get(ctx, pollID)
}

// AddNomination 添加提名
func (r *PollRepository) AddNomination(ctx context.Context, pollID, nominationID string, nomination model.Nomination) (*model.Poll, error) {
	key := pollKey(pollID)
	path := childPath(".nominations", nominationID)

	data, err := json.Marshal(nomination)
	if err != nil {
		return nil, apperr.Storage("序列化提名失败", err)
	}

	if err := r.client.Do(ctx, "JSON.SET", key, path, string(data)).Err(); err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound(fmt.Sprintf("投票 %s 不存在", pollID))
		}
		return nil, apperr.Storage(fmt.Sprintf("添加提名 %s 失败", nominationID), err)
	}

	return r.Get(ctx, pollID)
}

// RemoveNomination 移除提名，路径不存在时不视为错误
func (r *PollRepository) RemoveNomination(ctx context.Context, pollID, nominationID string) (*model.Poll, error) {
	key := pollKey(pollID)
	path := childPath(".nominations", nominationID)

	if err := r.client.Do(ctx, "JSON.DEL", key, path).Err(); err != nil && err != redis.Nil {
		return nil, apperr.Storage(fmt.Sprintf("移除提名 %s 失败", nominationID), err)
	}

	return r.Get(ctx, pollID)
}

// SetRankings 记录参与者排名，重复提交时整体覆盖
func (r *PollRepository) SetRankings(ctx context.Context, pollID, userID string, rankings []string) (*model.Poll, error) {
	if len(rankings) == 0 {
		return nil, apperr.Validation("排名列表不能为空")
	}

	key := pollKey(pollID)
	path := childPath(".rankings", userID)

	data, err := json.Marshal(rankings)
	if err != nil {
		return nil, apperr.Storage("序列化排名失败", err)
	}

	if err := r.client.Do(ctx, "JSON.SET", key, path, string(data)).Err(); err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound(fmt.Sprintf("投票 %s 不存在", pollID))
		}
		return nil, apperr.Storage(fmt.Sprintf("记录参与者 %s 排名失败", userID), err)
	}

	return r.Get(ctx, pollID)
}

// Start 置hasStarted为true，不检查先前状态，可重入
func (r *PollRepository) Start(ctx context.Context, pollID string) (*model.Poll, error) {
	key := pollKey(pollID)

	if err := r.client.Do(ctx, "JSON.SET", key, ".hasStarted", "true").Err(); err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound(fmt.Sprintf("投票 %s 不存在", pollID))
		}
		return nil, apperr.Storage(fmt.Sprintf("开启投票 %s 失败", pollID), err)
	}

	return r.Get(ctx, pollID)
}

// SetResults 写入计分结果，重复写入时整体覆盖
func (r *PollRepository) SetResults(ctx context.Context, pollID string, results []model.Result) (*model.Poll, error) {
	key := pollKey(pollID)

	data, err := json.Marshal(results)
	if err != nil {
		return nil, apperr.Storage("序列化结果失败", err)
	}

	if err := r.client.Do(ctx, "JSON.SET", key, ".results", string(data)).Err(); err != nil {
		if err == redis.Nil {
			return nil, apperr.NotFound(fmt.Sprintf("投票 %s 不存在", pollID))
		}
		return nil, apperr.Storage(fmt.Sprintf("写入投票 %s 结果失败", pollID), err)
	}

	return r.Get(ctx, pollID)
}

// Delete 删除整个投票文档
func (r *PollRepository) Delete(ctx context.Context, pollID string) error {
	key := pollKey(pollID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return apperr.Storage(fmt.Sprintf("删除投票 %s 失败", pollID), err)
	}

	return nil
}

// Close 关闭Redis连接
func (r *PollRepository) Close() error {
	return r.client.Close()
}
