package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lvdashuaibi/rankvote/internal/apperr"
	"github.com/lvdashuaibi/rankvote/internal/id"
	"github.com/lvdashuaibi/rankvote/internal/model"
	"github.com/lvdashuaibi/rankvote/internal/scoring"
)

const maxNominationLength = 100

// Repository 投票文档仓库接口，便于测试时替换为内存实现
type Repository interface {
	Create(ctx context.Context, pollID, topic string, votesPerVoter int, adminID string) (*model.Poll, error)
	Get(ctx context.Context, pollID string) (*model.Poll, error)
	AddParticipant(ctx context.Context, pollID, userID, name string) (*model.Poll, error)
	RemoveParticipant(ctx context.Context, pollID, userID string) (*model.Poll, error)
	AddNomination(ctx context.Context, pollID, nominationID string, nomination model.Nomination) (*model.Poll, error)
	RemoveNomination(ctx context.Context, pollID, nominationID string) (*model.Poll, error)
	SetRankings(ctx context.Context, pollID, userID string, rankings []string) (*model.Poll, error)
	Start(ctx context.Context, pollID string) (*model.Poll, error)
	SetResults(ctx context.Context, pollID string, results []model.Result) (*model.Poll, error)
	Delete(ctx context.Context, pollID string) error
}

// PollService 投票编排服务：负责ID生成与跨字段业务规则校验，
// 存储失败原样上抛，不做吞没也不做重试
type PollService struct {
	repo Repository
}

func NewPollService(repo Repository) *PollService {
	return &PollService{repo: repo}
}

// CreatePoll 创建投票，生成投票ID与管理员ID
func (s *PollService) CreatePoll(ctx context.Context, topic string, votesPerVoter int) (*model.Poll, error) {
	pollID, err := id.NewPollID()
	if err != nil {
		return nil, apperr.Storage("生成投票ID失败", err)
	}
	adminID := id.NewUserID()

	poll, err := s.repo.Create(ctx, pollID, topic, votesPerVoter, adminID)
	if err != nil {
		return nil, err
	}

	log.Printf("投票 %s 创建成功, 管理员: %s", pollID, adminID)
	return poll, nil
}

// JoinPoll 加入投票，为新参与者生成ID；投票不存在时直接报错
func (s *PollService) JoinPoll(ctx context.Context, pollID string) (string, error) {
	if _, err := s.repo.Get(ctx, pollID); err != nil {
		return "", err
	}
	return id.NewUserID(), nil
}

// GetPoll 读取投票快照
func (s *PollService) GetPoll(ctx context.Context, pollID string) (*model.Poll, error) {
	return s.repo.Get(ctx, pollID)
}

// AddParticipant 添加参与者（网关在连接建立后调用）
func (s *PollService) AddParticipant(ctx context.Context, pollID, userID, name string) (*model.Poll, error) {
	return s.repo.AddParticipant(ctx, pollID, userID, name)
}

// RemoveParticipant 移除参与者（断连或管理员移除）
func (s *PollService) RemoveParticipant(ctx context.Context, pollID, userID string) (*model.Poll, error) {
	return s.repo.RemoveParticipant(ctx, pollID, userID)
}

// AddNomination 添加提名，校验文本长度
func (s *PollService) AddNomination(ctx context.Context, pollID, userID, text string) (*model.Poll, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("提名内容不能为空")
	}
	if len([]rune(text)) > maxNominationLength {
		return nil, apperr.Validation(fmt.Sprintf("提名内容不能超过%d个字符", maxNominationLength))
	}

	nominationID, err := id.NewNominationID()
	if err != nil {
		return nil, apperr.Storage("生成提名ID失败", err)
	}

	return s.repo.AddNomination(ctx, pollID, nominationID, model.Nomination{
		UserID: userID,
		Text:   text,
	})
}

// RemoveNomination 移除提名
func (s *PollService) RemoveNomination(ctx context.Context, pollID, nominationID string) (*model.Poll, error) {
	return s.repo.RemoveNomination(ctx, pollID, nominationID)
}

// SubmitRankings 提交排名，投票未开始时拒绝
func (s *PollService) SubmitRankings(ctx context.Context, pollID, userID string, rankings []string) (*model.Poll, error) {
	if len(rankings) == 0 {
		return nil, apperr.Validation("排名列表不能为空")
	}

	poll, err := s.repo.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.HasStarted {
		return nil, apperr.Precondition("投票尚未开始，不能提交排名")
	}

	return s.repo.SetRankings(ctx, pollID, userID, rankings)
}

// StartPoll 开启投票，可重入
func (s *PollService) StartPoll(ctx context.Context, pollID string) (*model.Poll, error) {
	return s.repo.Start(ctx, pollID)
}

// ClosePoll 关闭投票并计算结果。读取-计分-写入不加锁：
// 计分是稳定输入的纯函数，并发重复关闭只会写入等价的结果
func (s *PollService) ClosePoll(ctx context.Context, pollID string) (*model.Poll, error) {
	poll, err := s.repo.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}

	results, skipped := scoring.ComputeResults(poll.Rankings, poll.Nominations, poll.VotesPerVoter)
	if len(skipped) > 0 {
		log.Printf("投票 %s 计分时跳过 %d 个已移除的提名: %v", pollID, len(skipped), skipped)
	}

	return s.repo.SetResults(ctx, pollID, results)
}

// CancelPoll 取消投票，删除整个文档
func (s *PollService) CancelPoll(ctx context.Context, pollID string) error {
	return s.repo.Delete(ctx, pollID)
}

// IsAdmin 管理员校验，每次都读取当前持久化的adminID，不缓存
func (s *PollService) IsAdmin(ctx context.Context, pollID, userID string) (bool, error) {
	poll, err := s.repo.Get(ctx, pollID)
	if err != nil {
		return false, err
	}
	return poll.AdminID == userID, nil
}
