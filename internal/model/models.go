package model

import "encoding/json"

// Nomination 提名选项
type Nomination struct {
	UserID string `json:"userID"`
	Text   string `json:"text"`
}

// Result 单个提名的计分结果
type Result struct {
	NominationID   string  `json:"nominationID"`
	NominationText string  `json:"nominationText"`
	Score          float64 `json:"score"`
}

// Poll 投票聚合根，整体作为一个Redis JSON文档存储
type Poll struct {
	ID            string                `json:"id"`
	Topic         string                `json:"topic"`
	VotesPerVoter int                   `json:"votesPerVoter"`
	AdminID       string                `json:"adminID"`
	HasStarted    bool                  `json:"hasStarted"`
	Participants  map[string]string     `json:"participants"`
	Nominations   map[string]Nomination `json:"nominations"`
	Rankings      map[string][]string   `json:"rankings"`
	Results       []Result              `json:"results"`
}

// NewPoll 创建初始投票文档
func NewPoll(pollID, topic string, votesPerVoter int, adminID string) *Poll {
	return &Poll{
		ID:            pollID,
		Topic:         topic,
		VotesPerVoter: votesPerVoter,
		AdminID:       adminID,
		HasStarted:    false,
		Participants:  map[string]string{},
		Nominations:   map[string]Nomination{},
		Rankings:      map[string][]string{},
		Results:       []Result{},
	}
}

// CreatePollRequest 创建投票请求
type CreatePollRequest struct {
	Topic         string `json:"topic" binding:"required,min=1,max=100"`
	VotesPerVoter int    `json:"votesPerVoter" binding:"required,gte=1,lte=5"`
	Name          string `json:"name" binding:"required,min=1,max=25"`
}

// JoinPollRequest 加入投票请求
type JoinPollRequest struct {
	PollID string `json:"pollID" binding:"required,len=6"`
	Name   string `json:"name" binding:"required,min=1,max=25"`
}

// RejoinPollRequest 重新加入请求，身份完全由令牌断言
type RejoinPollRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

// PollAuthResponse 创建/加入投票的响应
type PollAuthResponse struct {
	PollID        string `json:"pollID"`
	UserID        string `json:"userID"`
	Name          string `json:"name"`
	Topic         string `json:"topic,omitempty"`
	VotesPerVoter int    `json:"votesPerVoter,omitempty"`
	AccessToken   string `json:"accessToken"`
}

// WS事件名称，入站与出站共用一个信封格式
const (
	EventNominate          = "nominate"
	EventSubmitRankings    = "submit_rankings"
	EventStartVote         = "start_vote"
	EventClosePoll         = "close_poll"
	EventCancelPoll        = "cancel_poll"
	EventRemoveParticipant = "remove_participant"
	EventRemoveNomination  = "remove_nomination"

	EventPollUpdated   = "poll_updated"
	EventPollCancelled = "poll_cancelled"
	EventException     = "exception"
)

// Envelope WS消息信封
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NominatePayload 提名事件负载
type NominatePayload struct {
	Text string `json:"text"`
}

// RankingsPayload 提交排名事件负载
type RankingsPayload struct {
	Rankings []string `json:"rankings"`
}

// IDPayload 携带单个ID的事件负载（移除参与者/提名）
type IDPayload struct {
	ID string `json:"id"`
}

// ExceptionPayload 异常事件负载，仅发给出错的会话
type ExceptionPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BroadcastEvent 跨实例广播事件（Kafka消息体）
type BroadcastEvent struct {
	Instance int             `json:"instance"`
	PollID   string          `json:"pollID"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data,omitempty"`
}
