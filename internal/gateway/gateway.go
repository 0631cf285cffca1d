package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/lvdashuaibi/rankvote/internal/apperr"
	"github.com/lvdashuaibi/rankvote/internal/auth"
	"github.com/lvdashuaibi/rankvote/internal/model"
)

// PollService 网关依赖的编排服务接口
type PollService interface {
	GetPoll(ctx context.Context, pollID string) (*model.Poll, error)
	AddParticipant(ctx context.Context, pollID, userID, name string) (*model.Poll, error)
	RemoveParticipant(ctx context.Context, pollID, userID string) (*model.Poll, error)
	AddNomination(ctx context.Context, pollID, userID, text string) (*model.Poll, error)
	RemoveNomination(ctx context.Context, pollID, nominationID string) (*model.Poll, error)
	SubmitRankings(ctx context.Context, pollID, userID string, rankings []string) (*model.Poll, error)
	StartPoll(ctx context.Context, pollID string) (*model.Poll, error)
	ClosePoll(ctx context.Context, pollID string) (*model.Poll, error)
	CancelPoll(ctx context.Context, pollID string) error
	IsAdmin(ctx context.Context, pollID, userID string) (bool, error)
}

// Publisher 跨实例广播发布接口（Kafka实现，可为nil）
type Publisher interface {
	Publish(ctx context.Context, event *model.BroadcastEvent) error
}

// 管理员专属事件集合，每次调用都按当前持久化的adminID重新校验
var adminOnlyEvents = map[string]struct{}{
	model.EventStartVote:         {},
	model.EventClosePoll:         {},
	model.EventCancelPoll:        {},
	model.EventRemoveParticipant: {},
	model.EventRemoveNomination:  {},
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway 实时会话网关：认证连接、按投票ID分房间、
// 把入站事件转交编排服务并向全房间广播最新快照
type Gateway struct {
	hub       *Hub
	service   PollService
	tokens    *auth.TokenService
	publisher Publisher
	instance  int
}

func NewGateway(hub *Hub, service PollService, tokens *auth.TokenService, publisher Publisher, instance int) *Gateway {
	return &Gateway{
		hub:       hub,
		service:   service,
		tokens:    tokens,
		publisher: publisher,
		instance:  instance,
	}
}

// HandleWS 处理WS握手：令牌校验失败时拒绝升级
func (g *Gateway) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("token")
	}

	claims, err := g.tokens.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"kind":    string(apperr.KindAuthentication),
			"message": "令牌无效或已过期",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WS升级失败: %v", err)
		return
	}

	client := newClient(g, conn, claims.UserID(), claims.PollID, claims.Name)
	g.hub.register <- client

	go client.writePump()
	go client.readPump()

	// 入房后登记参与者并广播快照，房间内其他人由此得知新成员加入
	poll, err := g.service.AddParticipant(context.Background(), client.pollID, client.userID, client.name)
	if err != nil {
		log.Printf("添加参与者 %s 到投票 %s 失败: %v", client.userID, client.pollID, err)
		client.sendException(string(apperr.KindOf(err)), "加入投票失败")
		return
	}

	g.broadcastRoom(client.pollID, model.EventPollUpdated, poll)
}

// dispatch 派发一条入站事件，任何失败只回给发起方一个exception，
// 不关闭会话也不广播
func (g *Gateway) dispatch(c *Client, envelope *model.Envelope) {
	ctx := context.Background()

	if _, adminOnly := adminOnlyEvents[envelope.Event]; adminOnly {
		isAdmin, err := g.service.IsAdmin(ctx, c.pollID, c.userID)
		if err != nil {
			c.sendException(string(apperr.KindOf(err)), "管理员校验失败")
			return
		}
		if !isAdmin {
			c.sendException(string(apperr.KindAuthorization), "只有管理员才能执行该操作")
			return
		}
	}

	switch envelope.Event {
	case model.EventNominate:
		var payload model.NominatePayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.sendException(string(apperr.KindValidation), "提名消息格式错误")
			return
		}
		g.mutate(c, func() (*model.Poll, error) {
			return g.service.AddNomination(ctx, c.pollID, c.userID, payload.Text)
		})

	case model.EventSubmitRankings:
		var payload model.RankingsPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.sendException(string(apperr.KindValidation), "排名消息格式错误")
			return
		}
		g.mutate(c, func() (*model.Poll, error) {
			return g.service.SubmitRankings(ctx, c.pollID, c.userID, payload.Rankings)
		})

	case model.EventStartVote:
		g.mutate(c, func() (*model.Poll, error) {
			return g.service.StartPoll(ctx, c.pollID)
		})

	case model.EventClosePoll:
		g.mutate(c, func() (*model.Poll, error) {
			return g.service.ClosePoll(ctx, c.pollID)
		})

	case model.EventCancelPoll:
		if err := g.service.CancelPoll(ctx, c.pollID); err != nil {
			c.sendException(string(apperr.KindOf(err)), "取消投票失败")
			return
		}
		g.broadcastRoom(c.pollID, model.EventPollCancelled, nil)

	case model.EventRemoveParticipant:
		var payload model.IDPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ID == "" {
			c.sendException(string(apperr.KindValidation), "移除参与者消息格式错误")
			return
		}
		g.mutate(c, func() (*model.Poll, error) {
			return g.service.RemoveParticipant(ctx, c.pollID, payload.ID)
		})

	case model.EventRemoveNomination:
		var payload model.IDPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ID == "" {
			c.sendException(string(apperr.KindValidation), "移除提名消息格式错误")
			return
		}
		g.mutate(c, func() (*model.Poll, error) {
			return g.service.RemoveNomination(ctx, c.pollID, payload.ID)
		})

	default:
		c.sendException(string(apperr.KindValidation), "未知事件: "+envelope.Event)
	}
}

// mutate 执行一次变更：成功时广播最新快照，失败时只回发起方
func (g *Gateway) mutate(c *Client, op func() (*model.Poll, error)) {
	poll, err := op()
	if err != nil {
		kind := apperr.KindOf(err)
		message := err.Error()
		if kind == apperr.KindStorage {
			// 存储细节不外泄
			message = "内部错误"
		}
		c.sendException(string(kind), message)
		return
	}
	g.broadcastRoom(c.pollID, model.EventPollUpdated, poll)
}

// handleDisconnect 断连清理：注销连接、移除参与者，
// 投票仍然存在时向剩余成员广播
func (g *Gateway) handleDisconnect(c *Client) {
	g.hub.unregister <- c

	poll, err := g.service.RemoveParticipant(context.Background(), c.pollID, c.userID)
	if err != nil {
		// 投票已过期或被删除时没有可广播的内容
		if !apperr.Is(err, apperr.KindNotFound) {
			log.Printf("断连时移除参与者 %s 失败: %v", c.userID, err)
		}
		return
	}

	g.broadcastRoom(c.pollID, model.EventPollUpdated, poll)
}

// broadcastRoom 编码事件并投递到本地房间，必要时发布到Kafka供其他实例转发
func (g *Gateway) broadcastRoom(pollID, event string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("编码广播负载失败: %v", err)
			return
		}
		raw = data
	}

	envelope, err := json.Marshal(model.Envelope{Event: event, Data: raw})
	if err != nil {
		log.Printf("编码广播信封失败: %v", err)
		return
	}

	g.hub.Broadcast(pollID, envelope)

	if g.publisher != nil {
		broadcastEvent := &model.BroadcastEvent{
			Instance: g.instance,
			PollID:   pollID,
			Event:    event,
			Data:     raw,
		}
		if err := g.publisher.Publish(context.Background(), broadcastEvent); err != nil {
			log.Printf("发布跨实例广播失败: %v", err)
		}
	}
}

// Relay 转发其他实例发布的广播到本地房间
func (g *Gateway) Relay(event *model.BroadcastEvent) error {
	if event.Instance == g.instance {
		return nil
	}

	envelope, err := json.Marshal(model.Envelope{Event: event.Event, Data: event.Data})
	if err != nil {
		return err
	}

	g.hub.Broadcast(event.PollID, envelope)
	return nil
}
