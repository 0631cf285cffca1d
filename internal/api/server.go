package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lvdashuaibi/rankvote/internal/apperr"
	"github.com/lvdashuaibi/rankvote/internal/auth"
	"github.com/lvdashuaibi/rankvote/internal/model"
)

// PollService HTTP层依赖的编排服务接口
type PollService interface {
	CreatePoll(ctx context.Context, topic string, votesPerVoter int) (*model.Poll, error)
	JoinPoll(ctx context.Context, pollID string) (string, error)
}

// Server HTTP接入层：三个创建类端点加WS升级路由，
// 只做请求校验与令牌签发，业务规则全部在服务层
type Server struct {
	engine  *gin.Engine
	service PollService
	tokens  *auth.TokenService
}

func NewServer(service PollService, tokens *auth.TokenService, wsHandler gin.HandlerFunc) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:  engine,
		service: service,
		tokens:  tokens,
	}

	engine.POST("/polls", s.createPoll)
	engine.POST("/polls/join", s.joinPoll)
	engine.POST("/polls/rejoin", s.rejoinPoll)
	engine.GET("/polls/ws", wsHandler)

	return s
}

// Start 启动HTTP服务器
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("HTTP服务已启动, 地址: http://localhost%s", addr)
	return s.engine.Run(addr)
}

// Engine 暴露底层引擎（测试用）
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// createPoll 创建投票并为管理员签发令牌
func (s *Server) createPoll(c *gin.Context) {
	var req model.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("请求参数不合法"))
		return
	}

	poll, err := s.service.CreatePoll(c.Request.Context(), req.Topic, req.VotesPerVoter)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := s.tokens.IssueToken(poll.AdminID, poll.ID, req.Name)
	if err != nil {
		writeError(c, apperr.Storage("签发令牌失败", err))
		return
	}

	c.JSON(http.StatusCreated, model.PollAuthResponse{
		PollID:        poll.ID,
		UserID:        poll.AdminID,
		Name:          req.Name,
		Topic:         poll.Topic,
		VotesPerVoter: poll.VotesPerVoter,
		AccessToken:   token,
	})
}

// joinPoll 加入已存在的投票
func (s *Server) joinPoll(c *gin.Context) {
	var req model.JoinPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("请求参数不合法"))
		return
	}

	userID, err := s.service.JoinPoll(c.Request.Context(), req.PollID)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := s.tokens.IssueToken(userID, req.PollID, req.Name)
	if err != nil {
		writeError(c, apperr.Storage("签发令牌失败", err))
		return
	}

	c.JSON(http.StatusOK, model.PollAuthResponse{
		PollID:      req.PollID,
		UserID:      userID,
		Name:        req.Name,
		AccessToken: token,
	})
}

// rejoinPoll 凭令牌重新加入，身份完全由令牌断言，不重新生成
func (s *Server) rejoinPoll(c *gin.Context) {
	var req model.RejoinPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("请求参数不合法"))
		return
	}

	claims, err := s.tokens.VerifyToken(req.AccessToken)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.PollAuthResponse{
		PollID:      claims.PollID,
		UserID:      claims.UserID(),
		Name:        claims.Name,
		AccessToken: req.AccessToken,
	})
}

// writeError 按错误类别映射HTTP状态码
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	message := err.Error()
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindAuthentication:
		status = http.StatusForbidden
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindPrecondition:
		status = http.StatusConflict
	case apperr.KindStorage:
		// 内部细节不外泄
		message = "内部错误"
	}

	c.JSON(status, gin.H{
		"kind":    string(kind),
		"message": message,
	})
}

// corsMiddleware 允许任意来源的跨域访问
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
