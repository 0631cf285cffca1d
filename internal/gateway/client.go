package gateway

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lvdashuaibi/rankvote/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBufferSize = 16
)

// Client 一条已认证的WS连接，身份三元组来自能力令牌，
// 作为显式的连接上下文贯穿所有事件处理，不存在全局会话表
type Client struct {
	gw   *Gateway
	conn *websocket.Conn

	userID string
	pollID string
	name   string

	// send只写不关，连接的退出全部通过done通知，
	// 避免读协程写入已关闭的通道
	send chan []byte
	done chan struct{}
}

func newClient(gw *Gateway, conn *websocket.Conn, userID, pollID, name string) *Client {
	return &Client{
		gw:     gw,
		conn:   conn,
		userID: userID,
		pollID: pollID,
		name:   name,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// sendEvent 仅向本连接发送一个事件（用于exception等点对点消息）
func (c *Client) sendEvent(event string, payload interface{}) {
	data, err := encodeEnvelope(event, payload)
	if err != nil {
		log.Printf("编码事件 %s 失败: %v", event, err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
		// 连接已被Hub断开
	default:
		// 缓冲已满时放弃投递，由Hub的慢客户端分支断开连接
	}
}

// sendException 向本连接报告一次失败，错误从不广播
func (c *Client) sendException(kind, message string) {
	c.sendEvent(model.EventException, model.ExceptionPayload{
		Kind:    kind,
		Message: message,
	})
}

// readPump 读协程：逐条解析入站事件并派发，退出时触发断连清理
func (c *Client) readPump() {
	defer func() {
		c.gw.handleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("参与者 %s 连接异常关闭: %v", c.userID, err)
			}
			return
		}

		var envelope model.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.sendException("validation", "消息格式错误")
			continue
		}

		c.gw.dispatch(c, &envelope)
	}
}

// writePump 写协程：串行发送消息并维持心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.done:
			// 被Hub断开（注销或慢客户端），关闭底层连接
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// encodeEnvelope 编码出站消息信封
func encodeEnvelope(event string, payload interface{}) ([]byte, error) {
	envelope := model.Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		envelope.Data = data
	}
	return json.Marshal(envelope)
}
