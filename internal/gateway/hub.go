package gateway

import (
	"log"
)

// broadcast 投递到某个房间全体成员的一条已编码消息
type broadcast struct {
	pollID string
	data   []byte
}

// Hub 管理全部房间与连接。rooms只由Run协程访问，
// 注册、注销、广播都通过通道串行化，不加锁
type Hub struct {
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcasts chan broadcast
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcasts: make(chan broadcast, 64),
		done:       make(chan struct{}),
	}
}

// Run 主循环，独占rooms
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			room, ok := h.rooms[client.pollID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[client.pollID] = room
			}
			room[client] = struct{}{}
			log.Printf("参与者 %s 加入房间 %s, 当前连接数: %d", client.userID, client.pollID, len(room))

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.broadcasts:
			for client := range h.rooms[msg.pollID] {
				select {
				case client.send <- msg.data:
				default:
					// 发送缓冲写满说明客户端已经跟不上，断开它
					h.drop(client)
				}
			}

		case <-h.done:
			return
		}
	}
}

// drop 把连接移出房间并通知其写协程退出。send通道从不关闭，
// 读协程并发调用sendEvent不会写到已关闭的通道上
func (h *Hub) drop(client *Client) {
	room, ok := h.rooms[client.pollID]
	if !ok {
		return
	}
	if _, joined := room[client]; !joined {
		return
	}
	delete(room, client)
	close(client.done)
	if len(room) == 0 {
		delete(h.rooms, client.pollID)
	}
}

// Broadcast 向房间内全部本地连接投递消息
func (h *Hub) Broadcast(pollID string, data []byte) {
	select {
	case h.broadcasts <- broadcast{pollID: pollID, data: data}:
	case <-h.done:
	}
}

// Stop 停止主循环
func (h *Hub) Stop() {
	close(h.done)
}
