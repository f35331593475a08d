// Package realtime はユーザー単位のイベント配信。
// 接続の台帳はアクター1つが持ち、外からはメッセージでしか触らない
package realtime

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const requestTimeout = 3 * time.Second

// クライアントに送る1件
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// 1本の接続。Sendはブロックしない（詰まっていたらfalse）
type Conn interface {
	ID() string
	Send(msg Message) bool
	Close()
}

// ===== アクターへのメッセージ =====

type register struct {
	userID int64
	conn   Conn
}

type unregister struct {
	userID int64
	connID string
}

type emit struct {
	userID int64
	msg    Message
}

type countRequest struct {
	userID int64
}

type countResponse struct {
	count int
}

// registryActor はuserID → connID → Conn を持つ
type registryActor struct {
	conns  map[int64]map[string]Conn
	logger *zap.Logger
}

func (a *registryActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.conns = make(map[int64]map[string]Conn)

	case *register:
		byID, ok := a.conns[msg.userID]
		if !ok {
			byID = make(map[string]Conn)
			a.conns[msg.userID] = byID
		}
		byID[msg.conn.ID()] = msg.conn
		a.logger.Debug("connection registered",
			zap.Int64("user_id", msg.userID),
			zap.String("conn_id", msg.conn.ID()),
			zap.Int("connections", len(byID)))

	case *unregister:
		a.remove(msg.userID, msg.connID)

	case *emit:
		for id, c := range a.conns[msg.userID] {
			//受け取れない接続は切る
			if !c.Send(msg.msg) {
				a.logger.Warn("dropping slow connection",
					zap.Int64("user_id", msg.userID),
					zap.String("conn_id", id),
					zap.String("event", msg.msg.Event))
				c.Close()
				a.remove(msg.userID, id)
			}
		}

	case *countRequest:
		ctx.Respond(&countResponse{count: len(a.conns[msg.userID])})

	case *actor.Stopping:
		for _, byID := range a.conns {
			for _, c := range byID {
				c.Close()
			}
		}
		a.conns = make(map[int64]map[string]Conn)
	}
}

// 他の接続には影響しない
func (a *registryActor) remove(userID int64, connID string) {
	byID, ok := a.conns[userID]
	if !ok {
		return
	}
	delete(byID, connID)
	if len(byID) == 0 {
		delete(a.conns, userID)
	}
}

type Hub struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("hub")

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &registryActor{logger: logger}
	})

	return &Hub{
		system: system,
		pid:    system.Root.Spawn(props),
		logger: logger,
	}
}

func (h *Hub) Register(userID int64, conn Conn) {
	h.system.Root.Send(h.pid, &register{userID: userID, conn: conn})
}

func (h *Hub) Unregister(userID int64, connID string) {
	h.system.Root.Send(h.pid, &unregister{userID: userID, connID: connID})
}

// userIDのチャネルにだけ送る
func (h *Hub) Emit(userID int64, event string, payload any) {
	h.system.Root.Send(h.pid, &emit{userID: userID, msg: Message{Event: event, Data: payload}})
}

// 生きている接続数（メールボックス順なので直前のSendは反映済み）
func (h *Hub) ConnectionCount(userID int64) (int, error) {
	res, err := h.system.Root.RequestFuture(h.pid, &countRequest{userID: userID}, requestTimeout).Result()
	if err != nil {
		return 0, err
	}
	r, ok := res.(*countResponse)
	if !ok {
		return 0, errors.New("unexpected response from hub")
	}
	return r.count, nil
}

// 全接続を閉じて止める
func (h *Hub) Stop() {
	if err := h.system.Root.StopFuture(h.pid).Wait(); err != nil {
		h.logger.Warn("hub stop", zap.Error(err))
	}
}
