// Package notify 交换与积分事件的异步通知分发
//
// 业务事务提交后调用 Dispatch 入队，由单个后台 worker 依次投递给各个 Sink。
// 投递失败只记录日志，不会影响已提交的业务状态，也不会在调用方路径上重试。
package notify

import "time"

// Kind 事件类型
type Kind string

const (
	KindSwapRequest   Kind = "swap_request"
	KindSwapResponse  Kind = "swap_response"
	KindSwapCompleted Kind = "swap_completed"
	KindPointsEarned  Kind = "points_earned"
)

// Event 结构化通知事件
type Event struct {
	Kind       Kind                   `json:"kind"`
	Recipients []string               `json:"recipients"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	SwapID     string                 `json:"swap_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Notifier 业务层依赖的通知能力；实现必须不阻塞调用方
type Notifier interface {
	Dispatch(ev Event)
}

// NotifierFunc 函数适配器
type NotifierFunc func(ev Event)

func (f NotifierFunc) Dispatch(ev Event) { f(ev) }

// Nop 丢弃所有事件
var Nop Notifier = NotifierFunc(func(Event) {})
