package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink 通知投递目标
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Dispatcher 无界 FIFO 队列 + 单 worker
//
// Dispatch 只加锁追加并发出非阻塞信号，从不等待投递；
// worker 按入队顺序把事件依次交给每个 Sink，每个 Sink 独立超时。
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	queue   []Event
	closed  bool
	started bool
	dropped uint64

	notify chan struct{}
	done   chan struct{}
}

// NewDispatcher 创建分发器；timeout <= 0 时使用 5s
func NewDispatcher(logger *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Dispatch 入队事件；关闭后到达的事件被丢弃并记录
func (d *Dispatcher) Dispatch(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	d.mu.Lock()
	if d.closed {
		d.dropped++
		d.mu.Unlock()
		d.logger.Warn("通知分发器已关闭，事件被丢弃",
			zap.String("kind", string(ev.Kind)),
			zap.Strings("recipients", ev.Recipients),
		)
		return
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Start 启动后台 worker；ctx 取消等同于 Close（队列仍会被排空）
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go d.run(ctx)
}

// Close 停止接收新事件并等待 worker 排空队列，ctx 到期则放弃等待
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case d.notify <- struct{}{}:
	default:
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("等待通知队列排空超时（剩余 %d 条）: %w", d.Pending(), ctx.Err())
	}
}

// Pending 队列中尚未投递的事件数
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Dropped 关闭后被丢弃的事件数
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	// 投递使用独立的 context，关闭期间排空的事件不受上游取消影响
	base := context.WithoutCancel(ctx)

	for {
		ev, ok, closed := d.pop()
		if ok {
			d.deliver(base, ev)
			continue
		}
		if closed {
			return
		}

		select {
		case <-d.notify:
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
		}
	}
}

func (d *Dispatcher) pop() (ev Event, ok bool, closed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return Event{}, false, d.closed
	}
	ev = d.queue[0]
	d.queue[0] = Event{}
	d.queue = d.queue[1:]
	return ev, true, d.closed
}

func (d *Dispatcher) deliver(base context.Context, ev Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(base, d.timeout)
		err := safeDeliver(ctx, sink, ev)
		cancel()
		if err != nil {
			d.logger.Warn("通知投递失败",
				zap.String("sink", sink.Name()),
				zap.String("kind", string(ev.Kind)),
				zap.Strings("recipients", ev.Recipients),
				zap.String("swap_id", ev.SwapID),
				zap.Error(err),
			)
		}
	}
}

// safeDeliver 隔离单个 Sink 的 panic，避免 worker 退出
func safeDeliver(ctx context.Context, sink Sink, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sink.Deliver(ctx, ev)
}
