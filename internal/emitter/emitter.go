// Package emitter 提供一个最小的类型化发布/订阅注册表，
// 用于把桥接连接管理器与其消费方（转发器、推送侧）解耦。
package emitter

import (
	"sync"

	"go.uber.org/zap"
)

// Handler 事件处理函数
type Handler func(payload interface{})

type entry struct {
	id int
	fn Handler
}

// Emitter 事件发射器。
// 同一事件名支持多个处理函数，按注册顺序同步调用；
// 单个处理函数 panic 不影响后续处理函数执行。
type Emitter struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string][]entry
	logger   *zap.Logger
}

// New 创建事件发射器
func New(logger *zap.Logger) *Emitter {
	return &Emitter{
		handlers: make(map[string][]entry),
		logger:   logger,
	}
}

// On 注册事件处理函数，返回取消注册函数。
// 取消注册函数只移除本次注册的处理函数，重复调用无副作用。
func (e *Emitter) On(event string, h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.handlers[event] = append(e.handlers[event], entry{id: id, fn: h})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		entries := e.handlers[event]
		for i, ent := range entries {
			if ent.id == id {
				e.handlers[event] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Emit 同步调用事件的全部处理函数（按注册顺序）
func (e *Emitter) Emit(event string, payload interface{}) {
	e.mu.Lock()
	entries := make([]entry, len(e.handlers[event]))
	copy(entries, e.handlers[event])
	e.mu.Unlock()

	for _, ent := range entries {
		e.invoke(event, ent.fn, payload)
	}
}

// invoke 调用单个处理函数，隔离 panic
func (e *Emitter) invoke(event string, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Event handler panicked",
				zap.String("event", event),
				zap.Any("panic", r),
			)
		}
	}()
	h(payload)
}
