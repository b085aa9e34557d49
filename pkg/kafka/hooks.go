package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes message handling. BeforeHandle may replace the
// context or payload; an error from it skips the handler and is treated as
// a handling failure.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, []byte, error)
	AfterHandle(ctx context.Context, km kafka.Message, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, []byte, error) {
	return ctx, km.Value, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

// HookFuncs adapts plain functions to ConsumerHook. Nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, []byte, error)
	After  func(context.Context, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, []byte, error) {
	if h.Before == nil {
		return ctx, km.Value, nil
	}
	return h.Before(ctx, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, km, err)
	}
}

// HookChain runs hooks in order before handling and in reverse order after.
// A panicking hook is turned into an error and never reaches the consumer.
type HookChain struct {
	hooks []ConsumerHook
}

// NewHookChain builds a chain, dropping nil hooks.
func NewHookChain(hooks ...ConsumerHook) *HookChain {
	filtered := make([]ConsumerHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &HookChain{hooks: filtered}
}

func (c *HookChain) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, []byte, error) {
	for _, h := range c.hooks {
		var (
			next = ctx
			data []byte
			err  error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("hook panic: %v", r)
				}
			}()
			next, data, err = h.BeforeHandle(ctx, km)
		}()
		if err != nil {
			return ctx, km.Value, err
		}
		ctx, km.Value = next, data
	}
	return ctx, km.Value, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		func() {
			defer func() { _ = recover() }()
			c.hooks[i].AfterHandle(ctx, km, err)
		}()
	}
}

// HeaderValue returns the value of the first header named key.
func HeaderValue(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
