// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package event is an in-process publish/subscribe bus used to notify
// interested components about governance activity.
package event

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 20
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from the bus. Deliver must not block.
// Close must be safe to call more than once.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

type EventBus struct {
	logger      *slog.Logger
	metrics     *eventMetrics
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	asyncQueue  chan Event
	asyncWg     sync.WaitGroup
	handlerWg   sync.WaitGroup
	stopCh      chan struct{}
	stopped     bool
	stopMu      sync.RWMutex
}

// NewEventBus creates an EventBus and starts its async delivery workers
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		logger:      logger,
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		asyncQueue:  make(chan Event, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	for range AsyncWorkerPoolSize {
		e.asyncWg.Add(1)
		go e.asyncWorker()
	}
	return e
}

func (e *EventBus) asyncWorker() {
	defer e.asyncWg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case evt := <-e.asyncQueue:
			e.Publish(evt.Type, evt)
		}
	}
}

// Subscribe registers a channel-backed subscriber for an event type. After
// Stop it returns a zero ID and a closed channel.
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := newChannelSubscriber(EventQueueSize, e.metrics)
	subId := e.RegisterSubscriber(eventType, sub)
	if subId == 0 {
		sub.Close()
	}
	return subId, sub.ch
}

// SubscribeFunc calls handlerFunc for each event of the given type from a
// dedicated goroutine. Stop waits for these goroutines to exit.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	// Hold the stop lock through Add so Stop cannot reach Wait first
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return 0
	}
	subId, evtCh := e.Subscribe(eventType)
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// RegisterSubscriber adds an arbitrary Subscriber implementation and returns
// its ID, or 0 if the bus is stopped
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subscribers == nil {
		return 0
	}
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId
}

// Unsubscribe removes a subscriber and closes it
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub Subscriber
	if subs, ok := e.subscribers[eventType]; ok {
		sub = subs[subId]
		delete(subs, subId)
		if len(subs) == 0 {
			delete(e.subscribers, eventType)
		}
	}
	e.mu.Unlock()
	if sub == nil {
		return
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
	}
	sub.Close()
}

// Publish delivers an event to every current subscriber of its type.
// Subscribers whose Deliver fails are removed.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	subs := make(map[EventSubscriberId]Subscriber, len(e.subscribers[eventType]))
	for id, sub := range e.subscribers[eventType] {
		subs[id] = sub
	}
	e.mu.RUnlock()
	for id, sub := range subs {
		if err := deliver(sub, evt); err != nil {
			e.logger.Debug(
				"event delivery error",
				"component", "event",
				"type", eventType,
				"error", err,
			)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType)).Inc()
			}
			e.Unsubscribe(eventType, id)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync queues an event for delivery by the worker pool. It returns
// false if the bus is stopped or the queue is full.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	evt.Type = eventType
	select {
	case e.asyncQueue <- evt:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"component", "event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.eventsDropped.WithLabelValues(string(eventType)).Inc()
		}
		return false
	}
}

// Stop halts the async workers, closes every subscriber and waits for
// SubscribeFunc handlers to return. Calling Stop more than once is a no-op.
func (e *EventBus) Stop() {
	e.stopMu.Lock()
	if e.stopped {
		e.stopMu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.stopMu.Unlock()
	e.asyncWg.Wait()

	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = nil
	e.mu.Unlock()
	for _, typeSubs := range subs {
		for _, sub := range typeSubs {
			sub.Close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
	e.handlerWg.Wait()
}

// channelSubscriber delivers events to a buffered channel. A full buffer
// drops the event instead of blocking the publisher.
type channelSubscriber struct {
	ch      chan Event
	metrics *eventMetrics
	mu      sync.RWMutex
	closed  bool
}

func newChannelSubscriber(
	buffer int,
	metrics *eventMetrics,
) *channelSubscriber {
	return &channelSubscriber{
		ch:      make(chan Event, buffer),
		metrics: metrics,
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
	default:
		if c.metrics != nil {
			c.metrics.eventsDropped.WithLabelValues(string(evt.Type)).Inc()
		}
	}
	return nil
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
