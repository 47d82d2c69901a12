package events

import (
	"context"
	"log"
	"sync"
)

// Dispatcher fans committed change events out to its observers from a
// worker pool. Publishing never blocks a fan-out transaction: if the
// buffer is full the event is dropped and logged.
type Dispatcher struct {
	observers    map[string]Observer
	eventChannel chan Event
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

func NewDispatcher(workers, bufferSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		observers:    make(map[string]Observer),
		eventChannel: make(chan Event, bufferSize),
		ctx:          ctx,
		cancel:       cancel,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.processEvents()
	}

	return d
}

func (d *Dispatcher) Subscribe(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers[observer.Name()] = observer
	log.Printf("Observer %s subscribed", observer.Name())
}

func (d *Dispatcher) Unsubscribe(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.observers, observer.Name())
	log.Printf("Observer %s unsubscribed", observer.Name())
}

// Notify delivers synchronously to every observer. Observer failures
// are logged and swallowed; delivery is best-effort.
func (d *Dispatcher) Notify(event Event) {
	d.mu.RLock()
	observers := make([]Observer, 0, len(d.observers))
	for _, obs := range d.observers {
		observers = append(observers, obs)
	}
	d.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Update(event); err != nil {
			log.Printf("Observer %s update failed: %v", observer.Name(), err)
		}
	}
}

// Publish queues the event for asynchronous delivery.
func (d *Dispatcher) Publish(event Event) {
	select {
	case d.eventChannel <- event:

	case <-d.ctx.Done():
		return
	default:
		log.Printf("Event channel full, dropping event: %s", event.Type)
	}
}

func (d *Dispatcher) processEvents() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.eventChannel:
			d.Notify(event)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.wg.Wait()
	log.Println("event dispatcher shutdown complete")
}
