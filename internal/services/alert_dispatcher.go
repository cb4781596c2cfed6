package services

import (
	"sync"
	"sync/atomic"
)

// Alert: письмо в поддержку об операционной ошибке.
type Alert struct {
	Subject string
	Body    string
}

// AlertDispatcher отправляет алерты в фоне через ограниченную очередь.
// Переполненная очередь отбрасывает алерт, запросы не ждут SMTP.
type AlertDispatcher struct {
	sink      func(Alert)
	onDrop    func()
	ch        chan Alert
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewAlertDispatcher(bufferSize int, sink func(Alert), onDrop func()) *AlertDispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	d := &AlertDispatcher{
		sink:   sink,
		onDrop: onDrop,
		ch:     make(chan Alert, bufferSize),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *AlertDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case a := <-d.ch:
			d.sink(a)
		case <-d.done:
			for {
				select {
				case a := <-d.ch:
					d.sink(a)
				default:
					return
				}
			}
		}
	}
}

// Emit не блокируется.
func (d *AlertDispatcher) Emit(a Alert) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- a:
	case <-d.done:
	default:
		d.dropped.Add(1)
		if d.onDrop != nil {
			d.onDrop()
		}
	}
}

// Close дожидается отправки того, что уже в очереди.
func (d *AlertDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *AlertDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
