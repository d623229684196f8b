package sync

import (
	"log/slog"
	gosync "sync"
)

// Progress снимок состояния прохода синхронизации
type Progress struct {
	Total     int // Total записей outbox, готовых к отправке в начале прохода
	Completed int // Completed успешно отправлено
	Failed    int // Failed окончательно не отправлено (dead-letter)
	Deferred  int // Deferred отложено до следующей попытки
}

// Processed returns how many entries of the pass have been handled.
func (p Progress) Processed() int {
	return p.Completed + p.Failed + p.Deferred
}

type observer struct {
	fn func(Progress)
	id int
}

// observers список подписчиков на прогресс
type observers struct {
	list []observer
	mu   gosync.Mutex
	next int
}

func (o *observers) add(fn func(Progress)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.next
	o.next++
	o.list = append(o.list, observer{id: id, fn: fn})

	var once gosync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *observers) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, obs := range o.list {
		if obs.id == id {
			o.list = append(o.list[:i:i], o.list[i+1:]...)
			return
		}
	}
}

func (o *observers) snapshot() []observer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observer(nil), o.list...)
}

// SubscribeToProgress registers fn to receive a snapshot at the start of
// every pass and after every processed entry. Observers are called
// synchronously, in subscription order, from the goroutine running the
// pass. The returned function unsubscribes.
func (m *Manager) SubscribeToProgress(fn func(Progress)) func() {
	return m.observers.add(fn)
}

func (m *Manager) emit(p Progress) {
	for _, obs := range m.observers.snapshot() {
		m.notify(obs, p)
	}
}

func (m *Manager) notify(obs observer, p Progress) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Progress observer panicked", slog.Any("panic", r))
		}
	}()
	obs.fn(p)
}
