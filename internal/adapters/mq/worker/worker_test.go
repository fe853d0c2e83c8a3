package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/trapperkeeper/internal/adapters/mq/queue"
	"github.com/okian/trapperkeeper/internal/adapters/mq/worker"
	"github.com/okian/trapperkeeper/internal/domain/model"
	logging "github.com/okian/trapperkeeper/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch chan model.ChangeEvent
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan model.ChangeEvent, 16)}
}

func (q *mockQueue) Dequeue(context.Context) <-chan model.ChangeEvent { return q.ch }

func (q *mockQueue) Close() error {
	close(q.ch)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	seen   []string
	failOn map[string]error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{failOn: map[string]error{}}
}

func (p *recordingPublisher) Publish(_ context.Context, e model.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failOn[e.EventID]; ok {
		return err
	}
	p.seen = append(p.seen, e.EventID)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func change(id string) model.ChangeEvent {
	return model.ChangeEvent{EventID: id, Type: model.NoteUpdated, NoteID: model.NumberID(1), At: time.Now()}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		pub := newRecordingPublisher()
		w := worker.NewInMemoryWorker(q, pub, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When events are queued", func() {
			q.ch <- change("e1")
			q.ch <- change("e2")

			convey.Convey("Then they are published in order", func() {
				convey.So(eventually(func() bool { return len(pub.published()) == 2 }), convey.ShouldBeTrue)
				convey.So(pub.published(), convey.ShouldResemble, []string{"e1", "e2"})
			})
		})

		convey.Convey("When publishing one event fails", func() {
			pub.failOn["bad"] = errors.New("no subscribers reachable")
			q.ch <- change("bad")
			q.ch <- change("good")

			convey.Convey("Then the worker keeps going", func() {
				convey.So(eventually(func() bool { return len(pub.published()) == 1 }), convey.ShouldBeTrue)
				convey.So(pub.published(), convey.ShouldResemble, []string{"good"})
			})
		})

		convey.Convey("When shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		pub := newRecordingPublisher()
		pool := worker.NewPool(4, q, pub)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When many events are enqueued concurrently", func() {
			const n = 100
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for j := 0; j < n/5; j++ {
						_ = q.Enqueue(ctx, change(fmt.Sprintf("e-%d-%d", p, j)))
					}
				}(i)
			}
			wg.Wait()

			convey.Convey("Then every event is published exactly once", func() {
				convey.So(eventually(func() bool { return len(pub.published()) == n }), convey.ShouldBeTrue)

				seen := map[string]bool{}
				for _, id := range pub.published() {
					convey.So(seen[id], convey.ShouldBeFalse)
					seen[id] = true
				}
			})
		})

		convey.Convey("When shut down", func() {
			_ = q.Enqueue(ctx, change("last"))
			err := pool.Shutdown(context.Background())

			convey.Convey("Then queued events are drained and the queue is closed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(pub.published(), convey.ShouldContain, "last")
			})
		})
	})

	convey.Convey("Given a pool with a non-positive count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newRecordingPublisher())

		convey.Convey("Then it falls back to at least one worker", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}
