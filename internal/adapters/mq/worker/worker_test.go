package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/promptmatch/internal/adapters/mq/queue"
	worker "github.com/okian/promptmatch/internal/adapters/mq/worker"
	logging "github.com/okian/promptmatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockWarmer struct {
	mu     sync.Mutex
	seen   map[string]bool
	errs   map[string]error
	delay  time.Duration
	called int
}

func newMockWarmer() *mockWarmer {
	return &mockWarmer{seen: map[string]bool{}, errs: map[string]error{}}
}

func (m *mockWarmer) WarmImage(ctx context.Context, image []byte) (bool, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called++
	key := string(image)
	if err, ok := m.errs[key]; ok {
		return false, err
	}
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *mockWarmer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.called
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		warmer := newMockWarmer()

		convey.Convey("When creating a worker with options", func() {
			w := worker.NewInMemoryWorker(q, warmer, worker.WithName("test-worker"), worker.WithJobTimeout(time.Second))
			convey.So(w, convey.ShouldNotBeNil)
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, warmer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			q.jobs <- queue.Job{ID: "1", Source: "heart.png", Image: []byte("heart")}
			q.jobs <- queue.Job{ID: "2", Source: "heart-copy.png", Image: []byte("heart")}

			convey.Convey("Then every job reaches the warmer", func() {
				deadline := time.Now().Add(time.Second)
				for warmer.calls() < 2 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				convey.So(warmer.calls(), convey.ShouldEqual, 2)
			})

			convey.Convey("Then Shutdown returns once the loop exits", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue closes", func() {
			w := worker.NewInMemoryWorker(q, warmer)
			done := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(done)
			}()
			_ = q.Close()

			convey.Convey("Then Run returns", func() {
				select {
				case <-done:
					convey.So(true, convey.ShouldBeTrue)
				case <-time.After(time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		warmer := newMockWarmer()
		warmer.errs["broken"] = errors.New("provider down")

		pool := worker.NewPool(3, q, warmer)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		for _, img := range []string{"a", "b", "a", "broken", "c"} {
			convey.So(q.Put(ctx, queue.Job{ID: img, Source: img + ".png", Image: []byte(img)}), convey.ShouldBeNil)
		}
		_ = q.Close()

		wctx, wcancel := context.WithTimeout(ctx, 2*time.Second)
		defer wcancel()
		convey.So(pool.Wait(wctx), convey.ShouldBeNil)

		convey.Convey("Then the counters add up across workers", func() {
			st := pool.Stats()
			convey.So(st.Workers, convey.ShouldEqual, 3)
			convey.So(st.Warmed, convey.ShouldEqual, 3)
			convey.So(st.Cached, convey.ShouldEqual, 1)
			convey.So(st.Failed, convey.ShouldEqual, 1)
		})

		convey.Convey("Then Shutdown is quick once drained", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("A slow job is bounded by the job timeout", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		warmer := newMockWarmer()
		warmer.delay = time.Second

		pool := worker.NewPool(1, q, warmer, worker.WithJobTimeout(20*time.Millisecond))
		pool.Start(context.Background())
		convey.So(q.Put(context.Background(), queue.Job{ID: "slow", Image: []byte("slow")}), convey.ShouldBeNil)
		_ = q.Close()

		wctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		convey.So(pool.Wait(wctx), convey.ShouldBeNil)
		convey.So(pool.Stats().Failed, convey.ShouldEqual, 1)
	})
}
