package warmup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/promptmatch/internal/domain/dedupe"
	"github.com/okian/promptmatch/internal/domain/model"
)

type collector struct {
	mu   sync.Mutex
	jobs []model.WarmupJob
	err  error
}

func (c *collector) Put(_ context.Context, j model.WarmupJob) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.jobs = append(c.jobs, j)
	return nil
}

func (c *collector) sources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, j := range c.jobs {
		out = append(out, filepath.Base(j.Source))
	}
	return out
}

func write(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	Convey("Given a directory of mixed files", t, func() {
		dir := t.TempDir()
		write(t, dir, "heart.png", 10)
		write(t, dir, "crown.JPG", 10)
		write(t, dir, "big.jpeg", 100)
		write(t, dir, "empty.png", 0)
		write(t, dir, "notes.txt", 10)
		So(os.Mkdir(filepath.Join(dir, "nested"), 0o700), ShouldBeNil)
		write(t, filepath.Join(dir, "nested"), "star.jpg", 10)

		c := &collector{}
		s := NewScanner(dir, c, WithMaxBytes(50))

		Convey("images within the ceiling are queued", func() {
			res, err := s.Scan(context.Background())
			So(err, ShouldBeNil)
			So(res.Queued, ShouldEqual, 3)
			So(res.Skipped, ShouldEqual, 2)
			So(c.sources(), ShouldContain, "heart.png")
			So(c.sources(), ShouldContain, "crown.JPG")
			So(c.sources(), ShouldContain, "star.jpg")
			So(c.jobs[0].ID, ShouldNotBeEmpty)
		})

		Convey("a sink failure stops the scan", func() {
			c.err = os.ErrClosed
			_, err := s.Scan(context.Background())
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given identical images and a deduper", t, func() {
		dir := t.TempDir()
		write(t, dir, "a.png", 10)
		write(t, dir, "b.png", 10)
		c := &collector{}
		d := dedupe.New()
		s := NewScanner(dir, c, WithDeduper(d))

		Convey("the content is queued once", func() {
			res, err := s.Scan(context.Background())
			So(err, ShouldBeNil)
			So(res.Queued, ShouldEqual, 1)
			So(res.Skipped, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("a failed hand-off is forgotten", func() {
			c.err = os.ErrClosed
			_, err := s.Scan(context.Background())
			So(err, ShouldNotBeNil)
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("A missing or non-directory path is an error", t, func() {
		_, err := NewScanner(filepath.Join(t.TempDir(), "nope"), &collector{}).Scan(context.Background())
		So(err, ShouldNotBeNil)

		dir := t.TempDir()
		write(t, dir, "file.png", 1)
		_, err = NewScanner(filepath.Join(dir, "file.png"), &collector{}).Scan(context.Background())
		So(errors.Is(err, ErrNoDir), ShouldBeTrue)
	})
}

func TestWatch(t *testing.T) {
	Convey("Given a watched directory", t, func() {
		dir := t.TempDir()
		c := &collector{}
		s := NewScanner(dir, c)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- s.Watch(ctx, 30*time.Millisecond) }()
		time.Sleep(50 * time.Millisecond)

		write(t, dir, "new.png", 5)
		write(t, dir, "ignored.txt", 5)

		deadline := time.Now().Add(2 * time.Second)
		for len(c.sources()) == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		cancel()

		So(c.sources(), ShouldContain, "new.png")
		So(c.sources(), ShouldNotContain, "ignored.txt")
		So(<-done, ShouldBeNil)
	})
}
