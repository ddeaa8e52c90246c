package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/promptmatch/internal/domain/dedupe"
)

func TestSet(t *testing.T) {
	ctx := context.Background()

	Convey("Given an unbounded set", t, func() {
		d := dedupe.New()

		Convey("A new key is recorded", func() {
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("A repeated key is reported as seen", func() {
			d.SeenAndRecord(ctx, "a")
			So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("Unrecord allows a retry", func() {
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "a")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})

		Convey("Unrecording an unknown key is a no-op", func() {
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a set bounded to three keys", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(3))
		for _, k := range []string{"a", "b", "c"} {
			d.SeenAndRecord(ctx, k)
		}

		Convey("The oldest key is forgotten first", func() {
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})

		Convey("A cleared slot evicts nothing", func() {
			d.Unrecord(ctx, "a")
			So(d.Size(), ShouldEqual, 2)
			d.SeenAndRecord(ctx, "d")
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
		})
	})

	Convey("Given concurrent callers racing on the same keys", t, func() {
		d := dedupe.New()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Each key is fresh exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
