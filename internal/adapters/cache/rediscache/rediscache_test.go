package rediscache

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/promptmatch/internal/domain/embedcache"
)

func TestCodec(t *testing.T) {
	Convey("Encode and Decode", t, func() {
		v := []float32{0, 1.5, -2.25, float32(math.Inf(1))}
		b := Encode(v)
		So(b, ShouldHaveLength, 16)
		out, err := Decode(b)
		So(err, ShouldBeNil)
		So(out, ShouldResemble, v)

		_, err = Decode(nil)
		So(err, ShouldEqual, embedcache.ErrCorrupt)
		_, err = Decode([]byte{1, 2, 3})
		So(err, ShouldEqual, embedcache.ErrCorrupt)
	})
}

// Live tests need PROMPTMATCH_TEST_REDIS_ADDR, e.g. localhost:6379.
func TestCacheLive(t *testing.T) {
	addr := os.Getenv("PROMPTMATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PROMPTMATCH_TEST_REDIS_ADDR not set")
	}

	Convey("Given a redis cache under a fresh prefix", t, func() {
		ctx := context.Background()
		c, err := Dial(ctx, addr, WithPrefix("promptmatch-test:"+uuid.NewString()+":"))
		So(err, ShouldBeNil)
		Reset(func() {
			_ = c.Clear(ctx)
			_ = c.Close()
		})

		key := embedcache.Key(embedcache.KindImage, []byte("img"))

		Convey("a miss reports not ok", func() {
			_, ok, err := c.Get(ctx, key)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("entries are write-once", func() {
			So(c.Put(ctx, key, []float32{1, 2}), ShouldBeNil)
			So(c.Put(ctx, key, []float32{9, 9}), ShouldBeNil)
			v, ok, err := c.Get(ctx, key)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(v, ShouldResemble, []float32{1, 2})
		})

		Convey("Clear empties the prefix", func() {
			So(c.Put(ctx, key, []float32{1}), ShouldBeNil)
			So(c.Put(ctx, embedcache.Key(embedcache.KindText, []byte("t")), []float32{2}), ShouldBeNil)
			n, err := c.Len(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			So(c.Clear(ctx), ShouldBeNil)
			n, err = c.Len(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("empty vectors are refused", func() {
			So(c.Put(ctx, key, nil), ShouldEqual, embedcache.ErrEmptyVector)
		})
	})
}
