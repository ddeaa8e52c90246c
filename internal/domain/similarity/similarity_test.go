package similarity

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCosine(t *testing.T) {
	Convey("Given cosine similarity", t, func() {
		Convey("Identical vectors should score 1", func() {
			So(Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Opposite vectors should score -1", func() {
			So(Cosine([]float32{1, 0}, []float32{-1, 0}), ShouldAlmostEqual, -1.0, 1e-9)
		})

		Convey("Orthogonal vectors should score 0", func() {
			So(Cosine([]float32{1, 0}, []float32{0, 1}), ShouldAlmostEqual, 0.0, 1e-9)
		})

		Convey("Zero, empty and nil vectors should score 0", func() {
			So(Cosine([]float32{0, 0}, []float32{1, 1}), ShouldEqual, 0.0)
			So(Cosine(nil, []float32{1}), ShouldEqual, 0.0)
			So(Cosine([]float32{}, []float32{}), ShouldEqual, 0.0)
		})

		Convey("Mismatched lengths should use the shared prefix", func() {
			So(Cosine([]float32{1, 0, 5}, []float32{1, 0}), ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("It should be symmetric and bounded for random vectors", func() {
			r := rand.New(rand.NewSource(7))
			for i := 0; i < 200; i++ {
				a := make([]float32, 1+r.Intn(16))
				b := make([]float32, 1+r.Intn(16))
				for j := range a {
					a[j] = float32(r.NormFloat64())
				}
				for j := range b {
					b[j] = float32(r.NormFloat64())
				}
				ab, ba := Cosine(a, b), Cosine(b, a)
				So(ab, ShouldEqual, ba)
				So(ab, ShouldBeBetweenOrEqual, -1.0, 1.0)
			}
		})
	})
}

func TestToUnit(t *testing.T) {
	Convey("ToUnit should map [-1,1] onto [0,1]", t, func() {
		So(ToUnit(-1), ShouldEqual, 0.0)
		So(ToUnit(0), ShouldEqual, 0.5)
		So(ToUnit(1), ShouldEqual, 1.0)
		So(ToUnit(3), ShouldEqual, 1.0)
		So(ToUnit(math.NaN()), ShouldEqual, 0.0)
	})
}

func TestLexical(t *testing.T) {
	Convey("Given lexical similarity", t, func() {
		Convey("Identical phrases should score 1", func() {
			So(Lexical("red circle", "red circle"), ShouldEqual, 1.0)
		})

		Convey("Disjoint phrases should score 0", func() {
			So(Lexical("red circle", "blue square"), ShouldEqual, 0.0)
		})

		Convey("Case and punctuation should be ignored", func() {
			So(Lexical("Red, CIRCLE!", "red circle"), ShouldEqual, 1.0)
		})

		Convey("Partial overlap should be Jaccard", func() {
			// {red, circle} vs {red, square}: 1/3
			So(Lexical("red circle", "red square"), ShouldAlmostEqual, 1.0/3.0, 1e-9)
		})

		Convey("Empty input should score 0", func() {
			So(Lexical("", ""), ShouldEqual, 0.0)
			So(Lexical("!!!", "   "), ShouldEqual, 0.0)
			So(Lexical("", "red"), ShouldEqual, 0.0)
		})

		Convey("It should stay in [0,1]", func() {
			inputs := []string{"", "a", "a a a", "the cat", "cat the", "x-y z", "üñî côdé", "1 2 3"}
			for _, a := range inputs {
				for _, b := range inputs {
					So(Lexical(a, b), ShouldBeBetweenOrEqual, 0.0, 1.0)
				}
			}
		})
	})
}
