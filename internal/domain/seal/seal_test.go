package seal

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSealer(t *testing.T) {
	Convey("Given a sealer", t, func() {
		s, err := New("test-secret")
		So(err, ShouldBeNil)

		Convey("a sealed prompt opens to the same text", func() {
			tok, err := s.Seal("a glowing heart on a dark background")
			So(err, ShouldBeNil)
			So(strings.Count(tok, "."), ShouldEqual, 2)
			So(tok, ShouldNotContainSubstring, "glowing")
			So(tok, ShouldNotContainSubstring, "=")

			plain, err := s.Open(tok)
			So(err, ShouldBeNil)
			So(plain, ShouldEqual, "a glowing heart on a dark background")
		})

		Convey("sealing twice yields different tokens", func() {
			a, _ := s.Seal("same")
			b, _ := s.Seal("same")
			So(a, ShouldNotEqual, b)
		})

		Convey("the empty string round-trips", func() {
			tok, err := s.Seal("")
			So(err, ShouldBeNil)
			plain, err := s.Open(tok)
			So(err, ShouldBeNil)
			So(plain, ShouldEqual, "")
		})

		Convey("malformed tokens are rejected", func() {
			for _, tok := range []string{"", "abc", "a.b", "a.b.c.d", "!!.!!.!!"} {
				_, err := s.Open(tok)
				So(err, ShouldEqual, ErrInvalidToken)
			}
		})

		Convey("a tampered ciphertext is rejected", func() {
			tok, _ := s.Seal("yellow flower crown")
			parts := strings.Split(tok, ".")
			ct := []byte(parts[2])
			if ct[0] == 'A' {
				ct[0] = 'B'
			} else {
				ct[0] = 'A'
			}
			_, err := s.Open(parts[0] + "." + parts[1] + "." + string(ct))
			So(err, ShouldEqual, ErrInvalidToken)
		})

		Convey("a token from another secret is rejected", func() {
			other, err := New("other-secret")
			So(err, ShouldBeNil)
			tok, _ := other.Seal("hidden")
			_, err = s.Open(tok)
			So(err, ShouldEqual, ErrInvalidToken)
		})
	})

	Convey("An empty secret is refused", t, func() {
		_, err := New("  ")
		So(err, ShouldEqual, ErrEmptySecret)
	})
}
