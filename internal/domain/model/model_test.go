package model

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeImage(t *testing.T) {
	payload := []byte{0xfb, 0xff, 0xfe, 0x01, 0x02}

	Convey("DecodeImage", t, func() {
		Convey("accepts plain standard base64", func() {
			b, err := DecodeImage(base64.StdEncoding.EncodeToString(payload), 0)
			So(err, ShouldBeNil)
			So(b, ShouldResemble, payload)
		})

		Convey("strips a data URL prefix", func() {
			b, err := DecodeImage("data:image/png;base64,"+base64.StdEncoding.EncodeToString(payload), 0)
			So(err, ShouldBeNil)
			So(b, ShouldResemble, payload)
		})

		Convey("accepts the URL-safe alphabet without padding", func() {
			b, err := DecodeImage(base64.RawURLEncoding.EncodeToString(payload), 0)
			So(err, ShouldBeNil)
			So(b, ShouldResemble, payload)
		})

		Convey("ignores embedded whitespace", func() {
			enc := base64.StdEncoding.EncodeToString(payload)
			b, err := DecodeImage(enc[:3]+"\n  "+enc[3:], 0)
			So(err, ShouldBeNil)
			So(b, ShouldResemble, payload)
		})

		Convey("returns nil for an empty payload", func() {
			b, err := DecodeImage("   ", 10)
			So(err, ShouldBeNil)
			So(b, ShouldBeNil)
		})

		Convey("rejects a length of 1 mod 4", func() {
			_, err := DecodeImage("abcde", 0)
			So(errors.Is(err, ErrInvalidImage), ShouldBeTrue)
		})

		Convey("rejects characters outside the alphabet", func() {
			_, err := DecodeImage("ab!d", 0)
			So(errors.Is(err, ErrInvalidImage), ShouldBeTrue)
		})

		Convey("enforces the size ceiling", func() {
			big := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 100)))
			_, err := DecodeImage(big, 99)
			So(errors.Is(err, ErrImageTooLarge), ShouldBeTrue)

			b, err := DecodeImage(big, 100)
			So(err, ShouldBeNil)
			So(len(b), ShouldEqual, 100)
		})
	})
}

func TestScoreRequest(t *testing.T) {
	Convey("ScoreRequest helpers", t, func() {
		So(ScoreRequest{Prompt: "x"}.HasTarget(), ShouldBeFalse)
		So(ScoreRequest{TargetDescription: "red ball"}.HasTarget(), ShouldBeTrue)
		So(ScoreRequest{TargetToken: "a.b.c"}.HasTarget(), ShouldBeTrue)
		So(ScoreRequest{TargetEmbedding: []float32{1}}.HasTarget(), ShouldBeTrue)

		So(ScoreRequest{TargetDescription: "ignored"}.LabelOr(" a red ball "), ShouldEqual, "a red ball")
		So(ScoreRequest{TargetDescription: "a red ball", TargetLabel: " ball "}.LabelOr("a red ball"), ShouldEqual, "ball")
		So(ScoreRequest{TargetToken: "tok"}.LabelOr(""), ShouldEqual, "")
	})
}
