package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/oauth2"

	"github.com/okian/promptmatch/internal/domain/provider"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(),
		WithEndpoint(srv.URL),
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient(t *testing.T) {
	Convey("Given a fake predict endpoint", t, func() {
		ctx := context.Background()

		Convey("image requests carry the token and base64 bytes", func() {
			var got map[string]any
			var auth string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				b, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(b, &got)
				_, _ = w.Write([]byte(`{"predictions":[{"imageEmbedding":[0.1,0.2,0.3]}]}`))
			})

			vec, err := c.EmbedImage(ctx, []byte{1, 2, 3})
			So(err, ShouldBeNil)
			So(vec, ShouldHaveLength, 3)
			So(auth, ShouldEqual, "Bearer test-token")

			inst := got["instances"].([]any)[0].(map[string]any)
			So(inst["image"].(map[string]any)["bytesBase64Encoded"], ShouldEqual, "AQID")
		})

		Convey("text requests parse textEmbedding", func() {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"predictions":[{"textEmbedding":[1,0,-1]}]}`))
			})
			vec, err := c.EmbedText(ctx, "a red ball")
			So(err, ShouldBeNil)
			So(vec, ShouldResemble, []float32{1, 0, -1})
		})

		Convey("429 is transient and carries Retry-After", func() {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`quota exceeded`))
			})
			_, err := c.EmbedImage(ctx, []byte{1})
			So(errors.Is(err, provider.ErrTransient), ShouldBeTrue)
			So(provider.RetryAfterOf(err), ShouldEqual, 3*time.Second)
			So(err.Error(), ShouldContainSubstring, "quota exceeded")
		})

		Convey("400 is permanent", func() {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			})
			_, err := c.EmbedImage(ctx, []byte{1})
			So(errors.Is(err, provider.ErrPermanent), ShouldBeTrue)
		})

		Convey("503 is transient", func() {
			var calls int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusServiceUnavailable)
			})
			_, err := c.EmbedText(ctx, "x")
			So(provider.IsRetryable(err), ShouldBeTrue)
			So(atomic.LoadInt32(&calls), ShouldEqual, 1)
		})

		Convey("a response without a vector is a parse error", func() {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"predictions":[{"note":"nothing"}]}`))
			})
			_, err := c.EmbedImage(ctx, []byte{1})
			So(errors.Is(err, provider.ErrParse), ShouldBeTrue)
		})

		Convey("non-JSON bodies are parse errors", func() {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			})
			_, err := c.EmbedImage(ctx, []byte{1})
			So(errors.Is(err, provider.ErrParse), ShouldBeTrue)
		})

		Convey("empty input never reaches the network", func() {
			var calls int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			})
			_, err := c.EmbedImage(ctx, nil)
			So(errors.Is(err, provider.ErrPermanent), ShouldBeTrue)
			_, err = c.EmbedText(ctx, "  ")
			So(errors.Is(err, provider.ErrPermanent), ShouldBeTrue)
			So(atomic.LoadInt32(&calls), ShouldEqual, 0)
		})
	})

	Convey("New validates its inputs", t, func() {
		_, err := New(context.Background(), WithCredentialsJSON([]byte(`{}`)))
		So(err, ShouldEqual, ErrNoProject)

		_, err = New(context.Background(), WithProject("p"))
		So(err, ShouldEqual, ErrNoCredentials)

		c, err := New(context.Background(), WithProject("p"), WithLocation("europe-west4"),
			WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"})))
		So(err, ShouldBeNil)
		So(c.endpoint, ShouldEqual,
			"https://europe-west4-aiplatform.googleapis.com/v1/projects/p/locations/europe-west4/publishers/google/models/multimodalembedding@001:predict")
	})
}

func TestParseVector(t *testing.T) {
	Convey("parseVector handles every observed response shape", t, func() {
		shapes := []string{
			`{"predictions":[{"embeddings":{"imageEmbedding":{"values":[1,2]}}}]}`,
			`{"predictions":[{"embeddings":{"values":[1,2]}}]}`,
			`{"predictions":[{"embeddings":[{"values":[1,2]}]}]}`,
			`{"predictions":[{"imageEmbedding":{"values":[1,2]}}]}`,
			`{"predictions":[{"imageEmbedding":[1,2]}]}`,
			`{"predictions":[{"embeddings":{"imageEmbedding":[1,2]}}]}`,
			`{"predictions":[{"image_embedding":{"floatValues":[1,2]}}]}`,
			`{"predictions":[{"embeddings":{"image_embedding":{"values":[1,2]}}}]}`,
			`{"predictions":[{"embeddings":[{"imageEmbedding":{"floatValues":[1,2]}}]}]}`,
			`{"outputs":[{"imageEmbedding":[1,2]}]}`,
			`{"predictions":[{"deeply":{"nested":[{"thing":[1,2]}]}}]}`,
		}
		for _, s := range shapes {
			vec, err := parseVector([]byte(s), imagePaths)
			So(err, ShouldBeNil)
			So(vec, ShouldResemble, []float32{1, 2})
		}
	})

	Convey("parseVector rejects unusable responses", t, func() {
		for _, s := range []string{
			`{}`,
			`{"predictions":[]}`,
			`{"predictions":[{"imageEmbedding":[]}]}`,
			`{"predictions":[{"imageEmbedding":["a","b"]}]}`,
		} {
			_, err := parseVector([]byte(s), imagePaths)
			So(err, ShouldEqual, ErrNoVector)
		}
	})
}

func TestRetryAfter(t *testing.T) {
	Convey("retryAfter reads seconds and ignores junk", t, func() {
		So(retryAfter(""), ShouldEqual, 0)
		So(retryAfter("2"), ShouldEqual, 2*time.Second)
		So(retryAfter("soon"), ShouldEqual, 0)
		So(retryAfter(time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)), ShouldBeGreaterThan, 50*time.Minute)
	})
}
