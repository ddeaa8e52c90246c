package vertex

import (
	"github.com/buger/jsonparser"
)

// Paths tried in order inside one prediction before falling back to a deep
// search. The service has returned every one of these shapes at some point.
var (
	imagePaths = [][]string{
		{"embeddings", "imageEmbedding"},
		{"embeddings"},
		{"embeddings", "[0]"},
		{"imageEmbedding"},
		{"embeddings", "image_embedding"},
		{"image_embedding"},
		{"embeddings", "[0]", "imageEmbedding"},
		{"embeddings", "[0]", "image_embedding"},
	}
	textPaths = [][]string{
		{"textEmbedding"},
		{"embeddings", "textEmbedding"},
		{"text_embedding"},
		{"embeddings", "text_embedding"},
		{"embeddings", "[0]", "textEmbedding"},
		{"embeddings", "[0]", "text_embedding"},
		{"embeddings", "values"},
		{"embeddings", "[0]"},
	}
)

// parseVector extracts the first embedding from a predict response.
func parseVector(body []byte, paths [][]string) ([]float32, error) {
	pred, ok := firstPrediction(body)
	if !ok {
		return nil, ErrNoVector
	}
	for _, path := range paths {
		v, typ, _, err := jsonparser.Get(pred, path...)
		if err != nil {
			continue
		}
		if vec, ok := vectorAt(v, typ); ok {
			return vec, nil
		}
	}
	if vec, ok := deepSearch(pred, jsonparser.Object); ok {
		return vec, nil
	}
	return nil, ErrNoVector
}

func firstPrediction(body []byte) ([]byte, bool) {
	for _, key := range []string{"predictions", "outputs"} {
		v, typ, _, err := jsonparser.Get(body, key, "[0]")
		if err == nil && typ == jsonparser.Object {
			return v, true
		}
	}
	return nil, false
}

// vectorAt accepts a bare numeric array or an object holding values/floatValues.
func vectorAt(v []byte, typ jsonparser.ValueType) ([]float32, bool) {
	switch typ {
	case jsonparser.Array:
		return numeric(v)
	case jsonparser.Object:
		for _, key := range []string{"values", "floatValues"} {
			inner, t, _, err := jsonparser.Get(v, key)
			if err == nil && t == jsonparser.Array {
				if vec, ok := numeric(inner); ok {
					return vec, true
				}
			}
		}
	}
	return nil, false
}

func numeric(arr []byte) ([]float32, bool) {
	var (
		out []float32
		bad bool
	)
	_, err := jsonparser.ArrayEach(arr, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
		if bad {
			return
		}
		if t != jsonparser.Number {
			bad = true
			return
		}
		f, err := jsonparser.ParseFloat(v)
		if err != nil {
			bad = true
			return
		}
		out = append(out, float32(f))
	})
	if err != nil || bad || len(out) == 0 {
		return nil, false
	}
	return out, true
}

// deepSearch returns the first numeric array found in document order.
func deepSearch(v []byte, typ jsonparser.ValueType) ([]float32, bool) {
	if vec, ok := vectorAt(v, typ); ok {
		return vec, true
	}
	var (
		found []float32
		ok    bool
	)
	switch typ {
	case jsonparser.Object:
		_ = jsonparser.ObjectEach(v, func(_ []byte, child []byte, t jsonparser.ValueType, _ int) error {
			if !ok {
				found, ok = deepSearch(child, t)
			}
			return nil
		})
	case jsonparser.Array:
		_, _ = jsonparser.ArrayEach(v, func(child []byte, t jsonparser.ValueType, _ int, _ error) {
			if !ok {
				found, ok = deepSearch(child, t)
			}
		})
	}
	return found, ok
}
