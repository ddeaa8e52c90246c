package orchestrator

import "fmt"

// State is a step of the fallback chain.
type State int

const (
	TryImageEmbedding State = iota
	TryTextEmbedding
	LexicalFallback
	Done
)

// States lists every state in chain order.
func States() []State {
	return []State{TryImageEmbedding, TryTextEmbedding, LexicalFallback, Done}
}

func (s State) String() string {
	switch s {
	case TryImageEmbedding:
		return "image-embedding"
	case TryTextEmbedding:
		return "text-embedding"
	case LexicalFallback:
		return "lexical-fallback"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Next is the only transition function. Success from any step ends the chain;
// failure moves to the next cheaper signal. LexicalFallback cannot fail, but
// Next still maps it to Done so every path terminates.
func Next(s State, succeeded bool) State {
	if succeeded {
		return Done
	}
	switch s {
	case TryImageEmbedding:
		return TryTextEmbedding
	case TryTextEmbedding:
		return LexicalFallback
	default:
		return Done
	}
}
