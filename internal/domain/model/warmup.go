package model

// WarmupJob asks a worker to embed one target image ahead of time.
type WarmupJob struct {
	ID     string
	Source string
	Image  []byte
}
