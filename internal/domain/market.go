package domain

// Market links the same real-world question on both platforms.
type Market struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	InstrumentA string `json:"instrument_a"` // token id / ticker on platform A
	InstrumentB string `json:"instrument_b"` // token id / ticker on platform B
}
