package forecast

// Window is a fixed-length FIFO of normalized observations, oldest first.
// It is always full: Slide appends one value and evicts the oldest.
type Window struct {
	data []float64
	head int // index of the oldest value
}

// NewWindow seeds a window with exactly size values.
func NewWindow(signal string, values []float64, size int) (*Window, error) {
	if size <= 0 {
		return nil, invalidInputf("window size must be positive, got %d", size)
	}
	if len(values) < size {
		return nil, &HistoryError{Signal: signal, Got: len(values), Want: size}
	}
	if len(values) > size {
		return nil, invalidInputf("%s has %d observations, window holds exactly %d", signal, len(values), size)
	}
	data := make([]float64, size)
	copy(data, values)
	return &Window{data: data}, nil
}

// Slide appends v as the newest value and drops the oldest.
func (w *Window) Slide(v float64) {
	w.data[w.head] = v
	w.head = (w.head + 1) % len(w.data)
}

// Snapshot returns a copy of the current contents in chronological order.
func (w *Window) Snapshot() []float64 {
	out := make([]float64, len(w.data))
	n := copy(out, w.data[w.head:])
	copy(out[n:], w.data[:w.head])
	return out
}

// Len is the fixed window length.
func (w *Window) Len() int { return len(w.data) }
