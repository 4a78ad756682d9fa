package upload

// ProgressObserver receives coarse upload progress ticks from 0 to 100.
// Implementations must tolerate being called from the uploading goroutine.
type ProgressObserver interface {
	Progress(percent int)
}

// ProgressFunc adapts a plain function to ProgressObserver.
type ProgressFunc func(percent int)

func (f ProgressFunc) Progress(percent int) {
	f(percent)
}

// ChannelObserver forwards progress ticks into a bounded channel without
// ever blocking the uploader: when the consumer lags, intermediate ticks
// are dropped. The final 100 tick is always delivered because the channel
// is drained of stale values first.
type ChannelObserver struct {
	ch chan int
}

// NewChannelObserver creates an observer with the given buffer size
// (minimum 1).
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelObserver{ch: make(chan int, buffer)}
}

// C is the receive side consumed by the UI.
func (o *ChannelObserver) C() <-chan int {
	return o.ch
}

func (o *ChannelObserver) Progress(percent int) {
	for {
		select {
		case o.ch <- percent:
			return
		default:
			// full: discard the oldest tick and retry
			select {
			case <-o.ch:
			default:
			}
		}
	}
}
