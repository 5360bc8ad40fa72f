package eventbus

import "sync"

// Filtered subscribes to topic and forwards only the events matching keep
// into a fresh latest-wins channel of its own, so a consumer asking for one
// ticker spec isn't starved by unrelated traffic overwriting the raw
// subscription's single slot. The returned cancel function tears down both
// the forwarding goroutine and the underlying raw subscription; it is safe
// to call more than once.
func Filtered[T any](topic *Topic[T], keep func(T) bool) (<-chan T, func()) {
	raw, cancelRaw := topic.Subscribe()
	out := make(chan T, 1)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case v, ok := <-raw:
				if !ok {
					return
				}
				if !keep(v) {
					continue
				}
				select {
				case out <- v:
				default:
					drops.Add(1)
					select {
					case <-out:
					default:
					}
					select {
					case out <- v:
					default:
					}
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			cancelRaw()
			<-done
		})
	}
	return out, cancel
}
