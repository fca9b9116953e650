package fiber

import "runtime"

// goroutineID parses the calling goroutine's id out of its own stack
// trace header ("goroutine 123 [running]: ..."). There is no
// supported API for this; scraping runtime.Stack is the long-standing
// idiom for it.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
