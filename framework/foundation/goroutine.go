package foundation

import (
	"runtime"
	"strconv"
	"strings"
)

// goroutineID parses the current goroutine id from the stack header
// ("goroutine 18 [running]:"). It is only used for owner assertions.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(header, ' '); i > 0 {
		header = header[:i]
	}
	id, _ := strconv.ParseUint(header, 10, 64)
	return id
}
