// Package wgroup wraps sync.WaitGroup so blocking socket operations can be
// cancelled by a caller's context without leaking the goroutine performing
// the actual I/O.
package wgroup

import "sync"

// Go runs f in a new goroutine tracked by wg.
func Go(wg *sync.WaitGroup, f func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		f()
	}()
}
