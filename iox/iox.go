// Package iox holds small I/O cleanup helpers.
package iox

import "io"

// DiscardClose closes c, dropping the error. For defer sites where a
// close failure has no useful handling:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc wraps c's Close in a plain func, for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
