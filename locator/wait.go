package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"searchnav/pagetype"
)

// ErrRootTimeout means the result root never appeared within the wait bound.
// It is distinct from a late success: callers can tell "never appeared" from
// "appeared late".
var ErrRootTimeout = errors.New("search root did not appear")

// DefaultRootWait bounds how long WaitForRoot watches for the root.
const DefaultRootWait = 5 * time.Second

// Observer delivers document snapshots as the page mutates. Implementations
// send the current state promptly after Snapshots is first drained and then
// a fresh snapshot per mutation batch. Stop releases the underlying watcher;
// it must be safe to call exactly once.
type Observer interface {
	Snapshots() <-chan *goquery.Document
	Stop()
}

// WaitForRoot resolves once a snapshot contains the page type's root
// selector, or fails with ErrRootTimeout after the bound. The observer is
// stopped and the timer released on every path, whichever side of the race
// loses.
func WaitForRoot(ctx context.Context, obs Observer, pt pagetype.PageType, timeout time.Duration) (*goquery.Document, error) {
	if timeout <= 0 {
		timeout = DefaultRootWait
	}
	defer obs.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	selector := RootSelector(pt)
	for {
		select {
		case doc, ok := <-obs.Snapshots():
			if !ok {
				return nil, fmt.Errorf("%w: observer closed", ErrRootTimeout)
			}
			if doc != nil && doc.Find(selector).Length() > 0 {
				return doc, nil
			}
		case <-timer.C:
			return nil, fmt.Errorf("%w after %s", ErrRootTimeout, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
