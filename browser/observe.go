package browser

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"searchnav/locator"
)

// Observe starts polling the tab's DOM and delivering parsed snapshots. The
// channel always holds the freshest snapshot: a slow consumer sees the
// latest state, never a backlog.
func (s *Session) Observe(ctx context.Context) locator.Observer {
	ctx, cancel := context.WithCancel(ctx)
	o := &pollObserver{
		ch:     make(chan *goquery.Document, 1),
		cancel: cancel,
	}
	go o.poll(ctx, s)
	return o
}

type pollObserver struct {
	ch     chan *goquery.Document
	cancel context.CancelFunc
}

func (o *pollObserver) Snapshots() <-chan *goquery.Document { return o.ch }

func (o *pollObserver) Stop() { o.cancel() }

func (o *pollObserver) poll(ctx context.Context, s *Session) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	o.publish(ctx, s)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.publish(ctx, s)
		}
	}
}

func (o *pollObserver) publish(ctx context.Context, s *Session) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		s.log.V(1).Info("snapshot failed", "error", err.Error())
		return
	}
	select {
	case o.ch <- doc:
	default:
		// Swap out the stale snapshot.
		select {
		case <-o.ch:
		default:
		}
		select {
		case o.ch <- doc:
		default:
		}
	}
}
