package nav

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"searchnav/keymap"
)

// Message types accepted by HandleMessage.
const (
	UpdateKeyMappings = "updateKeyMappings"
	ClearKeyMappings  = "clearKeyMappings"
)

// Message carries a request from the settings surface.
type Message struct {
	Type       string         `json:"type"`
	KeyConfigs keymap.Configs `json:"keyConfigs,omitempty"`
}

// ErrUnknownMessage marks a message type the controller does not handle.
var ErrUnknownMessage = fmt.Errorf("unknown message type")

// HandleMessage applies a settings message. The returned channel delivers
// exactly one result once persistence has finished, so the caller can keep
// its event loop running while the store writes.
func (c *Controller) HandleMessage(ctx context.Context, msg Message) <-chan error {
	done := make(chan error, 1)
	switch msg.Type {
	case UpdateKeyMappings:
		go func() {
			_, err := c.keys.SaveKeyConfigs(ctx, msg.KeyConfigs)
			done <- err
		}()
	case ClearKeyMappings:
		go func() {
			_, err := c.keys.ClearKeyConfigs(ctx)
			done <- err
		}()
	default:
		done <- fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return done
}

func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
