package wake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// Edge selects the wake line transition that fires the source.
type Edge int

const (
	// EdgeFalling fires on an active to inactive transition.
	EdgeFalling Edge = iota
	// EdgeRising fires on an inactive to active transition.
	EdgeRising
	// EdgeBoth fires on any transition.
	EdgeBoth
	// EdgeLevel fires while the line is active, including when it is
	// already active at the time the source is armed.
	EdgeLevel
)

var edgeNames = map[Edge]string{
	EdgeFalling: "falling",
	EdgeRising:  "rising",
	EdgeBoth:    "both",
	EdgeLevel:   "level",
}

func (e Edge) String() string {
	if n, ok := edgeNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Edge(%d)", int(e))
}

// ParseEdge converts a config name into an Edge.
func ParseEdge(s string) (Edge, error) {
	for e, n := range edgeNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return e, nil
		}
	}
	return EdgeFalling, errors.Errorf("unknown wake edge %q", s)
}

// GPIO is a Source driven by a GPIO line, typically wired to the modem ring
// indicator.
type GPIO struct {
	chip      string
	offset    int
	edge      Edge
	activeLow bool

	mu   sync.Mutex
	line *gpiocdev.Line
}

// GPIOOption modifies the construction of a GPIO source.
type GPIOOption func(*GPIO)

// WithEdge sets the transition that fires the source.
func WithEdge(e Edge) GPIOOption {
	return func(g *GPIO) {
		g.edge = e
	}
}

// WithActiveLow treats a low physical level as active.
func WithActiveLow() GPIOOption {
	return func(g *GPIO) {
		g.activeLow = true
	}
}

// NewGPIO creates a GPIO source on the line at offset on chip.
// The line is only requested while the source is armed.
func NewGPIO(chip string, offset int, options ...GPIOOption) *GPIO {
	g := &GPIO{chip: chip, offset: offset}
	for _, option := range options {
		option(g)
	}
	return g
}

// Edge returns the configured transition.
func (g *GPIO) Edge() Edge {
	return g.edge
}

func (g *GPIO) lineOptions(handler gpiocdev.EventHandler) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("goatloc-wake"),
		gpiocdev.WithEventHandler(handler),
	}
	if g.activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	switch g.edge {
	case EdgeRising:
		opts = append(opts, gpiocdev.WithRisingEdge)
	case EdgeBoth, EdgeLevel:
		opts = append(opts, gpiocdev.WithBothEdges)
	default:
		opts = append(opts, gpiocdev.WithFallingEdge)
	}
	return opts
}

// Arm requests the line with edge detection enabled.
func (g *GPIO) Arm(ctx context.Context) (<-chan struct{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.line != nil {
		return nil, errors.New("wake line already armed")
	}
	c := make(chan struct{}, 1)
	handler := func(evt gpiocdev.LineEvent) {
		if g.edge == EdgeLevel && evt.Type != gpiocdev.LineEventRisingEdge {
			return
		}
		fire(c)
	}
	line, err := gpiocdev.RequestLine(g.chip, g.offset, g.lineOptions(handler)...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to request wake line %s:%d", g.chip, g.offset)
	}
	g.line = line
	if g.edge == EdgeLevel {
		v, err := line.Value()
		if err != nil {
			line.Close()
			g.line = nil
			return nil, errors.Wrap(err, "failed to read wake line")
		}
		if v == 1 {
			fire(c)
		}
	}
	return c, nil
}

// Disarm releases the line.
func (g *GPIO) Disarm() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	return errors.Wrap(err, "failed to release wake line")
}
