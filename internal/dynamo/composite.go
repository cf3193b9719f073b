package dynamo

import "fmt"

type block struct {
	name string
	eqs  Equations
}

// Composite concatenates a primary set of equations with named auxiliary
// blocks (for example a maneuver's mass-flow equation attached between two
// propagation segments). The combined state vector is the primary state
// followed by each block's state in registration order.
//
// Blocks may only be added or removed between Propagate calls: the state
// dimension is fixed within a segment.
type Composite struct {
	primary Equations
	blocks  []block
}

func NewComposite(primary Equations) *Composite {
	return &Composite{primary: primary}
}

func (c *Composite) AddBlock(name string, eqs Equations) error {
	for _, b := range c.blocks {
		if b.name == name {
			return fmt.Errorf("composite: duplicate block %q", name)
		}
	}
	c.blocks = append(c.blocks, block{name: name, eqs: eqs})
	return nil
}

func (c *Composite) RemoveBlock(name string) error {
	for i, b := range c.blocks {
		if b.name == name {
			c.blocks = append(c.blocks[:i], c.blocks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("composite: no block %q", name)
}

// BlockOffset returns the index of the named block's first component in the
// combined state vector.
func (c *Composite) BlockOffset(name string) (int, error) {
	off := c.primary.Dim()
	for _, b := range c.blocks {
		if b.name == name {
			return off, nil
		}
		off += b.eqs.Dim()
	}
	return 0, fmt.Errorf("composite: no block %q", name)
}

func (c *Composite) Dim() int {
	n := c.primary.Dim()
	for _, b := range c.blocks {
		n += b.eqs.Dim()
	}
	return n
}

func (c *Composite) Derivatives(t float64, y State) State {
	dy := make(State, len(y))
	np := c.primary.Dim()
	copy(dy[:np], c.primary.Derivatives(t, y[:np]))
	off := np
	for _, b := range c.blocks {
		nb := b.eqs.Dim()
		copy(dy[off:off+nb], b.eqs.Derivatives(t, y[off:off+nb]))
		off += nb
	}
	return dy
}

// Extend appends a block's initial state to an existing combined state,
// for use right after AddBlock.
func (c *Composite) Extend(y State, y0block State) State {
	out := make(State, 0, len(y)+len(y0block))
	out = append(out, y...)
	out = append(out, y0block...)
	return out
}
