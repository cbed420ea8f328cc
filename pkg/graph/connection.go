package graph

import "fmt"

// Connection is an accepted directed edge from an [Output] to an [Input].
// Connections are created only by [Graph.AddConnection].
type Connection struct {
	input  *Input
	output *Output
}

// Input returns the receiving end.
func (c *Connection) Input() *Input { return c.input }

// Output returns the producing end.
func (c *Connection) Output() *Output { return c.output }

// Touches reports whether the connection has link as one of its ends.
func (c *Connection) Touches(link Link) bool {
	switch l := link.(type) {
	case *Input:
		return l == c.input
	case *Output:
		return l == c.output
	default:
		return false
	}
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s -> %s", c.output, c.input)
}
