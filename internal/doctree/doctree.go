package doctree

import (
	"fmt"
	"strings"
)

// Kind tags a Node as a container or a leaf.
type Kind int

const (
	Container Kind = iota
	Leaf
)

func (k Kind) String() string {
	if k == Leaf {
		return "leaf"
	}
	return "container"
}

// Node is one position in a jagged text tree: a container of ordered
// children, or a leaf holding resolved text.
type Node struct {
	Kind     Kind
	Title    string  // Display title (empty for untitled units)
	Text     string  // Leaf text; unused for containers
	Children []*Node // Container children, index = declared number - 1

	// Placeholder marks a gap filler inserted for a number that was never
	// declared.
	Placeholder bool
}

// NewContainer returns an empty container.
func NewContainer(title string) *Node {
	return &Node{Kind: Container, Title: title}
}

// NewLeaf returns a leaf holding text.
func NewLeaf(text string) *Node {
	return &Node{Kind: Leaf, Text: text}
}

// LeavesOf wraps each string in a leaf under a new container.
func LeavesOf(title string, texts []string) *Node {
	n := NewContainer(title)
	n.Children = make([]*Node, len(texts))
	for i, t := range texts {
		n.Children[i] = NewLeaf(t)
	}
	return n
}

// Append adds child after the current last child.
func (n *Node) Append(child *Node) {
	n.Children = append(n.Children, child)
}

// InsertAt places child at the 1-based declared number num. Missing lower
// numbers are filled with empty placeholders of the child's kind; the child
// list never shrinks.
func (n *Node) InsertAt(num int, child *Node) error {
	if n.Kind != Container {
		return fmt.Errorf("insert into %s node", n.Kind)
	}
	if num < 1 {
		return fmt.Errorf("declared number %d: must be >= 1", num)
	}
	for len(n.Children) < num {
		n.Children = append(n.Children, &Node{Kind: child.Kind, Placeholder: true})
	}
	n.Children[num-1] = child
	return nil
}

// Empty reports whether the node projects to no content.
func (n *Node) Empty() bool {
	if n == nil {
		return true
	}
	if n.Kind == Leaf {
		return n.Text == ""
	}
	for _, c := range n.Children {
		if !c.Empty() {
			return false
		}
	}
	return true
}

// Depth returns the number of container levels above the leaves along the
// deepest path.
func (n *Node) Depth() int {
	if n == nil || n.Kind == Leaf {
		return 0
	}
	best := 1
	for _, c := range n.Children {
		if c.Kind == Container {
			if d := 1 + c.Depth(); d > best {
				best = d
			}
		}
	}
	return best
}

// Project converts the tree into nested []any / string values, the shape
// persisted as a version's content.
func (n *Node) Project() any {
	if n == nil {
		return []any{}
	}
	if n.Kind == Leaf {
		return n.Text
	}
	out := make([]any, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.Project()
	}
	return out
}

// Strings returns the texts of a container's leaf children. Container
// children project to "".
func (n *Node) Strings() []string {
	out := make([]string, len(n.Children))
	for i, c := range n.Children {
		if c.Kind == Leaf {
			out[i] = c.Text
		}
	}
	return out
}

// TrimTrailing drops empty strings from the end of ss. Interior gaps are
// kept. An all-empty slice reduces to length zero.
func TrimTrailing(ss []string) []string {
	end := len(ss)
	for end > 0 && ss[end-1] == "" {
		end--
	}
	return ss[:end]
}

// CleanTitle turns a header line such as "ACT I. Scene-2." into a node title.
func CleanTitle(s string) string {
	s = strings.NewReplacer("-", " ", ".", " ").Replace(s)
	return strings.TrimSpace(s)
}
