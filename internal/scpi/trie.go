// Package scpi implements the SCPI (Standard Commands for Programmable
// Instruments) command trie, byte-level parser, typed parameter coercion,
// and dispatcher described in spec.md §4.6-4.9 (components C8-C11).
package scpi

// Node is a single trie node: one character, an optional terminal marker
// pointing at a command table index, and its children.
type Node struct {
	char         byte
	terminal     bool
	commandIndex int
	children     []*Node
}

func newNode(c byte) *Node {
	return &Node{char: c, commandIndex: -1}
}

// child performs the linear, case-insensitive scan over this node's
// children described in §4.6 — child counts are small (typically <= 26),
// so a slice scan beats a map.
func (n *Node) child(c byte) *Node {
	for _, ch := range n.children {
		if asciiFold(ch.char) == asciiFold(c) {
			return ch
		}
	}
	return nil
}

func (n *Node) childOrCreate(c byte) *Node {
	if existing := n.child(c); existing != nil {
		return existing
	}
	child := newNode(c)
	n.children = append(n.children, child)
	return child
}

func asciiFold(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// Child descends to n's child matching c, case-insensitively, or returns
// nil if there is none — the "returns next node or absent" lookup of §4.6.
func (n *Node) Child(c byte) *Node { return n.child(c) }

// Terminal reports whether n marks the end of a recognized command and, if
// so, which command table index it resolves to.
func (n *Node) Terminal() (commandIndex int, ok bool) {
	return n.commandIndex, n.terminal
}

// Trie is the immutable, precomputed command trie of §4.6 (C8). A Trie is
// safe for concurrent lookups once built; nothing after NewTrie mutates it.
type Trie struct {
	root *Node
}

// Root returns the trie's root node, the starting point for char-by-char
// descent.
func (t *Trie) Root() *Node { return t.root }

// NewTrie builds a trie from command names. Name follows the classic SCPI
// mnemonic casing convention: uppercase letters are the required
// abbreviation, lowercase letters are an optional extension, and any other
// character (':', '?', digits) is always required in both spellings. Both
// the full and abbreviated forms of each name are inserted, sharing
// whatever prefix they happen to have in common — "MEASure:VOLTage?"
// inserts both "measure:voltage?" and "MEAS:VOLT?", which share only the
// "meas" prefix before diverging.
//
// This builds the trie at runtime from a command table. cmd/scpigen (§4.6's
// "offline generator") converts a YAML specification into Go source for the
// command descriptor table only; the trie for that table is still built by
// this function, through BuildCommandTable.
func NewTrie(names []string) *Trie {
	t := &Trie{root: newNode(0)}
	for index, name := range names {
		full, abbr := spellings(name)
		t.insert(full, index)
		if abbr != full {
			t.insert(abbr, index)
		}
	}
	return t
}

func (t *Trie) insert(s string, commandIndex int) {
	node := t.root
	for i := 0; i < len(s); i++ {
		node = node.childOrCreate(s[i])
	}
	node.terminal = true
	node.commandIndex = commandIndex
}

// spellings splits a mixed-case command name into its full and abbreviated
// spellings.
func spellings(name string) (full, abbr string) {
	fullB := make([]byte, 0, len(name))
	abbrB := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		fullB = append(fullB, c)
		if c >= 'a' && c <= 'z' {
			continue // optional extension letter, abbreviation skips it
		}
		abbrB = append(abbrB, c)
	}
	return string(fullB), string(abbrB)
}
