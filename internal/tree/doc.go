// Package tree is the shared, eventually-consistent store holding invites and
// game sessions visible to both players.
//
// Paths are slash-separated. A node is a flat set of named children whose
// values are JSON documents; a nested subtree such as games/{id}/submissions
// is a node of its own, so two writers touching different children of the
// same node never overwrite each other. Single-node writes are atomic. There
// are no multi-node transactions; UpdateIf offers a conditional write on one
// node for callers that want to close a read-then-write window.
package tree
