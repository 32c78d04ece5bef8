// Package graph is the freska dataflow engine: typed pins, nodes built from
// templates, validated links and the per-frame evaluation pass.
//
// # Model
//
// Nodes own ordered pins. A pin has a type (Integer, Float, Color, Texture)
// and a kind (Input, Output, Manual). Links connect one Output pin to one
// Input pin of the same type on a different node; an Input pin accepts at
// most one link while an Output pin fans out freely. Manual pins are edited
// by the user and never linked.
//
// Pins, nodes and links share one id space handed out by an IDAllocator.
// Ids are never reused. Cross references (pin to node, link to pin, pin to
// link) are plain ids resolved through the Graph's indexes, so deleting a
// node never leaves a dangling pointer.
//
// # Evaluation
//
// Update runs one frame: every node's Executor computes, then every link
// copies its start value into its end pin. Integer and Float values are
// clamped into the destination pin's range, colors are copied and texture
// handles are shared. The default OrderUnordered visits nodes and links in
// map order, so each hop of a chain may lag one frame behind its upstream.
// OrderTopological visits nodes in dependency order and propagates each
// node's outgoing links right after it computes.
//
// # Concurrency
//
// A Graph is not safe for concurrent use. All mutation and evaluation must
// happen on one goroutine; executors that own background goroutines (such as
// capture producers) synchronise their own state.
package graph
