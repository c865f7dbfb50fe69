// Package spatial provides a generic region quad-tree used to answer
// "what is under this point" and "what is inside this viewport" for nodes,
// reroutes and rendered link segments.
//
// # Structure
//
// A [QuadTree] starts as a single root quad. When a leaf holds more than
// [Options.MaxItems] items and is shallower than [Options.MaxDepth], it
// splits into four equal quadrants and pushes down every item that fits
// entirely inside one of them. Items straddling a quadrant boundary stay
// with the parent. Removing items collapses subtrees that fall back under
// the threshold.
//
// # Z-order
//
// Each item carries an insertion sequence. Queries return ids top-most
// first. [QuadTree.Update] keeps an item's place in the stack,
// [QuadTree.Raise] brings it to the front.
//
// # Out-of-bounds items
//
// Items outside the root bounds are kept at the root, so they are still
// found by every query. Once more than MaxItems items sit outside, the tree
// rebuilds itself around the union of all bounds; [Stats] counts rebuilds.
//
// # Complexity
//
// Insert, Remove and Update are O(depth) amortised. Point queries visit one
// quad per level plus the straddling items at each level.
package spatial
