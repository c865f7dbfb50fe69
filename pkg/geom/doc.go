// Package geom provides the 2D primitives shared by the graph model,
// the spatial index and the render-support layer.
//
// Coordinates are canvas units with Y growing downwards. A [Rect] is
// anchored at its top-left corner and carries a width and height, which is
// the form workflow documents use for node and group bounds.
//
// Point containment is half-open: a point on the left or top edge is
// inside, a point on the right or bottom edge is not.
package geom
