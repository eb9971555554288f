// Package sharecard computes the geometry of the shareable image card: wrapped
// text, font sizes, card dimensions and baseline offsets. It also turns that
// geometry into an overlay recipe for an external image-transformation service.
//
// Everything here is pure. The same inputs always produce the same Spec and Recipe.
package sharecard
