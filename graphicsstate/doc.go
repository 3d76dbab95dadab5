// Package graphicsstate tracks the parts of the PDF graphics state that
// place text and rules on a page: the current transformation matrix, the
// text state with its matrices, and paths under construction.
//
// A content stream interpreter drives it operator by operator:
//
//	gs := graphicsstate.NewGraphicsState(pageMatrix)
//	gs.Save()                            // q
//	gs.Concat(graphicsstate.Scale(2, 2)) // cm
//	gs.MoveText(72, 700)                 // Td
//	gs.Restore()                         // Q
//
// Painted paths are reduced to straight device-space segments and
// axis-aligned filled rectangles, which is all rule detection needs.
package graphicsstate
