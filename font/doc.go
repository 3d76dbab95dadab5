// Package font decodes the strings a PDF content stream shows.
//
// [Load] reads a font dictionary into a [Font]. Simple fonts decode one
// byte per code through their /Encoding, which may be a base encoding
// such as [WinAnsiEncoding] with a /Differences array on top. Composite
// (Type 0) fonts split strings into multi-byte codes using the codespace
// ranges of their encoding [CMap], or two bytes for the Identity CMaps.
//
// A /ToUnicode CMap always takes precedence. Codes that map to nothing
// decode to "(cid:N)", which lets callers measure how much of a page's
// text layer is unreadable.
//
//	f, err := font.Load(dict, resolve)
//	for _, g := range f.Decode(raw) {
//	    fmt.Println(g.Text, g.Width)
//	}
//
// Glyph widths come from /Widths or /W, and from built-in metrics for the
// standard fonts when a dictionary carries none.
package font
