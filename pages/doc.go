// Package pages flattens the PDF page tree.
//
// [PageTree] walks /Kids from the root /Pages dictionary and yields one
// [Page] per leaf in document order. Resources, MediaBox, CropBox and
// Rotate are inherited from every ancestor, nearest first.
//
//	tree := pages.NewPageTree(root, resolver)
//	page, _ := tree.GetPage(0)
//	content, _ := page.ContentData()
//
// Objects are dereferenced through an [ObjectResolver], which the reader
// package implements.
package pages
