package extract

import (
	stdxml "encoding/xml"

	"github.com/beevik/etree"

	"github.com/clinmap/clinmap-go/internal/errors"
)

// ParseDocument parses raw XML bytes into a DOM. Parse failures are returned
// as MalformedDocument errors carrying the parser's line number; the column
// is -1 because encoding/xml does not expose one. The position must reach
// the caller verbatim, it is part of the user-visible contract.
func ParseDocument(data []byte, path string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		line := -1
		var syntaxErr *stdxml.SyntaxError
		if errors.As(err, &syntaxErr) {
			line = syntaxErr.Line
		}
		return nil, errors.Newf("%w: %v", errors.ErrMalformedDocument, err).
			Component("extract").
			Category(errors.CategoryDocumentParsing).
			DocumentContext(path, line, -1).
			Build()
	}
	if doc.Root() == nil {
		return nil, errors.Newf("%w: document has no root element", errors.ErrMalformedDocument).
			Component("extract").
			Category(errors.CategoryDocumentParsing).
			DocumentContext(path, -1, -1).
			Build()
	}
	return doc, nil
}

// FindDescendants walks el depth-first and collects every descendant element
// with the given local name, ignoring namespace prefixes. This mirrors
// matching against the root element's namespace: documents either qualify
// all structural elements or none of them.
func FindDescendants(el *etree.Element, localName string) []*etree.Element {
	var found []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == localName {
			found = append(found, child)
		}
		found = append(found, FindDescendants(child, localName)...)
	}
	return found
}
