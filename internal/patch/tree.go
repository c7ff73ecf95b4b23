package patch

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// TreeEdit mutates a parsed tag tree.
type TreeEdit interface {
	Edit(doc *etree.Document) error
}

// TreeEditFunc adapts a function to TreeEdit.
type TreeEditFunc func(doc *etree.Document) error

func (f TreeEditFunc) Edit(doc *etree.Document) error { return f(doc) }

// ApplyTree is Apply for XML files: the pristine document is parsed, edits
// run in order on the tree, and the serialized result replaces file when it
// differs.
func (e *Engine) ApplyTree(file string, backup bool, edits ...TreeEdit) (bool, error) {
	return e.transform(file, backup, func(src []byte) ([]byte, error) {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(src); err != nil {
			return nil, &MalformedError{Path: file, Err: err}
		}
		if doc.Root() == nil {
			return nil, &MalformedError{Path: file, Err: errors.New("no root element")}
		}
		for _, ed := range edits {
			if err := ed.Edit(doc); err != nil {
				return nil, fmt.Errorf("patch %s: %w", file, err)
			}
		}
		return doc.WriteToBytes()
	})
}

// SetText sets the text of every element matching path. At least one
// element must match.
func SetText(path, text string) TreeEdit {
	return TreeEditFunc(func(doc *etree.Document) error {
		elems := doc.FindElements(path)
		if len(elems) == 0 {
			return fmt.Errorf("%w %s", ErrNoElement, path)
		}
		for _, el := range elems {
			el.SetText(text)
		}
		return nil
	})
}

// SetAttr sets attribute key on every element matching path. Matching no
// element is not an error.
func SetAttr(path, key, value string) TreeEdit {
	return TreeEditFunc(func(doc *etree.Document) error {
		for _, el := range doc.FindElements(path) {
			el.CreateAttr(key, value)
		}
		return nil
	})
}

// ReplaceChild adds a copy of child to the first element matching
// parentPath after removing any child with the same tag and the same value
// of attribute key, so an owned node is never duplicated. child must carry
// a non-empty key attribute.
func ReplaceChild(parentPath, key string, child *etree.Element) TreeEdit {
	return TreeEditFunc(func(doc *etree.Document) error {
		parent := doc.FindElement(parentPath)
		if parent == nil {
			return fmt.Errorf("%w %s", ErrNoElement, parentPath)
		}
		id := child.SelectAttrValue(key, "")
		if id == "" {
			return fmt.Errorf("<%s> has no %s attribute to identify it", child.Tag, key)
		}
		for _, old := range parent.SelectElements(child.Tag) {
			if old.SelectAttrValue(key, "") == id {
				parent.RemoveChild(old)
			}
		}
		parent.AddChild(child.Copy())
		return nil
	})
}
