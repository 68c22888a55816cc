package element

// PlainText is a block of text, optionally rendered as a heading.
type PlainText struct {
	base
	content string
	heading bool
}

func NewPlainText(id, content string) *PlainText {
	return &PlainText{base: newBase(id, KindPlainText), content: content}
}

func NewHeading(id, content string) *PlainText {
	return &PlainText{base: newBase(id, KindPlainText), content: content, heading: true}
}

func (e *PlainText) SetContent(content string) {
	e.update(func() bool {
		if e.content == content {
			return false
		}
		e.content = content
		return true
	})
}

func (e *PlainText) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

func (e *PlainText) Serialize() Payload { return e.read(e.render) }

func (e *PlainText) Flush(force bool) (Payload, bool) { return e.flush(force, e.render) }

func (e *PlainText) render() Payload {
	return Payload{"content": e.content, "heading": e.heading}
}
