// Package document assembles deal documents from computed financial
// packages and prose, and packs them into text or Markdown bodies.
package document

// Document is a rendered-format-independent document tree.
type Document struct {
	Title    string
	Subtitle string
	Kind     string
	DealID   string
	Sections []Section
}

// Section is a headed group of blocks.
type Section struct {
	Heading string
	Blocks  []Block
}

// Block is a unit of section content.
type Block interface {
	block()
}

// Paragraph is running prose.
type Paragraph struct {
	Text string
}

// Definition is a labelled value, e.g. "Maturity Date: January 15, 2030".
type Definition struct {
	Term  string
	Value string
}

// Definitions is a list of labelled values.
type Definitions struct {
	Items []Definition
}

// Table is a grid of cells. RightAlign marks numeric columns.
type Table struct {
	Caption    string
	Headers    []string
	Rows       [][]string
	RightAlign []bool
}

// Signature is a signature line for one party.
type Signature struct {
	Party string
	Name  string
	Title string
}

func (Paragraph) block()   {}
func (Definitions) block() {}
func (Table) block()       {}
func (Signature) block()   {}

// AddSection appends a section and returns it for further blocks.
func (d *Document) AddSection(heading string, blocks ...Block) *Section {
	d.Sections = append(d.Sections, Section{Heading: heading, Blocks: blocks})
	return &d.Sections[len(d.Sections)-1]
}

// Add appends blocks to the section.
func (s *Section) Add(blocks ...Block) *Section {
	s.Blocks = append(s.Blocks, blocks...)
	return s
}

// Section returns the first section with the heading, or nil.
func (d *Document) Section(heading string) *Section {
	for i := range d.Sections {
		if d.Sections[i].Heading == heading {
			return &d.Sections[i]
		}
	}
	return nil
}
