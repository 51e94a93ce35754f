package readers

// Page is a single extracted unit of a document, ordered by Index.
// A page whose extraction failed carries empty Text and Failed=true;
// partial extraction is preferred to failing the whole document.
type Page struct {
	Index  int
	Text   string
	Failed bool
}

// PageReader extracts the ordered pages of a document.
type PageReader interface {
	CanRead(path string) bool
	ReadPages(path string) ([]Page, error)
}
