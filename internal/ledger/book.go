package ledger

import "github.com/nao1215/docketrocket/internal/model"

// Book is the in-memory ledger: records in discovery order plus a URL index.
// A Book is owned by one goroutine at a time.
type Book struct {
	records []model.DocumentRecord
	seen    map[string]struct{}
}

// NewBook creates a Book from previously stored records. Every stored row
// is kept, duplicates included, so saving the book never shrinks the ledger.
func NewBook(records []model.DocumentRecord) *Book {
	b := &Book{
		records: make([]model.DocumentRecord, len(records)),
		seen:    make(map[string]struct{}, len(records)),
	}
	copy(b.records, records)
	for _, rec := range records {
		b.seen[rec.URL] = struct{}{}
	}
	return b
}

// Merge appends records whose URL is not yet known and returns the ones
// that were added, in input order. Duplicates within incoming are added once.
func (b *Book) Merge(incoming []model.DocumentRecord) []model.DocumentRecord {
	var added []model.DocumentRecord
	for _, rec := range incoming {
		if _, ok := b.seen[rec.URL]; ok {
			continue
		}
		b.seen[rec.URL] = struct{}{}
		b.records = append(b.records, rec)
		added = append(added, rec)
	}
	return added
}

// Has reports whether url is in the book.
func (b *Book) Has(url string) bool {
	_, ok := b.seen[url]
	return ok
}

// Len returns the number of records, stored duplicates included.
func (b *Book) Len() int {
	return len(b.records)
}

// Records returns a copy of the records in discovery order.
func (b *Book) Records() []model.DocumentRecord {
	out := make([]model.DocumentRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Unique returns records with duplicate URLs removed, keeping the first
// occurrence of each.
func Unique(records []model.DocumentRecord) []model.DocumentRecord {
	b := NewBook(nil)
	b.Merge(records)
	return b.Records()
}
