// Package keyword implements the note-scanning arm of the AUD
// phenotype: a curated regex pattern set finds candidate mentions, and
// a declarative exclusion engine suppresses matches that are negated,
// about someone other than the patient, hypothetical, or part of an
// administrative document.
package keyword

// Note is one clinical note. Text may be empty or contain invalid
// UTF-8; both are handled, never fatal.
type Note struct {
	PersonID int64
	NoteID   int64
	Date     string
	Text     string
}

// Match is one inclusion-pattern hit. Offsets are byte offsets into the
// note text.
type Match struct {
	PatternID string
	Start     int
	End       int
	Text      string
}
