package types

import "fmt"

// Passage is a single scripture verse with its source reference.
type Passage struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Text    string `json:"text"`
}

// Ref formats the canonical reference, e.g. "John 3:16".
func (p Passage) Ref() string {
	return fmt.Sprintf("%s %d:%d", p.Book, p.Chapter, p.Verse)
}

// String renders the passage with its reference for prompt insertion.
func (p Passage) String() string {
	return fmt.Sprintf("%s (%s)", p.Text, p.Ref())
}
