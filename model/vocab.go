package model

// Vocabulary maps symbols to dense integer ids and back
type Vocabulary struct {
	// Map from symbol to its id
	Ids map[string]int

	// Map from id to symbol
	Symbols []string
}

// NewVocabulary creates a vocabulary whose first ids are the reserved
// symbols, in order
func NewVocabulary(reserved ...string) *Vocabulary {
	v := &Vocabulary{
		Ids:     map[string]int{},
		Symbols: []string{},
	}
	for _, s := range reserved {
		v.Add(s)
	}
	return v
}

// Add get the id of given symbol. If the symbol not exist in vocabulary
// insert a new one
func (v *Vocabulary) Add(s string) int {
	if id, ok := v.Ids[s]; ok {
		return id
	}
	id := len(v.Symbols)
	v.Ids[s] = id
	v.Symbols = append(v.Symbols, s)
	return id
}

// Id returns the id of a known symbol
func (v *Vocabulary) Id(s string) (int, bool) {
	id, ok := v.Ids[s]
	return id, ok
}

// Symbol returns the symbol of id, "" when the id is unknown
func (v *Vocabulary) Symbol(id int) string {
	if id < 0 || id >= len(v.Symbols) {
		return ""
	}
	return v.Symbols[id]
}

// Len returns the number of symbols
func (v *Vocabulary) Len() int {
	return len(v.Symbols)
}
