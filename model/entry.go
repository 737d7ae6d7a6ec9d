package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Symbol is a token of a model entry: a word, a tag, a bin like <V> or
// <V:eats>, or a direction marker (> or <)
type Symbol string

const (
	RightMarker = Symbol(">")
	LeftMarker  = Symbol("<")

	// RootBin names the boundary token in attachment entries
	RootBin = "ROOT"
)

var (
	symbolPattern = regexp.MustCompile(`^(<[-\w$.]+(:[^<>\s|;:]+)?>|[<>]|[^<>\s|;]+)$`)
	binPattern    = regexp.MustCompile(`^<([-\w$.]+)(?::([^<>\s|;:]+))?>$`)
)

// BinSymbol creates the symbol of a bin, restricted to word when it is not
// empty
func BinSymbol(bin, word string) Symbol {
	if word == "" {
		return Symbol("<" + bin + ">")
	}
	return Symbol("<" + bin + ":" + word + ">")
}

// IsValid checks the symbol string is valid
func (s Symbol) IsValid() bool {
	return symbolPattern.MatchString(string(s))
}

// IsBin checks if it is a bin symbol, assuming s.IsValid() == true
func (s Symbol) IsBin() bool {
	return binPattern.MatchString(string(s))
}

// IsDirection checks if it is one of the direction markers
func (s Symbol) IsDirection() bool {
	return s == RightMarker || s == LeftMarker
}

// Bin returns the bin name and the optional word restriction of a bin symbol:
//
//	<V> -> "V", ""
//	<V:eats> -> "V", "eats"
func (s Symbol) Bin() (bin, word string) {
	m := binPattern.FindStringSubmatch(string(s))
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// Entry is one alternative of a model line, either lexical
//
//	dog ::= NN ; -0.3
//
// or an attachment of a dependent bin to a head bin
//
//	<V> ::= > <N> ; -0.4
type Entry struct {
	Left  Symbol
	Right []Symbol
	Score float64
}

// IsLexical returns true for word ::= TAG entries
func (e *Entry) IsLexical() bool {
	return !e.Left.IsBin()
}

// IsRight returns true for attachments of a dependent right of its head
func (e *Entry) IsRight() bool {
	return len(e.Right) == 2 && e.Right[0] == RightMarker
}

// Dependent returns the dependent bin symbol of an attachment entry
func (e *Entry) Dependent() Symbol {
	if len(e.Right) != 2 {
		return ""
	}
	return e.Right[1]
}

// ParseEntry parse entries from string
// The line would be like:
//
//	dog ::= NN ; -0.3 | VB ; -4
//
// Then returns
//
//	[{"dog", ["NN"], -0.3}, {"dog", ["VB"], -4}]
//
// The score defaults to 0 when omitted
func ParseEntry(entryText string) (entries []*Entry, err error) {
	entries = make([]*Entry, 0)
	fields := strings.Split(entryText, "::=")
	if len(fields) != 2 {
		err = errors.New(fmt.Sprintf("ParseEntry: unexpected number of ::= token in '%s'", entryText))
		return
	}

	// Left part
	leftSymbol := Symbol(strings.TrimSpace(fields[0]))
	if !leftSymbol.IsValid() || leftSymbol.IsDirection() {
		err = errors.New(fmt.Sprintf("ParseEntry: '%s': invalid symbol in the left", entryText))
		return
	}

	// Right part
	for _, right := range strings.Split(fields[1], "|") {
		entry := new(Entry)
		entry.Left = leftSymbol

		right = strings.TrimSpace(right)
		fields := strings.Split(right, ";")
		if len(fields) == 2 {
			// Has the score, parse it
			scoreText := strings.TrimSpace(fields[1])
			if entry.Score, err = strconv.ParseFloat(scoreText, 64); err != nil {
				err = errors.New(fmt.Sprintf(
					"ParseEntry: float expected but '%s' found in '%s'",
					scoreText,
					entryText))
				return
			}
		} else if len(fields) != 1 {
			err = errors.New(fmt.Sprintf("ParseEntry: unexpected ';' token in '%s'", entryText))
			return
		}

		// Symbols of this entry
		entry.Right = make([]Symbol, 0)
		for _, symbolString := range strings.Fields(fields[0]) {
			symbol := Symbol(symbolString)
			if !symbol.IsValid() {
				err = errors.New(fmt.Sprintf("ParseEntry: unexpected '%s' in '%s'", symbolString, entryText))
				return
			}
			entry.Right = append(entry.Right, symbol)
		}

		if err = entry.check(); err != nil {
			err = errors.Wrapf(err, "ParseEntry: '%s'", entryText)
			return
		}
		entries = append(entries, entry)
	}

	return
}

// check validates the shape of the right side
func (e *Entry) check() error {
	if e.IsLexical() {
		if len(e.Right) != 1 || e.Right[0].IsBin() || e.Right[0].IsDirection() {
			return errors.New("lexical entry expects a single tag")
		}
		return nil
	}
	if len(e.Right) != 2 || !e.Right[0].IsDirection() || !e.Right[1].IsBin() {
		return errors.New("attachment entry expects a direction and a bin")
	}
	if bin, _ := e.Right[1].Bin(); bin == RootBin {
		return errors.New("ROOT cannot be a dependent")
	}
	return nil
}

// String converts entry to string format
func (e *Entry) String() string {
	symbols := []string{}
	for _, symbol := range e.Right {
		symbols = append(symbols, string(symbol))
	}
	return fmt.Sprintf(
		"%s ::= %s ; %.3f",
		string(e.Left),
		strings.Join(symbols, " "),
		e.Score)
}
