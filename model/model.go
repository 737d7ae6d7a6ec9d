package model

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ling0322/lexparse"
)

const (
	// UnknownWord is the word id 0, it carries the candidates of words not
	// listed in the model
	UnknownWord = "*UNK*"

	// DefaultBoundary is the text of the sentence boundary token
	DefaultBoundary = ".$$."

	// anyWord matches every word in an attachment key
	anyWord = -1

	// boundaryHead is the head bin of attachments to the boundary token
	boundaryHead = -1
)

type attachKey struct {
	head, dep         int
	headWord, depWord int
	right             bool
}

// Model is a lexicalized attachment model. It is both the lexicon and the
// grammar oracle of a lexparse.Parser
type Model struct {
	Words *Vocabulary
	Tags  *Vocabulary
	Bins  *Vocabulary

	// tag id -> bin id
	tagBins []int

	lexicon     map[int][]lexparse.TagScore
	attachments map[attachKey]float64

	distBounds   []int
	penalties    []float64
	defaultScore float64
	boundary     int
}

// NewModel creates an empty model. Attachments not listed are impossible
// until SetDefaultScore is called
func NewModel() *Model {
	return &Model{
		Words:        NewVocabulary(UnknownWord, DefaultBoundary),
		Tags:         NewVocabulary(),
		Bins:         NewVocabulary(),
		tagBins:      []int{},
		lexicon:      map[int][]lexparse.TagScore{},
		attachments:  map[attachKey]float64{},
		defaultScore: math.Inf(-1),
		boundary:     1,
	}
}

// AddBin declares a bin and moves the given tags into it
func (m *Model) AddBin(name string, tags ...string) error {
	if name == RootBin {
		return errors.New(fmt.Sprintf("AddBin: %s is reserved", RootBin))
	}
	bin := m.Bins.Add(name)
	for _, tag := range tags {
		m.setTagBin(m.Tags.Add(tag), bin)
	}
	return nil
}

func (m *Model) setTagBin(tag, bin int) {
	for len(m.tagBins) <= tag {
		m.tagBins = append(m.tagBins, -1)
	}
	m.tagBins[tag] = bin
}

// addTag interns a tag, a tag without a declared bin gets a bin of its own
func (m *Model) addTag(tag string) int {
	id := m.Tags.Add(tag)
	if id >= len(m.tagBins) || m.tagBins[id] < 0 {
		m.setTagBin(id, m.Bins.Add(tag))
	}
	return id
}

// AddLexical sets the score of word having tag
func (m *Model) AddLexical(word, tag string, score float64) {
	wordId := m.Words.Add(word)
	tagId := m.addTag(tag)
	candidates := m.lexicon[wordId]
	for i := range candidates {
		if candidates[i].Tag == tagId {
			candidates[i].Score = score
			return
		}
	}
	m.lexicon[wordId] = append(candidates, lexparse.TagScore{Tag: tagId, Score: score})
}

// AddAttachment sets the score of attaching a dependent bin to a head bin.
// Either bin symbol may restrict the word, like <V:eats>. A <ROOT> head
// attaches to the sentence boundary whatever the direction
func (m *Model) AddAttachment(head, dep Symbol, right bool, score float64) error {
	if !head.IsBin() || !dep.IsBin() {
		return errors.New(fmt.Sprintf("AddAttachment: bins expected but '%s', '%s' found", head, dep))
	}
	key := attachKey{headWord: anyWord, depWord: anyWord, right: right}
	headBin, headWord := head.Bin()
	if headBin == RootBin {
		key.head = boundaryHead
		key.right = false
	} else {
		key.head = m.Bins.Add(headBin)
	}
	if headWord != "" {
		key.headWord = m.Words.Add(headWord)
	}

	depBin, depWord := dep.Bin()
	if depBin == RootBin {
		return errors.New("AddAttachment: ROOT cannot be a dependent")
	}
	key.dep = m.Bins.Add(depBin)
	if depWord != "" {
		key.depWord = m.Words.Add(depWord)
	}
	m.attachments[key] = score
	return nil
}

// AddEntry adds a parsed entry to the model
func (m *Model) AddEntry(entry *Entry) error {
	if entry.IsLexical() {
		m.AddLexical(string(entry.Left), string(entry.Right[0]), entry.Score)
		return nil
	}
	return m.AddAttachment(entry.Left, entry.Dependent(), entry.IsRight(), entry.Score)
}

// SetDistanceBins sets the upper bounds of the distance bins, distances above
// the last bound share the final bin
func (m *Model) SetDistanceBins(bounds []int) error {
	for i, b := range bounds {
		if b < 1 || (i > 0 && b <= bounds[i-1]) {
			return errors.New(fmt.Sprintf("SetDistanceBins: bounds must be positive and increasing: %v", bounds))
		}
	}
	m.distBounds = append([]int(nil), bounds...)
	return nil
}

// SetPenalties sets the score added to every attachment of each distance bin.
// Bins past the list reuse its last value
func (m *Model) SetPenalties(penalties []float64) {
	m.penalties = append([]float64(nil), penalties...)
}

// SetDefaultScore sets the score of attachments not listed in the model
func (m *Model) SetDefaultScore(score float64) {
	m.defaultScore = score
}

// SetBoundary sets the text of the boundary token
func (m *Model) SetBoundary(word string) {
	m.boundary = m.Words.Add(word)
}

// BoundaryWord returns the word id of the boundary token, to be used as
// lexparse.Config.BoundaryWord
func (m *Model) BoundaryWord() int {
	return m.boundary
}

// Candidates returns the lexical entries of word, or the ones of the unknown
// word when it has none
func (m *Model) Candidates(word, position int, context string) []lexparse.TagScore {
	if candidates, ok := m.lexicon[word]; ok {
		return candidates
	}
	return m.lexicon[0]
}

// NumTagBins returns the number of bins
func (m *Model) NumTagBins() int {
	return m.Bins.Len()
}

// TagBin returns the bin of tag, -1 for unknown tags
func (m *Model) TagBin(tag int) int {
	if tag < 0 || tag >= len(m.tagBins) {
		return -1
	}
	return m.tagBins[tag]
}

// NumDistBins returns the number of distance bins
func (m *Model) NumDistBins() int {
	return len(m.distBounds) + 1
}

// DistanceBin returns the first bin whose bound is not below distance
func (m *Model) DistanceBin(distance int) int {
	for i, b := range m.distBounds {
		if distance <= b {
			return i
		}
	}
	return len(m.distBounds)
}

// AttachmentScore looks the attachment up from the most to the least specific
// key: both words, head word, dependent word, then bins only
func (m *Model) AttachmentScore(headWord, headBin, depWord, depBin int, right bool, distBin int) float64 {
	key := attachKey{head: headBin, dep: depBin, right: right}
	boundary := headBin == m.NumTagBins()
	if boundary {
		key.head = boundaryHead
		key.right = false
	}

	score := m.defaultScore
	for _, words := range [][2]int{
		{headWord, depWord},
		{headWord, anyWord},
		{anyWord, depWord},
		{anyWord, anyWord},
	} {
		key.headWord, key.depWord = words[0], words[1]
		if s, ok := m.attachments[key]; ok {
			score = s
			break
		}
	}
	if boundary || len(m.penalties) == 0 {
		return score
	}
	if distBin >= len(m.penalties) {
		distBin = len(m.penalties) - 1
	}
	return score + m.penalties[distBin]
}

// TagBinLabel returns the bin name
func (m *Model) TagBinLabel(bin int) string {
	if bin == m.NumTagBins() {
		return RootBin
	}
	return m.Bins.Symbol(bin)
}

// Sentence converts tokens like "dog" or "dog/NN" into a sentence. Unknown
// words map to the unknown word id, an unknown gold tag is an error
func (m *Model) Sentence(tokens []string) (lexparse.Sentence, error) {
	sentence := make(lexparse.Sentence, 0, len(tokens))
	for _, token := range tokens {
		text, tag := token, ""
		if i := strings.LastIndex(token, "/"); i > 0 && i < len(token)-1 {
			text, tag = token[:i], token[i+1:]
		}

		tok := lexparse.Token{Text: text}
		if id, ok := m.Words.Id(text); ok {
			tok.Word = id
		}
		if tag != "" {
			id, ok := m.Tags.Id(tag)
			if !ok {
				return nil, errors.New(fmt.Sprintf("Sentence: unknown tag '%s' in '%s'", tag, token))
			}
			tok = tok.WithTag(id)
		}
		sentence = append(sentence, tok)
	}
	return sentence, nil
}

// ParseSentence splits line by whitespace and converts it with Sentence
func (m *Model) ParseSentence(line string) (lexparse.Sentence, error) {
	return m.Sentence(strings.Fields(line))
}

// ParseModel parses a model from string. Directives are applied before the
// entries wherever they appear
//
//	;!bins: N=NN,NNS V=VB,VBZ
//	;!distance: 1 2 5
//	;!penalty: 0 -0.5 -1
//	;!default: -10
//	;!boundary: .$$.
//	dog ::= NN ; -0.3 | VB ; -4
//	<V> ::= > <N> ; -0.4
func ParseModel(modelText string) (m *Model, err error) {
	m = NewModel()
	lines := strings.Split(modelText, "\n")

	// Directives
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, ";!") {
			continue
		}
		if err = m.directive(line); err != nil {
			return nil, errors.Wrapf(err, "ParseModel: line %d", i+1)
		}
	}

	// Entries
	for i, line := range lines {
		line = strings.TrimSpace(line)

		// Comments
		if line == "" || line[0] == ';' {
			continue
		}

		entries, err := ParseEntry(line)
		if err != nil {
			return nil, errors.Wrapf(err, "ParseModel: line %d", i+1)
		}
		for _, entry := range entries {
			if err = m.AddEntry(entry); err != nil {
				return nil, errors.Wrapf(err, "ParseModel: line %d", i+1)
			}
		}
	}
	return m, nil
}

// LoadFile reads and parses a text model
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "LoadFile")
	}
	return ParseModel(string(data))
}

func (m *Model) directive(line string) error {
	i := strings.Index(line, ":")
	if i < 0 {
		return errors.New(fmt.Sprintf("unexpected directive '%s'", line))
	}
	name := strings.TrimSpace(line[len(";!"):i])
	args := strings.Fields(line[i+1:])

	switch name {
	case "bins":
		for _, arg := range args {
			fields := strings.Split(arg, "=")
			if len(fields) != 2 || fields[0] == "" || !Symbol(fields[0]).IsValid() {
				return errors.New(fmt.Sprintf("unexpected bin declaration '%s'", arg))
			}
			tags := []string{}
			for _, tag := range strings.Split(fields[1], ",") {
				if tag != "" {
					tags = append(tags, tag)
				}
			}
			if err := m.AddBin(fields[0], tags...); err != nil {
				return err
			}
		}
	case "distance":
		bounds := []int{}
		for _, arg := range args {
			b, err := strconv.Atoi(arg)
			if err != nil {
				return errors.New(fmt.Sprintf("integer expected but '%s' found", arg))
			}
			bounds = append(bounds, b)
		}
		return m.SetDistanceBins(bounds)
	case "penalty":
		penalties := []float64{}
		for _, arg := range args {
			p, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return errors.New(fmt.Sprintf("float expected but '%s' found", arg))
			}
			penalties = append(penalties, p)
		}
		m.SetPenalties(penalties)
	case "default":
		if len(args) != 1 {
			return errors.New("one default score expected")
		}
		score, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return errors.New(fmt.Sprintf("float expected but '%s' found", args[0]))
		}
		m.SetDefaultScore(score)
	case "boundary":
		if len(args) != 1 {
			return errors.New("one boundary word expected")
		}
		m.SetBoundary(args[0])
	default:
		return errors.New(fmt.Sprintf("unknown directive '%s'", name))
	}
	return nil
}
