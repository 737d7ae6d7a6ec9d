package model

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ling0322/lexparse"

	_ "modernc.org/sqlite"
)

const schema = `
DROP TABLE IF EXISTS bins;
DROP TABLE IF EXISTS tags;
DROP TABLE IF EXISTS words;
DROP TABLE IF EXISTS lexicon;
DROP TABLE IF EXISTS attachments;
DROP TABLE IF EXISTS settings;
CREATE TABLE bins (
    id    INTEGER PRIMARY KEY,
    name  TEXT NOT NULL
);
CREATE TABLE tags (
    id    INTEGER PRIMARY KEY,
    name  TEXT NOT NULL,
    bin   INTEGER NOT NULL
);
CREATE TABLE words (
    id    INTEGER PRIMARY KEY,
    word  TEXT NOT NULL
);
CREATE TABLE lexicon (
    word   INTEGER NOT NULL,
    pos    INTEGER NOT NULL,
    tag    INTEGER NOT NULL,
    score  REAL,
    PRIMARY KEY(word, pos)
);
CREATE TABLE attachments (
    head_bin   INTEGER NOT NULL,
    head_word  INTEGER NOT NULL,
    dep_bin    INTEGER NOT NULL,
    dep_word   INTEGER NOT NULL,
    rightward  INTEGER NOT NULL,
    score      REAL
);
CREATE TABLE settings (
    name   TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);
`

// nullScore stores impossible scores as NULL
func nullScore(score float64) sql.NullFloat64 {
	if math.IsInf(score, -1) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: score, Valid: true}
}

func fromNullScore(score sql.NullFloat64) float64 {
	if !score.Valid {
		return math.Inf(-1)
	}
	return score.Float64
}

// SaveSQLite writes the model into the sqlite database at path, replacing
// any model stored there
func SaveSQLite(path string, m *Model) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrap(err, "SaveSQLite: open")
	}
	defer db.Close()
	return m.Save(db)
}

// LoadSQLite reads a model written by SaveSQLite
func LoadSQLite(path string) (*Model, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "LoadSQLite: open")
	}
	defer db.Close()
	return Load(db)
}

// Save writes the model in a single transaction
func (m *Model) Save(db *sql.DB) (err error) {
	if _, err = db.Exec(schema); err != nil {
		return errors.Wrap(err, "model schema")
	}
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "model save")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for id, name := range m.Bins.Symbols {
		if _, err = tx.Exec(`INSERT INTO bins (id, name) VALUES (?, ?)`, id, name); err != nil {
			return errors.Wrap(err, "save bins")
		}
	}
	for id, name := range m.Tags.Symbols {
		if _, err = tx.Exec(`INSERT INTO tags (id, name, bin) VALUES (?, ?, ?)`, id, name, m.TagBin(id)); err != nil {
			return errors.Wrap(err, "save tags")
		}
	}
	for id, word := range m.Words.Symbols {
		if _, err = tx.Exec(`INSERT INTO words (id, word) VALUES (?, ?)`, id, word); err != nil {
			return errors.Wrap(err, "save words")
		}
		for pos, candidate := range m.lexicon[id] {
			if _, err = tx.Exec(
				`INSERT INTO lexicon (word, pos, tag, score) VALUES (?, ?, ?, ?)`,
				id, pos, candidate.Tag, nullScore(candidate.Score),
			); err != nil {
				return errors.Wrap(err, "save lexicon")
			}
		}
	}
	for key, score := range m.attachments {
		if _, err = tx.Exec(
			`INSERT INTO attachments (head_bin, head_word, dep_bin, dep_word, rightward, score)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			key.head, key.headWord, key.dep, key.depWord, key.right, nullScore(score),
		); err != nil {
			return errors.Wrap(err, "save attachments")
		}
	}

	bounds := make([]string, len(m.distBounds))
	for i, b := range m.distBounds {
		bounds[i] = strconv.Itoa(b)
	}
	penalties := make([]string, len(m.penalties))
	for i, p := range m.penalties {
		penalties[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	settings := map[string]string{
		"distance": strings.Join(bounds, " "),
		"penalty":  strings.Join(penalties, " "),
		"default":  strconv.FormatFloat(m.defaultScore, 'g', -1, 64),
		"boundary": strconv.Itoa(m.boundary),
	}
	for key, value := range settings {
		if _, err = tx.Exec(`INSERT INTO settings (name, value) VALUES (?, ?)`, key, value); err != nil {
			return errors.Wrap(err, "save settings")
		}
	}
	return tx.Commit()
}

// Load reads a model written by Save
func Load(db *sql.DB) (*Model, error) {
	m := NewModel()

	if err := loadVocabulary(db, `SELECT name FROM bins ORDER BY id`, m.Bins); err != nil {
		return nil, errors.Wrap(err, "load bins")
	}
	if err := loadVocabulary(db, `SELECT word FROM words ORDER BY id`, m.Words); err != nil {
		return nil, errors.Wrap(err, "load words")
	}

	rows, err := db.Query(`SELECT name, bin FROM tags ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "load tags")
	}
	for rows.Next() {
		var name string
		var bin int
		if err := rows.Scan(&name, &bin); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan tags")
		}
		m.setTagBin(m.Tags.Add(name), bin)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "load tags")
	}

	rows, err = db.Query(`SELECT word, tag, score FROM lexicon ORDER BY word, pos`)
	if err != nil {
		return nil, errors.Wrap(err, "load lexicon")
	}
	for rows.Next() {
		var word, tag int
		var score sql.NullFloat64
		if err := rows.Scan(&word, &tag, &score); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan lexicon")
		}
		m.lexicon[word] = append(m.lexicon[word], lexparse.TagScore{Tag: tag, Score: fromNullScore(score)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "load lexicon")
	}

	rows, err = db.Query(`SELECT head_bin, head_word, dep_bin, dep_word, rightward, score FROM attachments`)
	if err != nil {
		return nil, errors.Wrap(err, "load attachments")
	}
	for rows.Next() {
		var key attachKey
		var score sql.NullFloat64
		if err := rows.Scan(&key.head, &key.headWord, &key.dep, &key.depWord, &key.right, &score); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan attachments")
		}
		m.attachments[key] = fromNullScore(score)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "load attachments")
	}

	if err := m.loadSettings(db); err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	return m, nil
}

func loadVocabulary(db *sql.DB, query string, v *Vocabulary) error {
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return err
		}
		v.Add(symbol)
	}
	return rows.Err()
}

func (m *Model) loadSettings(db *sql.DB) error {
	rows, err := db.Query(`SELECT name, value FROM settings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return err
	}

	bounds := []int{}
	for _, field := range strings.Fields(settings["distance"]) {
		b, err := strconv.Atoi(field)
		if err != nil {
			return err
		}
		bounds = append(bounds, b)
	}
	if err := m.SetDistanceBins(bounds); err != nil {
		return err
	}

	penalties := []float64{}
	for _, field := range strings.Fields(settings["penalty"]) {
		p, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return err
		}
		penalties = append(penalties, p)
	}
	m.SetPenalties(penalties)

	if value, ok := settings["default"]; ok {
		score, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		m.SetDefaultScore(score)
	}
	if value, ok := settings["boundary"]; ok {
		boundary, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		m.boundary = boundary
	}
	return nil
}
