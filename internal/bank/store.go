package bank

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
)

// timeLayout keeps stored timestamps fixed-width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrEmpty is returned by Load and Info when no bank has been imported.
var ErrEmpty = errors.New("bank: no bank imported")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS bank_meta (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	bank_id       TEXT NOT NULL,
	source        TEXT,
	cross_domain  TEXT,
	imported_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS traits (
	position      INTEGER PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	description   TEXT
);

CREATE TABLE IF NOT EXISTS facets (
	trait         TEXT NOT NULL,
	position      INTEGER NOT NULL,
	name          TEXT NOT NULL,
	description   TEXT,
	PRIMARY KEY (trait, name),
	FOREIGN KEY (trait) REFERENCES traits(name)
);

CREATE TABLE IF NOT EXISTS correlations (
	row_idx       INTEGER NOT NULL,
	col_idx       INTEGER NOT NULL,
	value         REAL NOT NULL,
	PRIMARY KEY (row_idx, col_idx)
);

CREATE TABLE IF NOT EXISTS abbreviations (
	code          TEXT PRIMARY KEY,
	trait         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	position      INTEGER PRIMARY KEY,
	question_id   TEXT NOT NULL UNIQUE,
	text          TEXT NOT NULL,
	category      TEXT NOT NULL,
	qtype         TEXT
);

CREATE TABLE IF NOT EXISTS choices (
	question_id   TEXT NOT NULL,
	position      INTEGER NOT NULL,
	text          TEXT NOT NULL,
	value         TEXT NOT NULL,
	correlations  TEXT,
	PRIMARY KEY (question_id, position),
	FOREIGN KEY (question_id) REFERENCES questions(question_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	bank_id       TEXT,
	mode          TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	relaxed       INTEGER NOT NULL,
	questions     TEXT NOT NULL,
	started_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS answer_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	question_id   TEXT NOT NULL,
	choice        INTEGER NOT NULL,
	outcome       TEXT NOT NULL,
	value         TEXT,
	action        TEXT,
	reason        TEXT,
	total_weight  REAL,
	scores_json   TEXT,
	direct_json   TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS answer_log_session ON answer_log(session_id, seq);
`
// #endregion schema

// #region store-struct
// Store keeps the question bank, session settings and the answer journal
// in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the answer journal.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region import
// Import replaces the stored bank with reg in one transaction. Sessions and
// the answer journal are kept.
func (s *Store) Import(reg *registry.Registry, source string) (Info, error) {
	crossJSON, err := json.Marshal(reg.CrossDomain)
	if err != nil {
		return Info{}, fmt.Errorf("marshal cross-domain: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Info{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"choices", "questions", "facets", "traits", "correlations", "abbreviations", "bank_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return Info{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	info := Info{
		BankID:     uuid.New().String(),
		Source:     source,
		ImportedAt: time.Now().UTC(),
		Traits:     len(reg.Traits),
		Questions:  len(reg.Questions),
	}

	_, err = tx.Exec(
		`INSERT INTO bank_meta (id, bank_id, source, cross_domain, imported_at) VALUES (1, ?, ?, ?, ?)`,
		info.BankID, nullIfEmpty(source), string(crossJSON), info.ImportedAt.Format(timeLayout),
	)
	if err != nil {
		return Info{}, fmt.Errorf("insert meta: %w", err)
	}

	for i, name := range reg.Traits {
		if _, err := tx.Exec(
			`INSERT INTO traits (position, name, description) VALUES (?, ?, ?)`,
			i, name, nullIfEmpty(reg.TraitDescriptions[name]),
		); err != nil {
			return Info{}, fmt.Errorf("insert trait %s: %w", name, err)
		}
		for j, facet := range reg.Facets[name] {
			if _, err := tx.Exec(
				`INSERT INTO facets (trait, position, name, description) VALUES (?, ?, ?, ?)`,
				name, j, facet, nullIfEmpty(reg.FacetDescription(name, facet)),
			); err != nil {
				return Info{}, fmt.Errorf("insert facet %s:%s: %w", name, facet, err)
			}
			info.Facets++
		}
	}

	for i, row := range reg.Correlations {
		for j, v := range row {
			if v == 0 {
				continue
			}
			if _, err := tx.Exec(
				`INSERT INTO correlations (row_idx, col_idx, value) VALUES (?, ?, ?)`, i, j, v,
			); err != nil {
				return Info{}, fmt.Errorf("insert correlation [%d][%d]: %w", i, j, err)
			}
		}
	}

	for code, trait := range reg.Abbreviations {
		if _, err := tx.Exec(`INSERT INTO abbreviations (code, trait) VALUES (?, ?)`, code, trait); err != nil {
			return Info{}, fmt.Errorf("insert abbreviation %s: %w", code, err)
		}
	}

	for i, q := range reg.Questions {
		if _, err := tx.Exec(
			`INSERT INTO questions (position, question_id, text, category, qtype) VALUES (?, ?, ?, ?, ?)`,
			i, string(q.ID), q.Text, q.Category, nullIfEmpty(q.Type),
		); err != nil {
			return Info{}, fmt.Errorf("insert question %s: %w", q.ID, err)
		}
		for j, c := range q.Choices {
			var corrJSON interface{}
			if len(c.Correlations) > 0 {
				b, err := json.Marshal(c.Correlations)
				if err != nil {
					return Info{}, fmt.Errorf("marshal correlations of %s/%d: %w", q.ID, j, err)
				}
				corrJSON = string(b)
			}
			if _, err := tx.Exec(
				`INSERT INTO choices (question_id, position, text, value, correlations) VALUES (?, ?, ?, ?, ?)`,
				string(q.ID), j, c.Text, c.Value, corrJSON,
			); err != nil {
				return Info{}, fmt.Errorf("insert choice %s/%d: %w", q.ID, j, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Info{}, fmt.Errorf("commit: %w", err)
	}
	return info, nil
}
// #endregion import

// #region info
// Info reports the identity and size of the stored bank.
func (s *Store) Info() (Info, error) {
	var info Info
	var source sql.NullString
	var importedStr string
	err := s.db.QueryRow(`SELECT bank_id, source, imported_at FROM bank_meta WHERE id = 1`).
		Scan(&info.BankID, &source, &importedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, ErrEmpty
	}
	if err != nil {
		return Info{}, fmt.Errorf("get meta: %w", err)
	}
	if source.Valid {
		info.Source = source.String
	}
	info.ImportedAt, _ = time.Parse(timeLayout, importedStr)

	counts := []struct {
		table string
		dst   *int
	}{
		{"traits", &info.Traits},
		{"facets", &info.Facets},
		{"questions", &info.Questions},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + c.table).Scan(c.dst); err != nil {
			return Info{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return info, nil
}
// #endregion info

// #region load
// Load rebuilds a registry from the stored bank.
func (s *Store) Load() (*registry.Registry, error) {
	var crossJSON sql.NullString
	err := s.db.QueryRow(`SELECT cross_domain FROM bank_meta WHERE id = 1`).Scan(&crossJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}

	reg := &registry.Registry{
		Facets:            map[string][]string{},
		TraitDescriptions: registry.Descriptions{},
		FacetDescriptions: registry.Descriptions{},
		Abbreviations:     map[string]string{},
	}
	if crossJSON.Valid && crossJSON.String != "null" {
		if err := json.Unmarshal([]byte(crossJSON.String), &reg.CrossDomain); err != nil {
			return nil, fmt.Errorf("unmarshal cross-domain: %w", err)
		}
	}

	if err := s.loadTraits(reg); err != nil {
		return nil, err
	}
	if err := s.loadCorrelations(reg); err != nil {
		return nil, err
	}
	if err := s.loadQuestions(reg); err != nil {
		return nil, err
	}

	if err := reg.Build(); err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}

func (s *Store) loadTraits(reg *registry.Registry) error {
	rows, err := s.db.Query(`SELECT name, description FROM traits ORDER BY position`)
	if err != nil {
		return fmt.Errorf("list traits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var desc sql.NullString
		if err := rows.Scan(&name, &desc); err != nil {
			return fmt.Errorf("scan trait: %w", err)
		}
		reg.Traits = append(reg.Traits, name)
		if desc.Valid {
			reg.TraitDescriptions[name] = desc.String
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	frows, err := s.db.Query(`SELECT trait, name, description FROM facets ORDER BY trait, position`)
	if err != nil {
		return fmt.Errorf("list facets: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		var trait, name string
		var desc sql.NullString
		if err := frows.Scan(&trait, &name, &desc); err != nil {
			return fmt.Errorf("scan facet: %w", err)
		}
		reg.Facets[trait] = append(reg.Facets[trait], name)
		if desc.Valid {
			reg.FacetDescriptions[trait+":"+name] = desc.String
		}
	}
	if err := frows.Err(); err != nil {
		return err
	}

	arows, err := s.db.Query(`SELECT code, trait FROM abbreviations`)
	if err != nil {
		return fmt.Errorf("list abbreviations: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var code, trait string
		if err := arows.Scan(&code, &trait); err != nil {
			return fmt.Errorf("scan abbreviation: %w", err)
		}
		reg.Abbreviations[code] = trait
	}
	return arows.Err()
}

func (s *Store) loadCorrelations(reg *registry.Registry) error {
	n := len(reg.Traits)
	reg.Correlations = make(registry.Matrix, n)
	for i := range reg.Correlations {
		reg.Correlations[i] = make([]float64, n)
	}

	rows, err := s.db.Query(`SELECT row_idx, col_idx, value FROM correlations`)
	if err != nil {
		return fmt.Errorf("list correlations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var i, j int
		var v float64
		if err := rows.Scan(&i, &j, &v); err != nil {
			return fmt.Errorf("scan correlation: %w", err)
		}
		if i < 0 || i >= n || j < 0 || j >= n {
			return fmt.Errorf("correlation [%d][%d] outside %d traits", i, j, n)
		}
		reg.Correlations[i][j] = v
	}
	return rows.Err()
}

func (s *Store) loadQuestions(reg *registry.Registry) error {
	rows, err := s.db.Query(`SELECT question_id, text, category, qtype FROM questions ORDER BY position`)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	index := map[registry.QuestionID]int{}
	for rows.Next() {
		var q registry.Question
		var id string
		var qtype sql.NullString
		if err := rows.Scan(&id, &q.Text, &q.Category, &qtype); err != nil {
			return fmt.Errorf("scan question: %w", err)
		}
		q.ID = registry.QuestionID(id)
		if qtype.Valid {
			q.Type = qtype.String
		}
		index[q.ID] = len(reg.Questions)
		reg.Questions = append(reg.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := s.db.Query(`SELECT question_id, text, value, correlations FROM choices ORDER BY question_id, position`)
	if err != nil {
		return fmt.Errorf("list choices: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var id string
		var c registry.Choice
		var corrJSON sql.NullString
		if err := crows.Scan(&id, &c.Text, &c.Value, &corrJSON); err != nil {
			return fmt.Errorf("scan choice: %w", err)
		}
		if corrJSON.Valid {
			if err := json.Unmarshal([]byte(corrJSON.String), &c.Correlations); err != nil {
				return fmt.Errorf("unmarshal correlations of %s: %w", id, err)
			}
		}
		i, ok := index[registry.QuestionID(id)]
		if !ok {
			continue
		}
		reg.Questions[i].Choices = append(reg.Questions[i].Choices, c)
	}
	return crows.Err()
}
// #endregion load

// #region sessions
// CreateSession records the settings of a new assessment.
func (s *Store) CreateSession(rec SessionRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	qJSON, err := json.Marshal(rec.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	relaxed := 0
	if rec.Relaxed {
		relaxed = 1
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, bank_id, mode, seed, relaxed, questions, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, nullIfEmpty(rec.BankID), rec.Mode, int64(rec.Seed), relaxed, string(qJSON),
		rec.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves the settings of one assessment.
func (s *Store) GetSession(id string) (SessionRecord, error) {
	var rec SessionRecord
	var bankID sql.NullString
	var seed int64
	var relaxed int
	var qJSON, startedStr string

	err := s.db.QueryRow(
		`SELECT session_id, bank_id, mode, seed, relaxed, questions, started_at
		 FROM sessions WHERE session_id = ?`, id,
	).Scan(&rec.SessionID, &bankID, &rec.Mode, &seed, &relaxed, &qJSON, &startedStr)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	if bankID.Valid {
		rec.BankID = bankID.String
	}
	rec.Seed = uint64(seed)
	rec.Relaxed = relaxed != 0
	if err := json.Unmarshal([]byte(qJSON), &rec.Questions); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	rec.StartedAt, _ = time.Parse(timeLayout, startedStr)
	return rec, nil
}
// #endregion sessions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
