// Copyright 2025 James Ross
// SQLite adapter for the repository contract, using database/sql with
// mattn/go-sqlite3 — the embedded/dev counterpart to the Postgres
// adapter, per SPEC_FULL.md's domain stack.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/awehrman/peas-sub008/internal/pattern"
)

// SQLite implements Repository and pattern.Store against an embedded
// SQLite database file.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) CreateNote(ctx context.Context, parsedHTML string) (Note, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO notes (content) VALUES (?)`, parsedHTML)
	if err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Note{}, fmt.Errorf("read note id: %w", err)
	}
	return Note{ID: fmt.Sprintf("%d", id), Content: parsedHTML}, nil
}

func (s *SQLite) GetNoteWithEvernoteMetadata(ctx context.Context, noteID string) (*Note, error) {
	var n Note
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, content FROM notes WHERE id = ?`, noteID,
	).Scan(&n.ID, &n.Title, &n.Content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM evernote_tags WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, fmt.Errorf("get evernote tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		n.EvernoteTags = append(n.EvernoteTags, tag)
	}
	return &n, rows.Err()
}

func (s *SQLite) SaveCategoryToNote(ctx context.Context, noteID, categoryName string) (Category, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, categoryName)
	if err != nil {
		return Category{}, fmt.Errorf("save category: %w", err)
	}
	var c Category
	err = s.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE name = ?`, categoryName).
		Scan(&c.ID, &c.Name)
	if err != nil {
		return Category{}, fmt.Errorf("read category: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE notes SET category_id = ? WHERE id = ?`, c.ID, noteID); err != nil {
		return Category{}, fmt.Errorf("link category to note: %w", err)
	}
	return c, nil
}

func (s *SQLite) SaveTagsToNote(ctx context.Context, noteID string, tagNames []string) ([]Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save tags tx: %w", err)
	}
	defer tx.Rollback()

	out := make([]Tag, 0, len(tagNames))
	for _, name := range tagNames {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return nil, fmt.Errorf("save tag %q: %w", name, err)
		}
		var t Tag
		if err := tx.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("read tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`, noteID, t.ID); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", name, err)
		}
		out = append(out, t)
	}
	return out, tx.Commit()
}

func (s *SQLite) GetInstructionCompletionStatus(ctx context.Context, noteID string) (InstructionCompletionStatus, error) {
	var st InstructionCompletionStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT
			sum(CASE WHEN completed THEN 1 ELSE 0 END), count(*)
		 FROM instruction_lines WHERE note_id = ?`, noteID,
	).Scan(&st.CompletedInstructions, &st.TotalInstructions)
	if err != nil {
		return st, fmt.Errorf("get instruction completion: %w", err)
	}
	st.Progress = fmt.Sprintf("%d/%d", st.CompletedInstructions, st.TotalInstructions)
	st.IsComplete = st.TotalInstructions > 0 && st.CompletedInstructions == st.TotalInstructions
	return st, nil
}

func (s *SQLite) GetIngredientCompletionStatus(ctx context.Context, noteID string) (IngredientCompletionStatus, error) {
	var st IngredientCompletionStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT
			sum(CASE WHEN completed THEN 1 ELSE 0 END), count(*)
		 FROM ingredient_lines WHERE note_id = ?`, noteID,
	).Scan(&st.CompletedIngredients, &st.TotalIngredients)
	if err != nil {
		return st, fmt.Errorf("get ingredient completion: %w", err)
	}
	st.IsComplete = st.TotalIngredients > 0 && st.CompletedIngredients == st.TotalIngredients
	return st, nil
}

func (s *SQLite) SaveIngredientLine(ctx context.Context, noteID string, lineNumber int, segments []IngredientSegment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save ingredient line tx: %w", err)
	}
	defer tx.Rollback()
	for _, seg := range segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ingredient_segments (note_id, line_number, rule_id, text) VALUES (?, ?, ?, ?)`,
			noteID, lineNumber, seg.RuleID, seg.Text); err != nil {
			return fmt.Errorf("insert ingredient segment: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ingredient_lines SET completed = 1 WHERE note_id = ? AND line_number = ?`,
		noteID, lineNumber); err != nil {
		return fmt.Errorf("mark ingredient line complete: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) SaveInstructionLine(ctx context.Context, noteID string, lineNumber int, text string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE instruction_lines SET text = ?, completed = 1 WHERE note_id = ? AND line_number = ?`,
		text, noteID, lineNumber)
	if err != nil {
		return fmt.Errorf("save instruction line: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertPattern(ctx context.Context, ruleIDs []string, exampleLine string) (pattern.Pattern, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pattern.Pattern{}, fmt.Errorf("begin pattern upsert tx: %w", err)
	}
	defer tx.Rollback()

	key := ruleSequenceKey(ruleIDs)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO patterns (rule_sequence, example_line, occurrence_count) VALUES (?, ?, 1)
		 ON CONFLICT(rule_sequence) DO UPDATE SET occurrence_count = occurrence_count + 1,
		   example_line = CASE WHEN ? != '' THEN ? ELSE example_line END`,
		key, exampleLine, exampleLine, exampleLine); err != nil {
		return pattern.Pattern{}, fmt.Errorf("upsert pattern: %w", err)
	}

	var p pattern.Pattern
	if err := tx.QueryRowContext(ctx,
		`SELECT id, example_line, occurrence_count FROM patterns WHERE rule_sequence = ?`, key,
	).Scan(&p.PatternID, &p.ExampleLine, &p.OccurrenceCount); err != nil {
		return pattern.Pattern{}, fmt.Errorf("read upserted pattern: %w", err)
	}
	p.RuleIDs = ruleIDs
	return p, tx.Commit()
}

func (s *SQLite) LinkIngredientLine(ctx context.Context, ingredientLineID, patternID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE parsed_ingredient_lines SET unique_line_pattern_id = ? WHERE id = ?`,
		patternID, ingredientLineID)
	if err != nil {
		return fmt.Errorf("link ingredient line to pattern: %w", err)
	}
	return nil
}
