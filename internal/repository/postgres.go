// Copyright 2025 James Ross
// Postgres adapter for the repository contract, using database/sql with
// lib/pq as the driver — grounded on the teacher's convention of one
// thin SQL adapter per external dependency.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/awehrman/peas-sub008/internal/pattern"
)

// Postgres implements Repository and pattern.Store against a Postgres
// database reached via lib/pq.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool using the lib/pq driver.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreateNote(ctx context.Context, parsedHTML string) (Note, error) {
	var n Note
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO notes (content) VALUES ($1) RETURNING id, content, created_at`,
		parsedHTML,
	).Scan(&n.ID, &n.Content, &n.CreatedAt)
	if err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (p *Postgres) GetNoteWithEvernoteMetadata(ctx context.Context, noteID string) (*Note, error) {
	var n Note
	err := p.db.QueryRowContext(ctx,
		`SELECT id, title, content, created_at FROM notes WHERE id = $1`, noteID,
	).Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `SELECT tag FROM evernote_tags WHERE note_id = $1`, noteID)
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

func (p *Postgres) SaveCategoryToNote(ctx context.Context, noteID, categoryName string) (Category, error) {
	var c Category
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name`,
		categoryName,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		return Category{}, fmt.Errorf("save category: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `UPDATE notes SET category_id = $1 WHERE id = $2`, c.ID, noteID)
	if err != nil {
		return Category{}, fmt.Errorf("link category to note: %w", err)
	}
	return c, nil
}

func (p *Postgres) SaveTagsToNote(ctx context.Context, noteID string, tagNames []string) ([]Tag, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save tags tx: %w", err)
	}
	defer tx.Rollback()

	out := make([]Tag, 0, len(tagNames))
	for _, name := range tagNames {
		var t Tag
		err := tx.QueryRowContext(ctx,
			`INSERT INTO tags (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id, name`, name,
		).Scan(&t.ID, &t.Name)
		if err != nil {
			return nil, fmt.Errorf("save tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO note_tags (note_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			noteID, t.ID); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", name, err)
		}
		out = append(out, t)
	}
	return out, tx.Commit()
}

func (p *Postgres) GetInstructionCompletionStatus(ctx context.Context, noteID string) (InstructionCompletionStatus, error) {
	var s InstructionCompletionStatus
	err := p.db.QueryRowContext(ctx,
		`SELECT
			count(*) FILTER (WHERE completed), count(*)
		 FROM instruction_lines WHERE note_id = $1`, noteID,
	).Scan(&s.CompletedInstructions, &s.TotalInstructions)
	if err != nil {
		return s, fmt.Errorf("get instruction completion: %w", err)
	}
	s.Progress = fmt.Sprintf("%d/%d", s.CompletedInstructions, s.TotalInstructions)
	s.IsComplete = s.TotalInstructions > 0 && s.CompletedInstructions == s.TotalInstructions
	return s, nil
}

func (p *Postgres) GetIngredientCompletionStatus(ctx context.Context, noteID string) (IngredientCompletionStatus, error) {
	var s IngredientCompletionStatus
	err := p.db.QueryRowContext(ctx,
		`SELECT
			count(*) FILTER (WHERE completed), count(*)
		 FROM ingredient_lines WHERE note_id = $1`, noteID,
	).Scan(&s.CompletedIngredients, &s.TotalIngredients)
	if err != nil {
		return s, fmt.Errorf("get ingredient completion: %w", err)
	}
	s.IsComplete = s.TotalIngredients > 0 && s.CompletedIngredients == s.TotalIngredients
	return s, nil
}

func (p *Postgres) SaveIngredientLine(ctx context.Context, noteID string, lineNumber int, segments []IngredientSegment) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save ingredient line tx: %w", err)
	}
	defer tx.Rollback()
	for _, seg := range segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ingredient_segments (note_id, line_number, rule_id, text) VALUES ($1, $2, $3, $4)`,
			noteID, lineNumber, seg.RuleID, seg.Text); err != nil {
			return fmt.Errorf("insert ingredient segment: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ingredient_lines SET completed = true WHERE note_id = $1 AND line_number = $2`,
		noteID, lineNumber); err != nil {
		return fmt.Errorf("mark ingredient line complete: %w", err)
	}
	return tx.Commit()
}

func (p *Postgres) SaveInstructionLine(ctx context.Context, noteID string, lineNumber int, text string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE instruction_lines SET text = $1, completed = true WHERE note_id = $2 AND line_number = $3`,
		text, noteID, lineNumber)
	if err != nil {
		return fmt.Errorf("save instruction line: %w", err)
	}
	return nil
}

// UpsertPattern performs the transactional upsert keyed on ruleIds
// (§4.7, §6.3). The ruleIds sequence is joined into a stable key column
// so the ordered sequence, not a sorted set, is the identity.
func (p *Postgres) UpsertPattern(ctx context.Context, ruleIDs []string, exampleLine string) (pattern.Pattern, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return pattern.Pattern{}, fmt.Errorf("begin pattern upsert tx: %w", err)
	}
	defer tx.Rollback()

	key := ruleSequenceKey(ruleIDs)
	var p2 pattern.Pattern
	err = tx.QueryRowContext(ctx,
		`INSERT INTO patterns (rule_sequence, example_line, occurrence_count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (rule_sequence) DO UPDATE
		   SET occurrence_count = patterns.occurrence_count + 1,
		       example_line = COALESCE(NULLIF($2, ''), patterns.example_line)
		 RETURNING id, example_line, occurrence_count`,
		key, exampleLine,
	).Scan(&p2.PatternID, &p2.ExampleLine, &p2.OccurrenceCount)
	if err != nil {
		return pattern.Pattern{}, fmt.Errorf("upsert pattern: %w", err)
	}
	p2.RuleIDs = ruleIDs
	return p2, tx.Commit()
}

func (p *Postgres) LinkIngredientLine(ctx context.Context, ingredientLineID, patternID string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE parsed_ingredient_lines SET unique_line_pattern_id = $1 WHERE id = $2`,
		patternID, ingredientLineID)
	if err != nil {
		return fmt.Errorf("link ingredient line to pattern: %w", err)
	}
	return nil
}

func ruleSequenceKey(ruleIDs []string) string {
	key := ""
	for i, r := range ruleIDs {
		if i > 0 {
			key += "|"
		}
		key += r
	}
	return key
}
