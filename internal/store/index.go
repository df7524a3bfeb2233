package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sydlexius/cytherea/internal/artist"
	"github.com/sydlexius/cytherea/internal/genre"
	"github.com/sydlexius/cytherea/internal/venus"
)

// Index is the secondary SQLite store. It is never read back into the
// canonical set; Rebuild replaces its contents wholesale.
type Index struct {
	db *sql.DB
}

// NewIndex wraps a migrated database.
func NewIndex(db *sql.DB) *Index {
	return &Index{db: db}
}

// Rebuild replaces every indexed row with records in one transaction.
func (x *Index) Rebuild(ctx context.Context, records []artist.Record) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM artists`); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	insArtist, err := tx.PrepareContext(ctx, `
		INSERT INTO artists (key, name, birth_date, date_approx, birth_source,
			venus_sign, venus_degree, venus_decan, venus_element,
			stable_id, media_id, tag_source, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing artist insert: %w", err)
	}
	defer insArtist.Close() //nolint:errcheck
	insGenre, err := tx.PrepareContext(ctx, `INSERT INTO artist_genres (artist_key, genre) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing genre insert: %w", err)
	}
	defer insGenre.Close() //nolint:errcheck
	insSub, err := tx.PrepareContext(ctx, `INSERT INTO artist_subgenres (artist_key, subgenre) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing subgenre insert: %w", err)
	}
	defer insSub.Close() //nolint:errcheck

	for _, r := range records {
		key := r.Key()
		blob, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding %q: %w", r.Name, err)
		}
		var sign, element, birth sql.NullString
		var degree sql.NullFloat64
		var decan sql.NullInt64
		if !r.BirthDate.IsZero() {
			birth = sql.NullString{String: r.BirthDate.String(), Valid: true}
		}
		if r.Venus != nil {
			sign = sql.NullString{String: string(r.Venus.Sign), Valid: true}
			element = sql.NullString{String: string(r.Venus.Element), Valid: true}
			degree = sql.NullFloat64{Float64: r.Venus.Degree, Valid: true}
			decan = sql.NullInt64{Int64: int64(r.Venus.Decan), Valid: true}
		}
		_, err = insArtist.ExecContext(ctx, key, r.Name, birth, r.DateApprox, nullable(r.BirthDateSource),
			sign, degree, decan, element,
			nullable(r.StableID), nullable(r.MediaID), nullable(r.TagSource), string(blob))
		if err != nil {
			return fmt.Errorf("indexing %q: %w", r.Name, err)
		}
		for _, g := range r.Genres {
			if _, err := insGenre.ExecContext(ctx, key, string(g)); err != nil {
				return fmt.Errorf("indexing genre of %q: %w", r.Name, err)
			}
		}
		for _, sg := range r.Subgenres {
			if _, err := insSub.ExecContext(ctx, key, string(sg)); err != nil {
				return fmt.Errorf("indexing subgenre of %q: %w", r.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Count returns the number of indexed artists.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting artists: %w", err)
	}
	return n, nil
}

// Get returns the indexed record for a name, or nil.
func (x *Index) Get(ctx context.Context, name string) (*artist.Record, error) {
	recs, err := x.query(ctx, `SELECT record FROM artists WHERE key = ?`, artist.NameKey(name))
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// BySign returns artists whose Venus is in sign, ordered by degree.
func (x *Index) BySign(ctx context.Context, sign venus.Sign) ([]artist.Record, error) {
	return x.query(ctx, `SELECT record FROM artists WHERE venus_sign = ? ORDER BY venus_degree, key`, string(sign))
}

// ByElement returns artists whose Venus sign belongs to element.
func (x *Index) ByElement(ctx context.Context, element venus.Element) ([]artist.Record, error) {
	return x.query(ctx, `SELECT record FROM artists WHERE venus_element = ? ORDER BY key`, string(element))
}

// ByGenre returns artists tagged with the category.
func (x *Index) ByGenre(ctx context.Context, c genre.Category) ([]artist.Record, error) {
	return x.query(ctx, `
		SELECT a.record FROM artists a
		JOIN artist_genres g ON g.artist_key = a.key
		WHERE g.genre = ? ORDER BY a.key`, string(c))
}

// BySubgenre returns artists tagged with the subgenre.
func (x *Index) BySubgenre(ctx context.Context, s genre.Subgenre) ([]artist.Record, error) {
	return x.query(ctx, `
		SELECT a.record FROM artists a
		JOIN artist_subgenres s ON s.artist_key = a.key
		WHERE s.subgenre = ? ORDER BY a.key`, string(s))
}

func (x *Index) query(ctx context.Context, q string, args ...any) ([]artist.Record, error) {
	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []artist.Record
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var r artist.Record
		if err := json.Unmarshal([]byte(blob), &r); err != nil {
			return nil, fmt.Errorf("decoding indexed record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
