package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/store"
)

// postColumns is the ordered list of columns selected in posts queries.
const postColumns = `id, slug, title, author, excerpt, likes, views, replies, uses,
	tags, buckets, import_url, created_at, updated_at`

// scanPost scans one row into a domain.Blueprint.
func scanPost(scanner interface{ Scan(dest ...any) error }) (domain.Blueprint, error) {
	var (
		b                    domain.Blueprint
		tags, buckets        string
		createdAt, updatedAt int64
	)
	err := scanner.Scan(
		&b.ID, &b.Slug, &b.Title, &b.Author, &b.Excerpt,
		&b.Likes, &b.Views, &b.Replies, &b.Uses,
		&tags, &buckets, &b.ImportURL, &createdAt, &updatedAt,
	)
	if err != nil {
		return b, err
	}
	b.Tags = splitList(tags)
	b.Buckets = splitList(buckets)
	b.CreatedAt = timeOrZero(createdAt)
	b.UpdatedAt = timeOrZero(updatedAt)
	return b, nil
}

// Upsert inserts or refreshes crawled blueprints. Returns how many rows were
// written.
func (s *Store) Upsert(ctx context.Context, items []domain.Blueprint) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (id, slug, title, title_norm, author, excerpt, likes, views,
			replies, uses, tags, buckets, import_url, created_at, updated_at, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug=excluded.slug,
			title=excluded.title,
			title_norm=excluded.title_norm,
			author=excluded.author,
			excerpt=excluded.excerpt,
			likes=excluded.likes,
			views=excluded.views,
			replies=excluded.replies,
			uses=excluded.uses,
			tags=excluded.tags,
			buckets=excluded.buckets,
			import_url=excluded.import_url,
			created_at=excluded.created_at,
			updated_at=excluded.updated_at,
			seen_at=excluded.seen_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	rows := 0
	for i := range items {
		it := &items[i]
		_, err := stmt.ExecContext(ctx,
			it.ID, it.Slug, it.Title, normTitle(it.Title), it.Author, it.Excerpt,
			it.Likes, it.Views, it.Replies, it.Uses,
			joinList(it.Tags), joinList(it.Buckets), it.ImportURL,
			unixOrZero(it.CreatedAt), unixOrZero(it.UpdatedAt), now,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert post %d: %w", it.ID, err)
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return rows, nil
}

// Query serves a local catalog read. Search terms must all appear in the
// normalized title or excerpt; bucket filters require every listed bucket.
func (s *Store) Query(ctx context.Context, params store.QueryParams) ([]domain.Blueprint, error) {
	var (
		clauses []string
		args    []any
	)

	for _, term := range strings.Fields(strings.ToLower(params.Query)) {
		like := "%" + term + "%"
		clauses = append(clauses, "(title_norm LIKE ? OR excerpt LIKE ?)")
		args = append(args, like, like)
	}
	for _, bucket := range params.Buckets {
		bucket = strings.ToLower(strings.TrimSpace(bucket))
		if bucket == "" {
			continue
		}
		clauses = append(clauses, "(',' || buckets || ',') LIKE ?")
		args = append(args, "%,"+bucket+",%")
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	var order string
	switch params.Sort {
	case domain.SortNewest:
		order = "updated_at DESC, id DESC"
	case domain.SortTitle:
		order = "title_norm ASC"
	default:
		order = "likes DESC, views DESC"
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 30
	}

	query := fmt.Sprintf(`SELECT %s FROM posts %s ORDER BY %s LIMIT ? OFFSET ?`,
		postColumns, where, order)
	args = append(args, limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var out []domain.Blueprint
	for rows.Next() {
		b, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Buckets returns every distinct bucket present in the local catalog,
// sorted. Used to populate the filter UI when the forum's advisory list is
// unavailable.
func (s *Store) Buckets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT buckets FROM posts WHERE buckets != ''`)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var joined string
		if err := rows.Scan(&joined); err != nil {
			return nil, err
		}
		for _, b := range splitList(joined) {
			seen[b] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out, nil
}

// Spotlight answers the creators footer from SQL: most liked blueprint,
// busiest author, freshest upload.
func (s *Store) Spotlight(ctx context.Context) (domain.Spotlight, error) {
	var sp domain.Spotlight

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, author, likes FROM posts ORDER BY likes DESC, views DESC LIMIT 1`)
	if err := row.Scan(&sp.MostPopular.ID, &sp.MostPopular.Title, &sp.MostPopular.Author, &sp.MostPopular.Likes); err != nil && err != sql.ErrNoRows {
		return sp, fmt.Errorf("spotlight popular: %w", err)
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT author, COUNT(*) FROM posts WHERE author != '' GROUP BY author ORDER BY COUNT(*) DESC LIMIT 1`)
	if err := row.Scan(&sp.TopUploader.Author, &sp.TopUploader.Count); err != nil && err != sql.ErrNoRows {
		return sp, fmt.Errorf("spotlight uploader: %w", err)
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT id, title, author, likes FROM posts ORDER BY updated_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&sp.MostRecent.ID, &sp.MostRecent.Title, &sp.MostRecent.Author, &sp.MostRecent.Likes); err != nil && err != sql.ErrNoRows {
		return sp, fmt.Errorf("spotlight recent: %w", err)
	}

	return sp, nil
}

// Prune removes rows not seen by a crawl within the retention window.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE seen_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune posts: %w", err)
	}
	return res.RowsAffected()
}
