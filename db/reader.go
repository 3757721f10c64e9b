package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"

	"lumina/models"
)

type Reader struct {
	db *sql.DB
}

func NewReader(database string) (*Reader, error) {
	// Open in read-only mode with optimized settings
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?mode=ro&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// Set connection pool settings for reader
	db.SetMaxOpenConns(4)            // Allow multiple concurrent readers
	db.SetMaxIdleConns(2)            // Keep some connections ready
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	return &Reader{db: db}, nil
}

// GetArticles returns every cached article, any status. Used to seed the
// feed store at startup with the last known collection state.
func (reader *Reader) GetArticles() ([]models.Article, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"id", "title", "flash_content", "deep_dive_content", "image_url",
		"article_type", "categories", "source_title", "source_url",
		"status", "published_at",
	).From("articles")

	// Absent timestamps order after dated rows, ties on id, matching the
	// in-memory feed ordering
	sb.OrderBy("published_at IS NULL", "published_at DESC", "id DESC")

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		articles = append(articles, article)
	}

	return articles, rows.Err()
}

// GetPublishedFeed returns the cached published feed, most recent first
func (reader *Reader) GetPublishedFeed(limit int) ([]models.Article, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"id", "title", "flash_content", "deep_dive_content", "image_url",
		"article_type", "categories", "source_title", "source_url",
		"status", "published_at",
	).From("articles")
	sb.Where(sb.Equal("status", models.StatusPublished))
	sb.OrderBy("published_at IS NULL", "published_at DESC", "id DESC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := reader.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		articles = append(articles, article)
	}

	return articles, rows.Err()
}

func (reader *Reader) GetSequence() (int64, error) {
	// Get sequence number
	selectSeq := sqlbuilder.NewSelectBuilder()
	query, args := selectSeq.Select("seq").From("sequence").Where(selectSeq.Equal("id", 0)).BuildWithFlavor(sqlbuilder.SQLite)

	var seq int64
	err := reader.db.QueryRow(query, args...).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return seq, nil
}

func (reader *Reader) Close() error {
	return reader.db.Close()
}

func scanArticle(rows *sql.Rows) (models.Article, error) {
	var article models.Article
	var imageUrl sql.NullString
	var categories string
	var publishedAt sql.NullInt64

	if err := rows.Scan(
		&article.Id, &article.Title, &article.FlashContent,
		&article.DeepDiveContent, &imageUrl, &article.ArticleType,
		&categories, &article.SourceTitle, &article.SourceUrl,
		&article.Status, &publishedAt,
	); err != nil {
		return models.Article{}, err
	}

	if imageUrl.Valid && imageUrl.String != "" {
		article.ImageUrl = &imageUrl.String
	}

	article.Categories = []string{}
	// Categories column holds a JSON array; a corrupt value degrades to empty
	_ = json.Unmarshal([]byte(categories), &article.Categories)
	if article.Categories == nil {
		article.Categories = []string{}
	}

	if publishedAt.Valid {
		published := time.Unix(publishedAt.Int64, 0).UTC()
		article.PublishedAt = &published
	}

	return article, nil
}
