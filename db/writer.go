package db

import (
	"database/sql"
	"encoding/json"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"lumina/models"
)

type Writer struct {
	db        *sql.DB
	eventChan chan interface{}
	tidyChan  *time.Ticker
}

func NewWriter(database string, eventChan chan interface{}) (*Writer, error) {
	db, err := writerConnection(database)
	if err != nil {
		return nil, err
	}
	return &Writer{
		db:        db,
		eventChan: eventChan,
		// Create new tidy channel that is pinged every 5 minutes
		tidyChan: time.NewTicker(5 * time.Minute),
	}, nil
}

// Subscribe consumes the typed event channel and keeps the cache in sync
// with the remote collection. Returns when the channel is closed.
func (writer *Writer) Subscribe() {
	// Tidy database immediately
	if err := tidy(writer.db); err != nil {
		log.Error("Error tidying database ", err)
	}

	for {
		select {
		case <-writer.tidyChan.C:
			log.Info("Tidying database")
			if err := tidy(writer.db); err != nil {
				log.Error("Error tidying database ", err)
			}

		case event, ok := <-writer.eventChan:
			if !ok {
				return
			}
			switch event := event.(type) {
			case models.CursorEvent:
				writer.processCursor(event)
			case models.CreateArticleEvent:
				writer.upsertArticle(event.Article)
			case models.UpdateArticleEvent:
				writer.upsertArticle(event.Article)
			case models.DeleteArticleEvent:
				writer.deleteArticle(event.Article)
			default:
				log.Info("Unknown event type")
			}
		}
	}
}

func (writer *Writer) processCursor(evt models.CursorEvent) {
	// Update sequence row with new cursor value
	updateSeq := sqlbuilder.NewUpdateBuilder()
	query, args := updateSeq.Update("sequence").Set(updateSeq.Assign("seq", evt.Cursor)).Where(updateSeq.Equal("id", 0)).BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := writer.db.Exec(query, args...); err != nil {
		log.Error("Error updating sequence ", err)
	}
}

func (writer *Writer) upsertArticle(article models.Article) {
	log.WithFields(log.Fields{
		"id":     article.Id,
		"status": article.Status,
	}).Info("Caching article")

	categories, err := json.Marshal(article.Categories)
	if err != nil {
		categories = []byte("[]")
	}

	var imageUrl sql.NullString
	if article.ImageUrl != nil {
		imageUrl = sql.NullString{String: *article.ImageUrl, Valid: true}
	}

	var publishedAt sql.NullInt64
	if article.PublishedAt != nil {
		publishedAt = sql.NullInt64{Int64: article.PublishedAt.Unix(), Valid: true}
	}

	_, err = writer.db.Exec(`
		INSERT INTO articles (id, title, flash_content, deep_dive_content, image_url,
			article_type, categories, source_title, source_url, status, published_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			flash_content = excluded.flash_content,
			deep_dive_content = excluded.deep_dive_content,
			image_url = excluded.image_url,
			article_type = excluded.article_type,
			categories = excluded.categories,
			source_title = excluded.source_title,
			source_url = excluded.source_url,
			status = excluded.status,
			published_at = excluded.published_at,
			indexed_at = excluded.indexed_at`,
		article.Id,
		article.Title,
		article.FlashContent,
		article.DeepDiveContent,
		imageUrl,
		article.ArticleType,
		string(categories),
		article.SourceTitle,
		article.SourceUrl,
		article.Status,
		publishedAt,
		time.Now().Unix(),
	)
	if err != nil {
		log.Error("Error caching article ", err)
	}
}

func (writer *Writer) deleteArticle(article models.Article) {
	log.WithFields(log.Fields{
		"id": article.Id,
	}).Info("Deleting cached article")

	if _, err := writer.db.Exec("DELETE FROM articles WHERE id = ?", article.Id); err != nil {
		log.Error("Error deleting cached article ", err)
	}
}

func (writer *Writer) Close() error {
	writer.tidyChan.Stop()
	return writer.db.Close()
}
