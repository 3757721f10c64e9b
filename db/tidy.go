package db

import (
	"database/sql"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes articles published more than 90 days ago from the cache
func Tidy(database string) error {
	db, err := writerConnection(database)
	if err != nil {
		return err
	}
	defer db.Close()

	return tidy(db)
}

func tidy(db *sql.DB) error {
	ninetyDaysAgo := time.Now().Add(-90 * 24 * time.Hour).Unix()
	deleteArticles := sb.NewDeleteBuilder()
	query, args := deleteArticles.DeleteFrom("articles").Where(deleteArticles.LessEqualThan("published_at", ninetyDaysAgo)).BuildWithFlavor(sb.SQLite)

	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Info("Tidying database")

	_, err := db.Exec(query, args...)
	return err
}
