package models

import "time"

// Article model with the fields the reader apps render
type Article struct {
	Id              string     `json:"id"`
	Title           string     `json:"title"`
	FlashContent    string     `json:"flashContent"`
	DeepDiveContent string     `json:"deepDiveContent"`
	ImageUrl        *string    `json:"imageUrl,omitempty"`
	ArticleType     string     `json:"articleType"`
	Categories      []string   `json:"categories"`
	SourceTitle     string     `json:"sourceTitle"`
	SourceUrl       string     `json:"sourceUrl"`
	Status          string     `json:"status"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

// Published reports whether the article belongs in the public feed
func (a Article) Published() bool {
	return a.Status == StatusPublished
}

// StatusPublished is the only lifecycle value the feed query cares about
const StatusPublished = "Published"

type CursorEvent struct {
	Cursor int64
}

// CreateArticleEvent fired when a new article document is created
type CreateArticleEvent struct {
	Article Article
}

// UpdateArticleEvent fired when an article document is updated
type UpdateArticleEvent struct {
	Article Article
}

// DeleteArticleEvent fired when an article document is deleted
type DeleteArticleEvent struct {
	Article Article
}
