package models_test

import (
	"testing"
	"time"

	"lumina/models"

	"github.com/stretchr/testify/assert"
)

func TestParseArticleDefaults(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]interface{}
		want models.Article
	}{
		{
			name: "empty document",
			doc:  map[string]interface{}{},
			want: models.Article{
				Id:          "a1",
				Title:       "No Title",
				ArticleType: "Trending Topic",
				Categories:  []string{},
			},
		},
		{
			name: "nil document",
			doc:  nil,
			want: models.Article{
				Id:          "a1",
				Title:       "No Title",
				ArticleType: "Trending Topic",
				Categories:  []string{},
			},
		},
		{
			name: "wrong types degrade to defaults",
			doc: map[string]interface{}{
				"title":        42,
				"flashContent": []interface{}{"not", "a", "string"},
				"articleType":  true,
				"categories":   "not a list",
				"imageUrl":     12.5,
				"status":       nil,
			},
			want: models.Article{
				Id:          "a1",
				Title:       "No Title",
				ArticleType: "Trending Topic",
				Categories:  []string{},
			},
		},
		{
			name: "populated document",
			doc: map[string]interface{}{
				"title":           "Solar balconies",
				"flashContent":    "Short body",
				"deepDiveContent": "<p>Long body</p>",
				"imageUrl":        "https://cdn.example.com/a.png",
				"articleType":     "Positive News",
				"categories":      []interface{}{"Energy", "Europe"},
				"sourceTitle":     "Example Times",
				"sourceUrl":       "https://example.com/story",
				"status":          "Published",
			},
			want: models.Article{
				Id:              "a1",
				Title:           "Solar balconies",
				FlashContent:    "Short body",
				DeepDiveContent: "<p>Long body</p>",
				ImageUrl:        strPtr("https://cdn.example.com/a.png"),
				ArticleType:     "Positive News",
				Categories:      []string{"Energy", "Europe"},
				SourceTitle:     "Example Times",
				SourceUrl:       "https://example.com/story",
				Status:          "Published",
			},
		},
		{
			name: "non-string category elements are skipped",
			doc: map[string]interface{}{
				"categories": []interface{}{"Energy", 42, nil, "Europe"},
			},
			want: models.Article{
				Id:          "a1",
				Title:       "No Title",
				ArticleType: "Trending Topic",
				Categories:  []string{"Energy", "Europe"},
			},
		},
		{
			name: "empty imageUrl means absent",
			doc: map[string]interface{}{
				"imageUrl": "",
			},
			want: models.Article{
				Id:          "a1",
				Title:       "No Title",
				ArticleType: "Trending Topic",
				Categories:  []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := models.ParseArticle("a1", tt.doc)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestParseArticlePublishedAt(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  *time.Time
	}{
		{
			name:  "rfc3339 string",
			value: "2024-06-01T12:30:00Z",
			want:  timePtr(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)),
		},
		{
			name:  "legacy date string",
			value: "2024-06-01",
			want:  timePtr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:  "epoch milliseconds",
			value: float64(1717245000000),
			want:  timePtr(time.UnixMilli(1717245000000).UTC()),
		},
		{
			name: "structured timestamp",
			value: map[string]interface{}{
				"seconds": float64(1717245000),
				"nanos":   float64(0),
			},
			want: timePtr(time.Unix(1717245000, 0).UTC()),
		},
		{
			name:  "unparseable string is absent",
			value: "last tuesday-ish",
			want:  nil,
		},
		{
			name:  "unexpected type is absent",
			value: []interface{}{"2024"},
			want:  nil,
		},
		{
			name:  "missing is absent",
			value: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := map[string]interface{}{}
			if tt.value != nil {
				doc["publishedAt"] = tt.value
			}
			result := models.ParseArticle("a1", doc)
			assert.Equal(t, tt.want, result.PublishedAt)
		})
	}
}

func TestParseArticleIdempotent(t *testing.T) {
	doc := map[string]interface{}{
		"title":       "Twice parsed",
		"articleType": "Misinformation",
		"categories":  []interface{}{"Health"},
		"publishedAt": "2024-06-01T12:30:00Z",
		"status":      "Published",
	}

	first := models.ParseArticle("a1", doc)
	second := models.ParseArticle("a1", doc)

	assert.Equal(t, first, second)
}

func TestPublished(t *testing.T) {
	assert.True(t, models.Article{Status: "Published"}.Published())
	assert.False(t, models.Article{Status: "Draft"}.Published())
	assert.False(t, models.Article{}.Published())
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
