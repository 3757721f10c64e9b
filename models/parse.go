package models

import (
	"encoding/json"
	"time"
)

// Defaults applied by ParseArticle when a document field is missing or
// carries the wrong type. "Trending Topic" doubles as the default theme
// key so an untyped article still renders with a defined palette.
const (
	DefaultTitle       = "No Title"
	DefaultArticleType = "Trending Topic"
)

// Layouts tried in order when publishedAt arrives as a string. Legacy
// documents carry a handful of formats besides RFC3339.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseArticle maps one raw collection document onto an Article. It is
// total: every field has a default, so a malformed document degrades to
// defaults instead of failing. Non-string category elements are skipped.
func ParseArticle(id string, doc map[string]interface{}) Article {
	return Article{
		Id:              id,
		Title:           stringField(doc, "title", DefaultTitle),
		FlashContent:    stringField(doc, "flashContent", ""),
		DeepDiveContent: stringField(doc, "deepDiveContent", ""),
		ImageUrl:        optionalString(doc, "imageUrl"),
		ArticleType:     stringField(doc, "articleType", DefaultArticleType),
		Categories:      stringSliceField(doc, "categories"),
		SourceTitle:     stringField(doc, "sourceTitle", ""),
		SourceUrl:       stringField(doc, "sourceUrl", ""),
		Status:          stringField(doc, "status", ""),
		PublishedAt:     timeField(doc, "publishedAt"),
	}
}

func stringField(doc map[string]interface{}, key string, fallback string) string {
	if value, ok := doc[key].(string); ok {
		return value
	}
	return fallback
}

func optionalString(doc map[string]interface{}, key string) *string {
	if value, ok := doc[key].(string); ok && value != "" {
		return &value
	}
	return nil
}

func stringSliceField(doc map[string]interface{}, key string) []string {
	values := []string{}
	raw, ok := doc[key].([]interface{})
	if !ok {
		return values
	}
	for _, element := range raw {
		if str, ok := element.(string); ok {
			values = append(values, str)
		}
	}
	return values
}

// timeField converts a publishedAt value to an instant. Structured
// timestamps arrive as {seconds, nanos} maps or epoch milliseconds,
// legacy documents as strings. Anything unparseable means absent.
func timeField(doc map[string]interface{}, key string) *time.Time {
	switch value := doc[key].(type) {
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, value); err == nil {
				parsed = parsed.UTC()
				return &parsed
			}
		}
		return nil
	case float64:
		// JSON numbers decode to float64; treat as epoch milliseconds
		parsed := time.UnixMilli(int64(value)).UTC()
		return &parsed
	case int64:
		parsed := time.UnixMilli(value).UTC()
		return &parsed
	case json.Number:
		if millis, err := value.Int64(); err == nil {
			parsed := time.UnixMilli(millis).UTC()
			return &parsed
		}
		return nil
	case map[string]interface{}:
		seconds, ok := numberField(value, "seconds")
		if !ok {
			return nil
		}
		nanos, _ := numberField(value, "nanos")
		parsed := time.Unix(seconds, nanos).UTC()
		return &parsed
	default:
		return nil
	}
}

func numberField(doc map[string]interface{}, key string) (int64, bool) {
	switch value := doc[key].(type) {
	case float64:
		return int64(value), true
	case int64:
		return value, true
	case json.Number:
		n, err := value.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
