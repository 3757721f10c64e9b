package server

import (
	"lumina/imgproxy"
	"lumina/models"
	"lumina/themes"

	"github.com/samber/lo"
)

// RenderedArticle is one article annotated for a specific client
// platform: the palette for its article type, and an image URL that web
// clients can fetch without tripping cross-origin restrictions.
type RenderedArticle struct {
	models.Article
	Theme themes.Theme `json:"theme"`
}

type RenderedFeedResponse struct {
	Feed   []RenderedArticle `json:"feed"`
	Cursor *string           `json:"cursor"`
}

// RenderArticle annotates one article. The record itself is copied, not
// mutated, so the store's snapshot stays untouched.
func RenderArticle(article models.Article, table *themes.Table, resolver imgproxy.Resolver, browser bool) RenderedArticle {
	if article.ImageUrl != nil {
		resolved := resolver.Resolve(*article.ImageUrl, browser)
		article.ImageUrl = &resolved
	}

	return RenderedArticle{
		Article: article,
		Theme:   table.Resolve(article.ArticleType),
	}
}

func RenderArticles(articles []models.Article, table *themes.Table, resolver imgproxy.Resolver, browser bool) []RenderedArticle {
	return lo.Map(articles, func(article models.Article, _ int) RenderedArticle {
		return RenderArticle(article, table, resolver, browser)
	})
}
