package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"lumina/db"
	"lumina/feed"
	"lumina/imgproxy"
	"lumina/models"
	"lumina/themes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type ServerConfig struct {

	// The hostname to use for the server
	Hostname string

	// The materialized live feed
	Store *feed.Store

	// Read access to the local cache
	Reader *db.Reader

	// Palette table resolved at startup
	Themes *themes.Table

	// Image proxy endpoint for web clients
	ImageProxy imgproxy.Resolver

	// Broadcast channel to pass feed snapshots to SSE clients
	Broadcaster *Broadcaster
}

// Make it sync
type Broadcaster struct {
	sync.RWMutex
	feedClients map[string]chan []models.Article
}

// Constructor
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		feedClients: make(map[string]chan []models.Article, 10000),
	}
}

func (b *Broadcaster) BroadcastFeed(articles []models.Article) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.feedClients {
		select {
		case client <- articles: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping snapshot for client: %v", id)
		}
	}
}

// Function to add a client to the broadcaster
func (b *Broadcaster) AddClient(key string, feedClient chan []models.Article) {
	b.Lock()
	defer b.Unlock()
	b.feedClients[key] = feedClient
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.feedClients),
	}).Info("Adding client to broadcaster")
}

// Function to remove a client from the broadcaster
func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.feedClients[key]; ok { // Check if the client exists
		close(client)              // Safely close the channel
		delete(b.feedClients, key) // Remove from the map
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.feedClients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.feedClients {
		close(client)
		delete(b.feedClients, key)
	}
}

// Returns a fiber.App instance to be used as an HTTP server for the lumina feed
func Server(config *ServerConfig) *fiber.App {

	bc := config.Broadcaster

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	// Web clients are served from a different origin
	app.Use(func(c *fiber.Ctx) error {
		corsConfig := cors.Config{
			AllowOrigins:     "*",
			AllowHeaders:     "Cache-Control",
			AllowCredentials: false,
		}
		return cors.New(corsConfig)(c)
	})

	// Setup cache
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {

			if c.Method() != "GET" {
				return true
			}

			// If the pathname ends with /sse, don't cache
			if strings.HasSuffix(c.Path(), "/sse") {
				return true
			}

			// Only cache feed requests
			if strings.HasPrefix(c.Path(), "/feed") {
				return false
			}
			return true
		},
		Expiration: 5 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Get URL with query string to use as cache key
			url := c.Request().URI().String()
			// Include the query parameters in the cache key
			return url
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(map[string]interface{}{
			"status":   "ok",
			"hostname": config.Hostname,
		})
	})

	app.Get("/feed", func(c *fiber.Ctx) error {
		// Get the feed query parameters and parse the limit
		browser := isBrowserPlatform(c.Query("platform", "native"))
		cursor := c.Query("cursor", "")
		limit, err := strconv.ParseInt(c.Query("limit", "20"), 0, 32)
		if err != nil || limit < 1 || limit > 100 {
			limit = 20
		}

		log.WithFields(log.Fields{
			"browser": browser,
			"cursor":  cursor,
			"limit":   limit,
		}).Info("Generate feed page with parameters")

		snapshot := config.Store.Snapshot()

		// Serve from the cache when the store has nothing yet, e.g. right
		// after a restart before the stream catches up
		if len(snapshot) == 0 && config.Reader != nil {
			cached, err := config.Reader.GetPublishedFeed(0)
			if err != nil {
				log.Errorf("Failed to read cached feed: %v", err)
			} else {
				snapshot = cached
			}
		}

		page, nextCursor := pageFeed(snapshot, cursor, int(limit))

		return c.JSON(RenderedFeedResponse{
			Feed:   RenderArticles(page, config.Themes, config.ImageProxy, browser),
			Cursor: nextCursor,
		})
	})

	app.Delete("/feed/sse", func(c *fiber.Ctx) error {
		// Get the feed query parameters and parse the limit
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(200).SendString("OK")
	})

	app.Get("/feed/sse", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		browser := isBrowserPlatform(c.Query("platform", "web"))

		// Unique client key
		key := uuid.New().String()
		sseFeedChannel := make(chan []models.Article, 10) // Buffered channel
		aliveChan := time.NewTicker(5 * time.Second)

		defer aliveChan.Stop()

		// Register the client
		bc.AddClient(key, sseFeedChannel)

		// Cleanup function
		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			bc.RemoveClient(key)
		}

		// Use StreamWriter to manage SSE streaming
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			// Start streaming loop
			for {
				select {
				case <-aliveChan.C:
					// Send keep-alive pings
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case articles, ok := <-sseFeedChannel:
					if !ok {
						log.Warnf("Feed channel closed for client %s", key)
						return
					}
					rendered := RenderArticles(articles, config.Themes, config.ImageProxy, browser)
					jsonFeed, err := json.Marshal(rendered)
					if err != nil {
						log.Errorf("Error marshalling feed for client %s: %v", key, err)
						continue
					}
					if _, err := fmt.Fprintf(w, "event: feed\ndata: %s\n\n", jsonFeed); err != nil {
						log.Warnf("Failed to send feed event to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush feed event for client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}

// isBrowserPlatform maps the client-declared platform to the browser
// capability flag used by the image resolver
func isBrowserPlatform(platform string) bool {
	return platform == "web"
}

// pageFeed slices one page out of the snapshot. The cursor is the offset
// of the next page; an invalid cursor starts from the top.
func pageFeed(snapshot []models.Article, cursor string, limit int) ([]models.Article, *string) {
	offset := safeParseCursor(cursor)
	if offset >= len(snapshot) {
		return []models.Article{}, nil
	}

	end := offset + limit
	if end >= len(snapshot) {
		return snapshot[offset:], nil
	}

	next := strconv.Itoa(end)
	return snapshot[offset:end], &next
}

// safeParseCursor parses the cursor string and returns the page offset
// If the cursor is invalid, it returns 0
func safeParseCursor(cursor string) int {
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}
