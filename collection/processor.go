package collection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"

	"lumina/models"
)

// Operations carried by the stream event envelope
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// ArticlesCollection is the collection name the feed subscribes to
const ArticlesCollection = "articles"

// Event is the wire envelope for one document change. Document is left
// raw here and decoded per operation; delete events carry no document.
type Event struct {
	Cursor     int64           `json:"cursor"`
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	Id         string          `json:"id"`
	Document   json.RawMessage `json:"document,omitempty"`
}

// EventProcessor decodes raw websocket frames into typed article events
// and forwards them on the event channel consumed by the feed store and
// the cache writer.
type EventProcessor struct {
	eventChan chan interface{}
	context   context.Context
	config    StreamConfig
	decoder   *zstd.Decoder
}

func NewEventProcessor(ctx context.Context, config StreamConfig, eventChan chan interface{}) *EventProcessor {
	ep := &EventProcessor{
		context:   ctx,
		config:    config,
		eventChan: eventChan,
	}

	if config.Compress {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			log.Fatalf("Failed to create zstd decoder: %v", err)
		}
		ep.decoder = decoder
	}

	return ep
}

// processMessage turns one raw frame into typed events. Malformed
// documents never fail here: the parser is total and degrades fields to
// defaults, so the only errors are transport-level (bad frame, bad JSON).
func (p *EventProcessor) processMessage(msg *RawMessage) error {
	data, err := p.decode(msg)
	if err != nil {
		return err
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	// Events for other collections share the stream; skip them
	if event.Collection != ArticlesCollection {
		return nil
	}

	if event.Id == "" {
		return fmt.Errorf("event missing document id")
	}

	if event.Cursor != 0 {
		p.send(models.CursorEvent{Cursor: event.Cursor})
	}

	switch event.Operation {
	case OperationCreate, OperationUpdate:
		article, err := p.parseDocument(event)
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"id":          article.Id,
			"articleType": article.ArticleType,
			"status":      article.Status,
		}).Info("Processing article document")

		if event.Operation == OperationCreate {
			p.send(models.CreateArticleEvent{Article: article})
		} else {
			p.send(models.UpdateArticleEvent{Article: article})
		}
	case OperationDelete:
		p.send(models.DeleteArticleEvent{Article: models.Article{Id: event.Id}})
	default:
		log.WithFields(log.Fields{
			"operation": event.Operation,
		}).Debug("Skipping unknown operation")
	}

	return nil
}

func (p *EventProcessor) parseDocument(event Event) (models.Article, error) {
	doc := map[string]interface{}{}
	if len(event.Document) > 0 {
		if err := json.Unmarshal(event.Document, &doc); err != nil {
			return models.Article{}, fmt.Errorf("failed to unmarshal document: %w", err)
		}
	}
	return models.ParseArticle(event.Id, doc), nil
}

// decode decompresses binary frames when the stream is zstd-compressed
func (p *EventProcessor) decode(msg *RawMessage) ([]byte, error) {
	if p.decoder == nil {
		return msg.Data, nil
	}
	data, err := p.decoder.DecodeAll(msg.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress message: %w", err)
	}
	return data, nil
}

func (p *EventProcessor) send(event interface{}) {
	select {
	case <-p.context.Done():
	case p.eventChan <- event:
	}
}
