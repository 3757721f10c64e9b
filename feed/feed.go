// Package feed materializes the live articles collection and republishes
// the current published list to subscribers. Every applied document event
// re-emits the full ordered list, not a delta, so a consumer can always
// replace what it is rendering wholesale.
package feed

import (
	"sort"
	"sync"

	"lumina/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Store holds the current state of the collection plus the subscriber
// registry. All access goes through the mutex; the snapshots it hands
// out are never mutated after emission.
type Store struct {
	mu       sync.RWMutex
	articles map[string]models.Article
	subs     map[string]*Subscription
}

func NewStore() *Store {
	return &Store{
		articles: make(map[string]models.Article),
		subs:     make(map[string]*Subscription),
	}
}

// Subscription is one consumer's registration. Updates carries full
// ordered snapshots, Errs carries transport failures from the collection
// client. Cancel is idempotent; after it returns no further emissions
// are observed and both channels are closed.
type Subscription struct {
	key     string
	store   *Store
	updates chan []models.Article
	errs    chan error
	once    sync.Once
}

func (sub *Subscription) Updates() <-chan []models.Article {
	return sub.updates
}

func (sub *Subscription) Errs() <-chan error {
	return sub.errs
}

func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		sub.store.remove(sub.key)
	})
}

// Subscribe registers a new consumer. The current snapshot is delivered
// immediately so the consumer does not have to wait for the next
// collection event to render something.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{
		key:     uuid.New().String(),
		updates: make(chan []models.Article, 1),
		errs:    make(chan error, 1),
	}
	sub.store = s

	s.mu.Lock()
	s.subs[sub.key] = sub
	// Deliver the current state before releasing the lock: a broadcast
	// sneaking in between registration and this send would be replaced
	// by the older snapshot, and a concurrent Cancel could close the
	// channel mid-send
	sendSnapshot(sub, s.snapshotLocked())
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"key": sub.key,
	}).Info("Feed subscriber registered")

	return sub
}

func (s *Store) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[key]
	if !ok {
		return
	}
	delete(s.subs, key)
	close(sub.updates)
	close(sub.errs)

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(s.subs),
	}).Info("Feed subscriber removed")
}

// Seed loads the last known state, typically from the local cache, and
// emits it. Used once at startup before the live subscription catches up.
func (s *Store) Seed(articles []models.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, article := range articles {
		s.articles[article.Id] = article
	}
	s.broadcastLocked(s.snapshotLocked())
}

// Apply folds one document change event into the collection state and
// broadcasts the resulting snapshot. Cursor events carry no document and
// are ignored here.
func (s *Store) Apply(event interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event := event.(type) {
	case models.CreateArticleEvent:
		s.articles[event.Article.Id] = event.Article
	case models.UpdateArticleEvent:
		s.articles[event.Article.Id] = event.Article
	case models.DeleteArticleEvent:
		delete(s.articles, event.Article.Id)
	default:
		return
	}
	s.broadcastLocked(s.snapshotLocked())
}

// Fail surfaces a transport failure to every subscriber. The update
// channels stay open: the last emitted list remains valid and a recovered
// connection simply resumes snapshot emissions.
func (s *Store) Fail(err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Sends stay under the lock for the same reason as broadcastLocked:
	// Cancel must not close a channel mid-send
	for _, sub := range s.subs {
		select {
		case sub.errs <- err:
		default:
			log.WithFields(log.Fields{
				"key": sub.key,
			}).Warn("Subscriber error channel full, dropping error")
		}
	}
}

// Snapshot returns the current published list, most recent first
func (s *Store) Snapshot() []models.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// snapshotLocked computes the published, ordered list. Ordering contract:
// publishedAt descending; articles with no publishedAt sort after all
// dated ones; ties break on id descending so the order is deterministic.
func (s *Store) snapshotLocked() []models.Article {
	published := lo.Filter(lo.Values(s.articles), func(article models.Article, _ int) bool {
		return article.Published()
	})

	sort.Slice(published, func(i, j int) bool {
		a, b := published[i].PublishedAt, published[j].PublishedAt
		switch {
		case a == nil && b == nil:
			return published[i].Id > published[j].Id
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return published[i].Id > published[j].Id
		default:
			return a.After(*b)
		}
	})

	return published
}

// broadcastLocked sends a snapshot to every subscriber. Sends happen
// under the store lock so Cancel cannot close a channel mid-send; they
// never block, so holding the lock is cheap.
func (s *Store) broadcastLocked(snapshot []models.Article) {
	for _, sub := range s.subs {
		sendSnapshot(sub, snapshot)
	}
}

// sendSnapshot delivers with latest-wins semantics: if the subscriber has
// not drained the previous snapshot yet it is replaced, never queued, so
// a slow consumer always observes the newest list.
func sendSnapshot(sub *Subscription, snapshot []models.Article) {
	select {
	case sub.updates <- snapshot:
		return
	default:
	}

	select {
	case <-sub.updates:
	default:
	}

	select {
	case sub.updates <- snapshot:
	default:
		log.WithFields(log.Fields{
			"key": sub.key,
		}).Warn("Subscriber channel contended, dropping snapshot")
	}
}

// Shutdown cancels every remaining subscription
func (s *Store) Shutdown() {
	log.Info("Shutting down feed store")

	s.mu.Lock()
	subs := lo.Values(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
