package feed_test

import (
	"errors"
	"testing"
	"time"

	"lumina/feed"
	"lumina/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func published(id string, at *time.Time) models.Article {
	return models.Article{
		Id:          id,
		Title:       "No Title",
		ArticleType: "Trending Topic",
		Categories:  []string{},
		Status:      models.StatusPublished,
		PublishedAt: at,
	}
}

func at(hour int) *time.Time {
	t := time.Date(2024, 6, 1, hour, 0, 0, 0, time.UTC)
	return &t
}

func ids(articles []models.Article) []string {
	result := make([]string, 0, len(articles))
	for _, article := range articles {
		result = append(result, article.Id)
	}
	return result
}

func TestSnapshotFiltersAndOrders(t *testing.T) {
	store := feed.NewStore()

	store.Apply(models.CreateArticleEvent{Article: published("t1", at(1))})
	store.Apply(models.CreateArticleEvent{Article: published("t3", at(3))})
	draft := published("draft", at(4))
	draft.Status = "Draft"
	store.Apply(models.CreateArticleEvent{Article: draft})
	store.Apply(models.CreateArticleEvent{Article: published("t2", at(2))})

	assert.Equal(t, []string{"t3", "t2", "t1"}, ids(store.Snapshot()))
}

func TestSnapshotOrdersAbsentTimestampsLast(t *testing.T) {
	store := feed.NewStore()

	store.Apply(models.CreateArticleEvent{Article: published("undated-b", nil)})
	store.Apply(models.CreateArticleEvent{Article: published("t2", at(2))})
	store.Apply(models.CreateArticleEvent{Article: published("undated-a", nil)})
	store.Apply(models.CreateArticleEvent{Article: published("t3", at(3))})

	// Dated articles first (most recent first), undated after, ties on id descending
	assert.Equal(t, []string{"t3", "t2", "undated-b", "undated-a"}, ids(store.Snapshot()))
}

func TestUpdateAndDeleteReshapeTheFeed(t *testing.T) {
	store := feed.NewStore()

	store.Apply(models.CreateArticleEvent{Article: published("t1", at(1))})
	store.Apply(models.CreateArticleEvent{Article: published("t2", at(2))})

	// Unpublishing an article removes it from the feed without a delete
	unpublished := published("t2", at(2))
	unpublished.Status = "Archived"
	store.Apply(models.UpdateArticleEvent{Article: unpublished})
	assert.Equal(t, []string{"t1"}, ids(store.Snapshot()))

	store.Apply(models.DeleteArticleEvent{Article: models.Article{Id: "t1"}})
	assert.Empty(t, store.Snapshot())
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	store := feed.NewStore()
	store.Apply(models.CreateArticleEvent{Article: published("t1", at(1))})

	sub := store.Subscribe()
	defer sub.Cancel()

	// Current state is delivered on subscribe
	initial := requireSnapshot(t, sub)
	assert.Equal(t, []string{"t1"}, ids(initial))

	store.Apply(models.CreateArticleEvent{Article: published("t2", at(2))})
	next := requireSnapshot(t, sub)
	assert.Equal(t, []string{"t2", "t1"}, ids(next))
}

func TestSlowSubscriberSeesLatestSnapshot(t *testing.T) {
	store := feed.NewStore()

	sub := store.Subscribe()
	defer sub.Cancel()

	// Three snapshots without the consumer draining: the pending one is
	// replaced each time, never queued
	store.Apply(models.CreateArticleEvent{Article: published("t1", at(1))})
	store.Apply(models.CreateArticleEvent{Article: published("t2", at(2))})
	store.Apply(models.CreateArticleEvent{Article: published("t3", at(3))})

	latest := requireSnapshot(t, sub)
	assert.Equal(t, []string{"t3", "t2", "t1"}, ids(latest))
}

func TestCancelStopsEmissions(t *testing.T) {
	store := feed.NewStore()
	sub := store.Subscribe()

	sub.Cancel()
	// Cancel is idempotent
	sub.Cancel()

	store.Apply(models.CreateArticleEvent{Article: published("t1", at(1))})

	// Channel is closed; the initial snapshot may still be buffered but
	// nothing emitted after Cancel is observed
	for {
		snapshot, ok := <-sub.Updates()
		if !ok {
			return
		}
		assert.Empty(t, snapshot)
	}
}

func TestFailReachesSubscribers(t *testing.T) {
	store := feed.NewStore()
	sub := store.Subscribe()
	defer sub.Cancel()

	transportErr := errors.New("websocket closed")
	store.Fail(transportErr)

	select {
	case err := <-sub.Errs():
		assert.ErrorIs(t, err, transportErr)
	case <-time.After(time.Second):
		t.Fatal("expected error emission")
	}

	// The update channel is unaffected: the last known list stays valid
	assert.Equal(t, []string{}, ids(requireSnapshot(t, sub)))
}

func TestFailAndApplyDuringMassCancel(t *testing.T) {
	store := feed.NewStore()

	subs := make([]*feed.Subscription, 0, 200)
	for i := 0; i < 200; i++ {
		subs = append(subs, store.Subscribe())
	}

	// Hammer error and snapshot emissions while every subscription is
	// being cancelled; no send may race a channel close
	done := make(chan struct{})
	go func() {
		defer close(done)
		transportErr := errors.New("stream reset")
		for i := 0; i < 500; i++ {
			store.Fail(transportErr)
			store.Apply(models.CreateArticleEvent{Article: published("t1", at(1))})
		}
	}()

	for _, sub := range subs {
		sub.Cancel()
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("emissions did not finish")
	}
}

func TestSeedEmitsCachedState(t *testing.T) {
	store := feed.NewStore()
	sub := store.Subscribe()
	defer sub.Cancel()

	// Drain the empty initial snapshot
	requireSnapshot(t, sub)

	store.Seed([]models.Article{
		published("t1", at(1)),
		published("t2", at(2)),
	})

	assert.Equal(t, []string{"t2", "t1"}, ids(requireSnapshot(t, sub)))
}

func requireSnapshot(t *testing.T, sub *feed.Subscription) []models.Article {
	t.Helper()
	select {
	case snapshot, ok := <-sub.Updates():
		require.True(t, ok, "updates channel closed")
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("expected snapshot emission")
		return nil
	}
}
