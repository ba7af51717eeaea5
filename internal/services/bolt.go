package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/vantageintel/vantage-web-ui/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB implements the article catalog using a BoltDB backend. It stores
// articles in a single bucket keyed by sequenced IDs and maintains one index
// bucket per category for filtered listing. Only catalog content lives here;
// conversations and analysis state stay in memory.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB creates a new BoltDB instance with the specified file path. It
// initializes the database with required buckets and returns an error if the
// database cannot be opened or initialized. The database file is created with
// 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("articles"))
		return err
	})

	return BoltDB{db: db}, err
}

func categoryBucketName(category string) []byte {
	return []byte(fmt.Sprintf("category-%s", category))
}

// Articles retrieves all stored articles in reverse insertion order, so the
// most recently added article comes first. It returns an error if the
// database operation fails.
func (b BoltDB) Articles(context.Context) ([]models.Article, error) {
	var articles []models.Article
	err := b.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("articles"))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var article models.Article
			if err := json.Unmarshal(v, &article); err != nil {
				return fmt.Errorf("failed to unmarshal article: %w", err)
			}
			articles = append(articles, article)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(articles)
	return articles, nil
}

// ArticlesByCategory retrieves the articles indexed under the given category
// in reverse insertion order. An unknown category yields an empty slice, not
// an error.
func (b BoltDB) ArticlesByCategory(_ context.Context, category string) ([]models.Article, error) {
	var articles []models.Article
	err := b.db.View(func(tx *bolt.Tx) error {
		cb := tx.Bucket(categoryBucketName(category))
		if cb == nil {
			return nil
		}
		ab := tx.Bucket([]byte("articles"))
		if ab == nil {
			return nil
		}

		return cb.ForEach(func(k, _ []byte) error {
			v := ab.Get(k)
			if v == nil {
				return nil
			}
			var article models.Article
			if err := json.Unmarshal(v, &article); err != nil {
				return fmt.Errorf("failed to unmarshal article: %w", err)
			}
			articles = append(articles, article)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(articles)
	return articles, nil
}

// Article retrieves a single article by ID. It returns models.ErrArticleNotFound
// if no article is stored under that ID.
func (b BoltDB) Article(_ context.Context, id string) (models.Article, error) {
	var article models.Article
	err := b.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("articles"))
		if b == nil {
			return models.ErrArticleNotFound
		}

		v := b.Get([]byte(id))
		if v == nil {
			return models.ErrArticleNotFound
		}

		if err := json.Unmarshal(v, &article); err != nil {
			return fmt.Errorf("failed to unmarshal article: %w", err)
		}
		return nil
	})
	return article, err
}

// AddArticle stores a new article and indexes it under its category. It
// generates a unique ID for the article by combining a sequence number with
// the article's original ID, and returns the new ID or an error if the
// operation fails.
func (b BoltDB) AddArticle(_ context.Context, article models.Article) (string, error) {
	var newID string
	err := b.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("articles"))
		if b == nil {
			return nil
		}

		idPrefix, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		newID = fmt.Sprintf("%d-%s", idPrefix, article.ID)
		article.ID = newID

		cb, err := tx.CreateBucketIfNotExists(categoryBucketName(article.Category))
		if err != nil {
			return fmt.Errorf("failed to create category bucket: %w", err)
		}
		if err := cb.Put([]byte(newID), nil); err != nil {
			return fmt.Errorf("failed to index article: %w", err)
		}

		v, err := json.Marshal(article)
		if err != nil {
			return fmt.Errorf("failed to marshal article: %w", err)
		}

		return b.Put([]byte(newID), v)
	})

	return newID, err
}

// Seed stores the given articles if the catalog is empty. An already
// populated catalog is left untouched, so restarts keep previously added
// articles.
func (b BoltDB) Seed(ctx context.Context, articles []models.Article) error {
	existing, err := b.Articles(ctx)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, article := range articles {
		if _, err := b.AddArticle(ctx, article); err != nil {
			return fmt.Errorf("failed to seed article: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}
