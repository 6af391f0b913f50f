package badger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/policyqa/core"
	"github.com/poiesic/policyqa/storage"
)

// Backend owns the Badger handle behind a ChunkRepository. Similarity
// search is a full scan over chunk keys; policy corpora are small enough
// that an index would not pay for itself.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes Badger's printf-style logging into slog.
type slogAdapter struct{ l *slog.Logger }

var _ badger.Logger = slogAdapter{}

func (a slogAdapter) Errorf(f string, v ...any)   { a.l.Error(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Warningf(f string, v ...any) { a.l.Warn(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Infof(f string, v ...any)    { a.l.Debug(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Debugf(f string, v ...any)   { a.l.Debug(fmt.Sprintf(f, v...)) }

// OpenBackend opens the store at dir, creating the directory on first use.
// With inMemory set, dir is ignored and nothing touches disk.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	logger := slog.Default().With("component", "badger")

	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}
	// Vectors are float noise to a block compressor.
	opts = opts.WithCompression(options.None).WithLogger(slogAdapter{logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open chunk store %q: %w", dir, err)
	}
	logger.Debug("chunk store opened", "dir", dir, "in_memory", inMemory)
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return os.MkdirAll(dir, 0o755)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn inside a transaction that is always discarded afterwards.
// Write transactions must be committed by fn.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// FindSimilar returns up to limit chunks whose dot product with vector is at
// least minSimilarity, best first. Stored vectors are unit length, so the
// dot product is the cosine similarity. Chunks without a vector, or with a
// vector of another width, are skipped. Equal scores keep key order.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	top := make([]*core.ScoredChunk, 0, limit)
	skipped := 0
	err := b.WithTx(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Prefix:         []byte(chunkPrefix),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunk, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			switch len(chunk.Vector) {
			case 0:
				continue
			case len(vector):
			default:
				skipped++
				continue
			}

			score := dotProduct(vector, chunk.Vector)
			if score < minSimilarity {
				continue
			}
			top = insertRanked(top, &core.ScoredChunk{Chunk: chunk, Score: score}, limit)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		b.logger.Warn("skipped chunks with mismatched vector width", "count", skipped, "want", len(vector))
	}
	return top, nil
}

func decodeItem(item *badger.Item) (*core.Chunk, error) {
	var chunk *core.Chunk
	err := item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// insertRanked places hit into the descending list, after any equal
// scores, and keeps at most limit entries.
func insertRanked(top []*core.ScoredChunk, hit *core.ScoredChunk, limit int) []*core.ScoredChunk {
	pos, _ := slices.BinarySearchFunc(top, hit.Score, func(s *core.ScoredChunk, score float32) int {
		if s.Score >= score {
			return -1
		}
		return 1
	})
	if pos >= limit {
		return top
	}
	if len(top) == limit {
		top = top[:limit-1]
	}
	return slices.Insert(top, pos, hit)
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}
