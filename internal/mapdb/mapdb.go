package mapdb

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

// Store implements worldmap.MapDb against a Postgres-backed tiles/grids
// cache. Every method matches the interface's no-error signature: a
// failed query is retried a bounded number of times, logged, and then
// degrades to a zero value/false so a MapDb outage never blocks or
// panics the in-memory replica (spec.md §7, §5's deadlock-avoidance
// note — this type never nests one query inside another's transaction).
type Store struct {
	db      *DB
	log     *zap.Logger
	backoff retry.Backoff

	// gridCache mirrors the small write-through cache the teacher's
	// repositories keep in front of Postgres for hot ids; here it also
	// lets GetGridByID/GetGrid serve without round-tripping binary
	// decode twice in the same tick.
	mu        sync.Mutex
	gridCache map[int64]*worldmap.Grid
}

func NewStore(db *DB, attempts int, baseDelay time.Duration, log *zap.Logger) (*Store, error) {
	backoff, err := retry.NewConstant(baseDelay)
	if err != nil {
		return nil, err
	}
	if attempts > 0 {
		backoff = retry.WithMaxRetries(uint64(attempts), backoff)
	}
	return &Store{
		db:        db,
		log:       log,
		backoff:   backoff,
		gridCache: make(map[int64]*worldmap.Grid),
	}, nil
}

func (s *Store) withRetry(ctx context.Context, op string, f func(ctx context.Context) error) error {
	err := retry.Do(ctx, s.backoff, func(ctx context.Context) error {
		if err := f(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("mapdb operation failed, serving from memory only", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (s *Store) GetTiles() []worldmap.Tile {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var tiles []worldmap.Tile
	err := s.withRetry(ctx, "GetTiles", func(ctx context.Context) error {
		rows, err := s.db.Pool.Query(ctx, `SELECT id, version, name, color FROM tiles`)
		if err != nil {
			return err
		}
		defer rows.Close()
		tiles = nil
		for rows.Next() {
			var t worldmap.Tile
			if err := rows.Scan(&t.ID, &t.Version, &t.Name, &t.Color); err != nil {
				return err
			}
			tiles = append(tiles, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil
	}
	return tiles
}

func (s *Store) GetTileIDByName(name string) (int32, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id int32
	found := false
	err := s.withRetry(ctx, "GetTileIDByName", func(ctx context.Context) error {
		row := s.db.Pool.QueryRow(ctx, `SELECT id FROM tiles WHERE name = $1`, name)
		switch err := row.Scan(&id); err {
		case nil:
			found = true
			return nil
		case pgx.ErrNoRows:
			found = false
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return 0, false
	}
	return id, found
}

func (s *Store) SetTile(tile worldmap.Tile) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = s.withRetry(ctx, "SetTile", func(ctx context.Context) error {
		_, err := s.db.Pool.Exec(ctx, `
			INSERT INTO tiles (id, version, name, color) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, name = EXCLUDED.name, color = EXCLUDED.color
			WHERE tiles.version < EXCLUDED.version
		`, tile.ID, tile.Version, tile.Name, tile.Color)
		return err
	})
}

func (s *Store) GetGridIDsBySegmentID(segmentID int64) []int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var ids []int64
	err := s.withRetry(ctx, "GetGridIDsBySegmentID", func(ctx context.Context) error {
		rows, err := s.db.Pool.Query(ctx, `SELECT id FROM grids WHERE segment_id = $1`, segmentID)
		if err != nil {
			return err
		}
		defer rows.Close()
		ids = nil
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil
	}
	return ids
}

func (s *Store) GetGridByID(id int64) (*worldmap.Grid, bool) {
	s.mu.Lock()
	if g, ok := s.gridCache[id]; ok {
		s.mu.Unlock()
		return g, true
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var grid *worldmap.Grid
	err := s.withRetry(ctx, "GetGridByID", func(ctx context.Context) error {
		row := s.db.Pool.QueryRow(ctx, `SELECT id, revision, segment_id, pos_x, pos_y, heights, tiles FROM grids WHERE id = $1`, id)
		g, err := scanGridRow(row)
		if err == pgx.ErrNoRows {
			grid = nil
			return nil
		}
		if err != nil {
			return err
		}
		grid = g
		return nil
	})
	if err != nil || grid == nil {
		return nil, false
	}
	s.mu.Lock()
	s.gridCache[id] = grid
	s.mu.Unlock()
	return grid, true
}

func (s *Store) GetGrid(segmentID int64, position vec2.I) (*worldmap.Grid, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var grid *worldmap.Grid
	err := s.withRetry(ctx, "GetGrid", func(ctx context.Context) error {
		row := s.db.Pool.QueryRow(ctx, `SELECT id, revision, segment_id, pos_x, pos_y, heights, tiles FROM grids WHERE segment_id = $1 AND pos_x = $2 AND pos_y = $3`,
			segmentID, position.X, position.Y)
		g, err := scanGridRow(row)
		if err == pgx.ErrNoRows {
			grid = nil
			return nil
		}
		if err != nil {
			return err
		}
		grid = g
		return nil
	})
	if err != nil || grid == nil {
		return nil, false
	}
	s.mu.Lock()
	s.gridCache[grid.ID] = grid
	s.mu.Unlock()
	return grid, true
}

// AddGrid stores a grid's heights and tiles under its id with revision 0,
// segment 0 and position (0,0); the neighbour hints are not used, no
// segment is resolved or merged, and a row that already exists is left as
// it is. UpdateGrid replaces heights and tiles and bumps the revision,
// leaving segment and position untouched. Both drop the cached entry.
func (s *Store) AddGrid(id int64, heights []float32, tiles []int32, neighbours []worldmap.GridNeighbour) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = s.withRetry(ctx, "AddGrid", func(ctx context.Context) error {
		_, err := s.db.Pool.Exec(ctx, `
			INSERT INTO grids (id, revision, segment_id, pos_x, pos_y, heights, tiles)
			VALUES ($1, 0, 0, 0, 0, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, id, encodeFloats(heights), encodeInts(tiles))
		return err
	})
	s.mu.Lock()
	delete(s.gridCache, id)
	s.mu.Unlock()
}

func (s *Store) UpdateGrid(id int64, heights []float32, tiles []int32) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = s.withRetry(ctx, "UpdateGrid", func(ctx context.Context) error {
		_, err := s.db.Pool.Exec(ctx, `
			UPDATE grids SET revision = revision + 1, heights = $2, tiles = $3 WHERE id = $1
		`, id, encodeFloats(heights), encodeInts(tiles))
		return err
	})
	s.mu.Lock()
	delete(s.gridCache, id)
	s.mu.Unlock()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGridRow(row rowScanner) (*worldmap.Grid, error) {
	var g worldmap.Grid
	var posX, posY int32
	var heightsRaw, tilesRaw []byte
	if err := row.Scan(&g.ID, &g.Revision, &g.SegmentID, &posX, &posY, &heightsRaw, &tilesRaw); err != nil {
		return nil, err
	}
	g.Position = vec2.NewI(posX, posY)
	g.Heights = decodeFloats(heightsRaw)
	g.Tiles = decodeInts(tilesRaw)
	return &g, nil
}

func encodeFloats(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeFloats(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func encodeInts(values []int32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func decodeInts(buf []byte) []int32 {
	out := make([]int32, len(buf)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
