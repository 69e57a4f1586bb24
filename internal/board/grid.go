package board

import (
	"fmt"
	"sort"
)

// ChunkSize is the edge length of one grid chunk.
const ChunkSize = 64

const chunkCells = ChunkSize * ChunkSize

// Terrain heights.
const (
	HeightWater  = 0
	HeightGround = 1
	HeightWall   = 2
)

// ChunkCoord addresses one chunk of the grid.
type ChunkCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

type chunk struct {
	heights []uint8
	foliage []uint8
}

func newChunk() *chunk {
	return &chunk{
		heights: make([]uint8, chunkCells),
		foliage: make([]uint8, chunkCells/8),
	}
}

// Grid is the sparse terrain of a level. Chunks that were never written
// read as open water without foliage.
type Grid struct {
	chunks map[ChunkCoord]*chunk
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{chunks: make(map[ChunkCoord]*chunk)}
}

// ChunkOf returns the chunk holding pos and the cell index inside it.
func ChunkOf(pos Position) (ChunkCoord, int) {
	cx, lx := floorDiv(pos.X, ChunkSize)
	cy, ly := floorDiv(pos.Y, ChunkSize)
	return ChunkCoord{X: cx, Y: cy}, lx + ly*ChunkSize
}

// HeightAt returns the terrain height at pos.
func (g *Grid) HeightAt(pos Position) int {
	coord, idx := ChunkOf(pos)
	c, ok := g.chunks[coord]
	if !ok {
		return HeightWater
	}
	return int(c.heights[idx])
}

// FoliageAt reports whether pos carries decorative foliage.
func (g *Grid) FoliageAt(pos Position) bool {
	coord, idx := ChunkOf(pos)
	c, ok := g.chunks[coord]
	if !ok {
		return false
	}
	return c.foliage[idx/8]&(1<<(idx%8)) != 0
}

// SetHeightAt writes a terrain height. It is meant for level construction;
// rules never change terrain mid-game.
func (g *Grid) SetHeightAt(pos Position, h int) {
	if h < 0 {
		h = 0
	}
	if h > 255 {
		h = 255
	}
	coord, idx := ChunkOf(pos)
	g.chunkFor(coord).heights[idx] = uint8(h)
}

// SetFoliageAt sets or clears the foliage flag at pos.
func (g *Grid) SetFoliageAt(pos Position, on bool) {
	coord, idx := ChunkOf(pos)
	c := g.chunkFor(coord)
	if on {
		c.foliage[idx/8] |= 1 << (idx % 8)
	} else {
		c.foliage[idx/8] &^= 1 << (idx % 8)
	}
}

// SetChunk replaces a whole chunk of heights. Values beyond chunkCells are
// ignored and missing ones read as water.
func (g *Grid) SetChunk(coord ChunkCoord, heights []int) {
	c := g.chunkFor(coord)
	for i := 0; i < chunkCells && i < len(heights); i++ {
		h := heights[i]
		if h < 0 {
			h = 0
		}
		if h > 255 {
			h = 255
		}
		c.heights[i] = uint8(h)
	}
}

// Chunks returns the populated chunk coordinates in row-major order.
func (g *Grid) Chunks() []ChunkCoord {
	coords := make([]ChunkCoord, 0, len(g.chunks))
	for coord := range g.chunks {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
	return coords
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := NewGrid()
	for coord, c := range g.chunks {
		cp := &chunk{
			heights: append([]uint8(nil), c.heights...),
			foliage: append([]uint8(nil), c.foliage...),
		}
		out.chunks[coord] = cp
	}
	return out
}

func (g *Grid) chunkFor(coord ChunkCoord) *chunk {
	c, ok := g.chunks[coord]
	if !ok {
		c = newChunk()
		g.chunks[coord] = c
	}
	return c
}

// gridChunkRecord is the serialized form of one chunk. Byte slices encode
// compactly as base64 in JSON.
type gridChunkRecord struct {
	Coord   ChunkCoord `json:"coord"`
	Heights []byte     `json:"heights"`
	Foliage []byte     `json:"foliage,omitempty"`
}

func (g *Grid) records() []gridChunkRecord {
	coords := g.Chunks()
	out := make([]gridChunkRecord, 0, len(coords))
	for _, coord := range coords {
		c := g.chunks[coord]
		rec := gridChunkRecord{
			Coord:   coord,
			Heights: append([]byte(nil), c.heights...),
		}
		for _, b := range c.foliage {
			if b != 0 {
				rec.Foliage = append([]byte(nil), c.foliage...)
				break
			}
		}
		out = append(out, rec)
	}
	return out
}

func gridFromRecords(recs []gridChunkRecord) (*Grid, error) {
	g := NewGrid()
	for _, rec := range recs {
		if len(rec.Heights) != chunkCells {
			return nil, fmt.Errorf("chunk %s: expected %d heights, got %d", rec.Coord, chunkCells, len(rec.Heights))
		}
		c := newChunk()
		copy(c.heights, rec.Heights)
		if len(rec.Foliage) > 0 {
			if len(rec.Foliage) != chunkCells/8 {
				return nil, fmt.Errorf("chunk %s: malformed foliage bitmap", rec.Coord)
			}
			copy(c.foliage, rec.Foliage)
		}
		g.chunks[rec.Coord] = c
	}
	return g, nil
}

func floorDiv(v, n int) (int, int) {
	q := v / n
	r := v % n
	if r < 0 {
		q--
		r += n
	}
	return q, r
}
