package knowledge

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type Chunk struct {
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Index is a flat in-memory vector index persisted as JSON.
type Index struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Chunks    []Chunk   `json:"chunks"`
}

func (x *Index) Len() int {
	return len(x.Chunks)
}

// Search returns up to k chunks ordered by cosine similarity to vector.
func (x *Index) Search(vector []float32, k int) []Chunk {
	type scored struct {
		chunk Chunk
		score float64
	}
	results := make([]scored, 0, len(x.Chunks))
	for _, c := range x.Chunks {
		results = append(results, scored{chunk: c, score: cosine(vector, c.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	k = min(k, len(results))
	found := make([]Chunk, 0, k)
	for _, r := range results[:k] {
		found = append(found, r.chunk)
	}
	return found
}

func (x *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.Marshal(x)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, path)
}

func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var x Index
	if err = json.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return &x, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
