package export

// ── Transformer ────────────────────────────────────────────
// Transformers run on each record between the stored rows and the
// destination. Each returns the (possibly modified) record and whether to
// keep it.

// Transformer processes a single record.
type Transformer interface {
	Transform(Record) (Record, bool)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(Record) (Record, bool)

func (f TransformerFunc) Transform(r Record) (Record, bool) { return f(r) }

// SelectTransform keeps only the listed columns.
type SelectTransform struct {
	Columns []string
}

func (t *SelectTransform) Transform(r Record) (Record, bool) {
	filtered := make(map[string]any, len(t.Columns))
	for _, c := range t.Columns {
		if v, ok := r.Data[c]; ok {
			filtered[c] = v
		}
	}
	r.Data = filtered
	return r, true
}

// LimitTransform caps the number of records.
type LimitTransform struct {
	Count int
	seen  int
}

func NewLimitTransform(count int) *LimitTransform {
	return &LimitTransform{Count: count}
}

func (t *LimitTransform) Transform(r Record) (Record, bool) {
	t.seen++
	return r, t.seen <= t.Count
}

// ApplyTransformers runs a chain of transformers on a record.
func ApplyTransformers(r Record, ts []Transformer) (Record, bool) {
	for _, t := range ts {
		var keep bool
		r, keep = t.Transform(r)
		if !keep {
			return r, false
		}
	}
	return r, true
}
