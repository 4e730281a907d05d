package parser

// MaxInternPoolSize bounds the pool so logs with many distinct cells do not
// grow it without limit; past the bound strings are returned as is.
const MaxInternPoolSize = 200000

// maxInternLen is the longest cell worth interning. Type tags, status codes
// and small counters repeat on nearly every line; long free text does not.
const maxInternLen = 16

// StringPool deduplicates the repeated cells of one log so rows share their
// backing strings. It is owned by a single parse and is not safe for
// concurrent use.
type StringPool struct {
	pool map[string]string
}

// NewStringPool creates an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{pool: make(map[string]string, 1024)}
}

// Intern returns the pooled copy of s, adding s when it is short enough and
// the pool has room.
func (sp *StringPool) Intern(s string) string {
	if pooled, ok := sp.pool[s]; ok {
		return pooled
	}
	if len(s) > maxInternLen || len(sp.pool) >= MaxInternPoolSize {
		return s
	}
	sp.pool[s] = s
	return s
}

// InternAll interns every field in place.
func (sp *StringPool) InternAll(fields []string) {
	for i, f := range fields {
		fields[i] = sp.Intern(f)
	}
}

// Len returns the number of pooled strings.
func (sp *StringPool) Len() int {
	return len(sp.pool)
}
