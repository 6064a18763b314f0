package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kakeibo/internal/core"
)

// Options serves fixed suggestion lists.
type Options struct {
	mu      sync.Mutex
	stores  []string
	methods []string
}

func New(stores, methods []string) *Options {
	return &Options{stores: dedupe(stores), methods: dedupe(methods)}
}

// NewFromFiles loads seed_stores.txt and seed_payment_methods.txt under base.
// A non-empty seed file replaces the corresponding list; the given lists are
// the fallback.
func NewFromFiles(base string, stores, methods []string) *Options {
	if seeded := readLines(filepath.Join(base, "seed_stores.txt")); len(seeded) > 0 {
		stores = seeded
	}
	if seeded := readLines(filepath.Join(base, "seed_payment_methods.txt")); len(seeded) > 0 {
		methods = seeded
	}
	return New(stores, methods)
}

// Options returns copies of the suggestion lists.
func (o *Options) Options(_ context.Context) (core.Options, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return core.Options{
		StoreOptions:         append([]string(nil), o.stores...),
		PaymentMethodOptions: append([]string(nil), o.methods...),
	}, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
