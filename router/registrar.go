package router

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
)

// Registrar bulk-loads externally supplied route declarations into a trie.
// Every structural error is surfaced before any request is served; a route
// set that fails to load must abort startup.
type Registrar struct {
	logger types.Logger
}

func NewRegistrar(logger types.Logger) *Registrar {
	return &Registrar{logger: logger}
}

// Load builds a trie from declarations. It does not stop at the first bad
// declaration: all errors are collected and joined so the operator sees the
// full damage in one pass.
func (r *Registrar) Load(declarations []types.Declaration) (*Trie, error) {
	trie := NewTrie()
	var errs []error

	for _, decl := range declarations {
		if err := r.load(trie, decl); err != nil {
			errs = append(errs, err)
			continue
		}

		if r.logger != nil {
			r.logger.Debug("Route registered",
				zap.String("method", decl.Method),
				zap.String("pattern", decl.Pattern))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrRouteLoadFailed, errors.Join(errs...))
	}

	if r.logger != nil {
		r.logger.Info("Route table loaded", zap.Int("routes", trie.Len()))
	}

	return trie, nil
}

func (r *Registrar) load(trie *Trie, decl types.Declaration) error {
	method := strings.ToUpper(strings.TrimSpace(decl.Method))

	entry := &Entry{
		Method:     method,
		Pattern:    decl.Pattern,
		Handler:    decl.Handler,
		Schema:     decl.Schema,
		Middleware: decl.Middleware,
		Metadata:   decl.Metadata,
	}

	return trie.Insert(method, decl.Pattern, entry)
}
