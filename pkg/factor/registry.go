package factor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/raykavin/factorlab/pkg/core"
	"github.com/raykavin/factorlab/pkg/param"
)

// PlBuilder builds an expression factor from its parsed param.
type PlBuilder func(p param.Param) (PlFactor, error)

// TBuilder builds an eager factor from its parsed param.
type TBuilder func(p param.Param) (TFactor, error)

var (
	regMu    sync.RWMutex
	plFacMap = map[string]PlBuilder{}
	tFacMap  = map[string]TBuilder{}
)

// RegisterPl binds a builder to a factor name. Registering a name twice is
// an error.
func RegisterPl(name string, b PlBuilder) error {
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := plFacMap[name]; ok {
		return fmt.Errorf("%w: factor %q already registered", core.ErrRegistry, name)
	}
	plFacMap[name] = b
	return nil
}

// MustRegisterPl is RegisterPl but panics on duplicates; used from package
// init blocks.
func MustRegisterPl(name string, b PlBuilder) {
	if err := RegisterPl(name, b); err != nil {
		panic(err)
	}
}

// RegisterT binds an eager factor builder to a name.
func RegisterT(name string, b TBuilder) error {
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := tFacMap[name]; ok {
		return fmt.Errorf("%w: factor %q already registered", core.ErrRegistry, name)
	}
	tFacMap[name] = b
	return nil
}

// MustRegisterT is RegisterT but panics on duplicates.
func MustRegisterT(name string, b TBuilder) {
	if err := RegisterT(name, b); err != nil {
		panic(err)
	}
}

// RegisteredPl lists the registered expression factor names.
func RegisteredPl() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(plFacMap))
	for k := range plFacMap {
		out = append(out, k)
	}
	return out
}

// splitName breaks "ma_20" into ("ma", I32(20)). When no underscore yields a
// registered prefix the whole name is looked up with a None param.
func splitName(name string, lookup func(string) bool) (string, param.Param, bool) {
	if i := strings.LastIndex(name, "_"); i > 0 {
		prefix, tail := name[:i], name[i+1:]
		if lookup(prefix) {
			return prefix, param.Parse(tail), true
		}
	}
	if lookup(name) {
		return name, param.Param{}, true
	}
	return "", param.Param{}, false
}

// ParsePlFactor resolves a factor name like "ma_20" or "close" back into a
// factor through the registry.
func ParsePlFactor(name string) (PlFactor, error) {
	regMu.RLock()
	base, p, ok := splitName(name, func(k string) bool {
		_, found := plFacMap[k]
		return found
	})
	var b PlBuilder
	if ok {
		b = plFacMap[base]
	}
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown factor %q", core.ErrParse, name)
	}
	return b(p)
}

// ParseTFactor resolves an eager factor name through the registry.
func ParseTFactor(name string) (TFactor, error) {
	regMu.RLock()
	base, p, ok := splitName(name, func(k string) bool {
		_, found := tFacMap[k]
		return found
	})
	var b TBuilder
	if ok {
		b = tFacMap[base]
	}
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown factor %q", core.ErrParse, name)
	}
	return b(p)
}

// IsPlRegistered reports whether a name resolves to an expression factor.
func IsPlRegistered(name string) bool {
	_, err := ParsePlFactor(name)
	return err == nil
}

// IsTRegistered reports whether a name resolves to an eager factor.
func IsTRegistered(name string) bool {
	_, err := ParseTFactor(name)
	return err == nil
}
