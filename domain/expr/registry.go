package expr

import "fmt"

// ResultRule describes how a registry function's result type is derived
// from its argument types.
type ResultRule int

const (
	// ResultDouble and friends are fixed result types
	ResultDouble ResultRule = iota
	ResultInt
	ResultBoolean
	// ResultSameAsFirst propagates the first argument's type
	ResultSameAsFirst
	// ResultItems propagates the item type of the first (array) argument
	ResultItems
	// ResultDynamic depends on runtime structure (e.g. attr paths); the
	// assembler resolves it against the declared cell/record types
	ResultDynamic
)

// Signature describes one callable function in the fixed registry.
// MaxArgs of -1 means unbounded.
type Signature struct {
	MinArgs int
	MaxArgs int
	Result  ResultRule
}

func (s Signature) arityString() string {
	if s.MaxArgs < 0 {
		return fmt.Sprintf("at least %d", s.MinArgs)
	}
	if s.MinArgs == s.MaxArgs {
		return fmt.Sprintf("%d", s.MinArgs)
	}
	return fmt.Sprintf("%d..%d", s.MinArgs, s.MaxArgs)
}

// registry is the closed set of function names the builder accepts. It
// mirrors the subset of the PFA library the producers emit plus the
// operators any hand-built action may reasonably use.
var registry = map[string]Signature{
	// arithmetic
	"+":  {2, 2, ResultDouble},
	"-":  {2, 2, ResultDouble},
	"*":  {2, 2, ResultDouble},
	"/":  {2, 2, ResultDouble},
	"**": {2, 2, ResultDouble},
	"u-": {1, 1, ResultDouble},

	// comparison
	"==": {2, 2, ResultBoolean},
	"!=": {2, 2, ResultBoolean},
	"<":  {2, 2, ResultBoolean},
	"<=": {2, 2, ResultBoolean},
	">":  {2, 2, ResultBoolean},
	">=": {2, 2, ResultBoolean},

	// logical
	"&&": {2, 2, ResultBoolean},
	"||": {2, 2, ResultBoolean},
	"!":  {1, 1, ResultBoolean},

	// structure access: first argument is the object, the rest is the path
	"attr": {2, -1, ResultDynamic},

	// elementary math
	"m.exp":  {1, 1, ResultDouble},
	"m.ln":   {1, 1, ResultDouble},
	"m.abs":  {1, 1, ResultDouble},
	"m.sqrt": {1, 1, ResultDouble},

	// link functions
	"m.link.logit":   {1, 1, ResultDouble},
	"m.link.probit":  {1, 1, ResultDouble},
	"m.link.cloglog": {1, 1, ResultDouble},
	"m.link.softmax": {1, 1, ResultSameAsFirst},

	// array reductions
	"a.sum":    {1, 1, ResultItems},
	"a.mean":   {1, 1, ResultItems},
	"a.max":    {1, 1, ResultItems},
	"a.argmax": {1, 1, ResultInt},
	"a.len":    {1, 1, ResultInt},

	// model combinators
	"model.reg.linear": {2, 2, ResultDouble},
}

// Lookup returns the signature for a registered function name
func Lookup(name string) (Signature, bool) {
	sig, ok := registry[name]
	return sig, ok
}

// Functions returns every registered name, primarily so tests can
// enumerate the closed set.
func Functions() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
