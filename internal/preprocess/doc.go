// Package preprocess resolves conditional directives and expands macros
// for a single configuration.
//
// Every emitted line remembers the source line it came from, so that the
// outputs of different configurations can later be aligned row by row:
//
//	p := preprocess.New(
//	    preprocess.WithFilename("core.ppyx"),
//	    preprocess.WithEvaluator(configuration),
//	)
//	lines, err := p.Process(f)
//
// Three evaluation policies are supported. A cond.Configuration selects
// the branches that configuration takes. AllFalse drops every conditional
// branch except #else ones and only expands macros. A nil evaluator keeps
// the conditional directives verbatim and includes every line; its output
// is the reference text that all configurations are aligned against.
package preprocess
