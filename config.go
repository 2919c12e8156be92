package archivekit

import "github.com/arclane/archivekit/internal/strategy"

// StrategyRule mirrors internal/strategy.Rule at the public surface
// (spec §3): an ordered predicate over extension and size mapped to a
// compression algorithm and level.
type StrategyRule struct {
	Extensions []string
	MinSize    int64
	MaxSize    int64
	Algorithm  Algorithm
	Level      int
}

// Config is the structured record consumed by the engine (spec §6):
// "a structured record, not a flags parser" — callers (the CLI
// collaborator) build one from whatever configuration source they
// like and pass it in.
type Config struct {
	DefaultLevel       int
	MinFileSize        int64
	Threads            int
	ForceCompress      bool
	Rules              []StrategyRule
	SizeRules          []StrategyRule
	LargeFileThreshold int64
	EnableLongMode     bool
}

// engine builds the internal strategy engine this Config describes.
// Rules and SizeRules are concatenated, Rules first, since both are
// just ordered predicates over extension/size (spec §4.4: "extension
// and size rules share one ordered list").
func (c Config) engine() *strategy.Engine {
	rules := make([]strategy.Rule, 0, len(c.Rules)+len(c.SizeRules))
	for _, r := range append(c.Rules, c.SizeRules...) {
		rules = append(rules, strategy.Rule{
			Extensions: r.Extensions,
			MinSize:    r.MinSize,
			MaxSize:    r.MaxSize,
			Algorithm:  r.Algorithm,
			Level:      r.Level,
		})
	}
	return strategy.New(strategy.Config{
		Rules:              rules,
		DefaultLevel:       c.DefaultLevel,
		MinFileSize:        c.MinFileSize,
		ForceCompress:      c.ForceCompress,
		LargeFileThreshold: c.LargeFileThreshold,
		EnableLongMode:     c.EnableLongMode,
	})
}
