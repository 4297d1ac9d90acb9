package core

import "opstrack/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set:
// tender status transitions block on violation, dangling references only
// warn.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(TenderTransitionRule())
	engine.Register(ReferenceIntegrityRule())
	return engine
}
