package memory

import (
	"github.com/KyroDB/kyroql/internal/belief"
	"github.com/KyroDB/kyroql/internal/conflict"
	"github.com/KyroDB/kyroql/internal/derivation"
	"github.com/KyroDB/kyroql/internal/entity"
	"github.com/KyroDB/kyroql/internal/pattern"
)

var (
	_ entity.Store     = (*EntityStore)(nil)
	_ belief.Store     = (*BeliefStore)(nil)
	_ pattern.Store    = (*PatternStore)(nil)
	_ conflict.Store   = (*ConflictStore)(nil)
	_ derivation.Store = (*DerivationStore)(nil)
)
