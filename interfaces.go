package kyroql

import "github.com/KyroDB/kyroql/internal/trust"

// defaultTrustModel returns an empty trust.SimpleModel: every source
// weighted 1.0 until the caller registers overrides or supplies its own
// TrustModel via WithTrustModel.
func defaultTrustModel() TrustModel {
	return trust.NewSimpleModel()
}
