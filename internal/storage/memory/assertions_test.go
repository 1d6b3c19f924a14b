package memory

import (
	"github.com/raragao87/opheliahub/internal/service/account"
	"github.com/raragao87/opheliahub/internal/service/balance"
	"github.com/raragao87/opheliahub/internal/service/budget"
	"github.com/raragao87/opheliahub/internal/service/split"
	"github.com/raragao87/opheliahub/internal/service/tag"
	"github.com/raragao87/opheliahub/internal/service/transaction"
)

// Compile-time interface checks. These live in a test file so that importing
// the store from service tests does not create an import cycle.
var (
	_ account.Repo       = (*Store)(nil)
	_ account.Writer     = (*Store)(nil)
	_ transaction.Repo   = (*Store)(nil)
	_ transaction.Writer = (*Store)(nil)
	_ split.Repo         = (*Store)(nil)
	_ split.Writer       = (*Store)(nil)
	_ tag.Repo           = (*Store)(nil)
	_ tag.Writer         = (*Store)(nil)
	_ budget.Repo        = (*Store)(nil)
	_ budget.Writer      = (*Store)(nil)
	_ balance.Repo       = (*Store)(nil)
	_ balance.Writer     = (*Store)(nil)
)
