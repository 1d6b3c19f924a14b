package httpapi

import (
	"context"

	"github.com/raragao87/opheliahub/internal/service/account"
	"github.com/raragao87/opheliahub/internal/service/balance"
	"github.com/raragao87/opheliahub/internal/service/budget"
	"github.com/raragao87/opheliahub/internal/service/split"
	"github.com/raragao87/opheliahub/internal/service/tag"
	"github.com/raragao87/opheliahub/internal/service/transaction"
)

// Store combines every repository and writer interface the services need. Both
// the memory and postgres stores satisfy it.
type Store interface {
	account.Repo
	account.Writer
	transaction.Repo
	transaction.Writer
	split.Repo
	split.Writer
	tag.Repo
	tag.Writer
	budget.Repo
	budget.Writer
	balance.Writer
}

// ReadyChecker is implemented by stores that can report connectivity.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
