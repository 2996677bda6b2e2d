//go:build integration

package sale

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
	"github.com/noah-isme/loja-api/internal/db/dbtest"
)

func TestLedgerAgainstPostgres(t *testing.T) {
	pool := dbtest.StartPostgres(t)
	ledger := NewLedger(dbgen.New(pool), zerolog.Nop())
	ctx := context.Background()

	s, err := ledger.Create(ctx, NewSale{
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		CustomerPhone: "11999999999",
		ProductName:   "Fone de Ouvido Bluetooth TWS",
		Quantity:      1,
		PaymentMethod: "pix",
		Total:         decimal.RequireFromString("105.00"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, s.Status)
	require.True(t, decimal.RequireFromString("105").Equal(s.Total))

	upd, err := ledger.UpdateStatus(ctx, s.ID, StatusPaid, "123456")
	require.NoError(t, err)
	require.Equal(t, UpdateApplied, upd.Result)
	require.Equal(t, StatusPending, upd.Previous)
	require.Equal(t, "123456", upd.Sale.PaymentID)

	paid := upd.Sale

	upd, err = ledger.UpdateStatus(ctx, s.ID, StatusPaid, "654321")
	require.NoError(t, err)
	require.Equal(t, UpdateUnchanged, upd.Result)
	require.Equal(t, "123456", upd.Sale.PaymentID)
	require.True(t, paid.UpdatedAt.Equal(upd.Sale.UpdatedAt))

	upd, err = ledger.UpdateStatus(ctx, s.ID, StatusFailed, "")
	require.NoError(t, err)
	require.Equal(t, UpdateRejected, upd.Result)

	upd, err = ledger.UpdateStatus(ctx, s.ID+1000, StatusPaid, "")
	require.NoError(t, err)
	require.Equal(t, UpdateUnknown, upd.Result)
}

func TestConcurrentTerminalUpdatesSettleOnce(t *testing.T) {
	pool := dbtest.StartPostgres(t)
	ledger := NewLedger(dbgen.New(pool), zerolog.Nop())
	ctx := context.Background()

	s, err := ledger.Create(ctx, NewSale{CustomerName: "Bia", CustomerEmail: "bia@example.com", ProductName: "Mouse", Quantity: 1, PaymentMethod: "card", Total: decimal.NewFromInt(50)})
	require.NoError(t, err)

	targets := []Status{StatusPaid, StatusFailed, StatusPaid, StatusCancelled, StatusPaid, StatusFailed}
	results := make([]UpdateResult, len(targets))
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target Status) {
			defer wg.Done()
			upd, err := ledger.UpdateStatus(ctx, s.ID, target, "")
			results[i], errs[i] = upd.Result, err
		}(i, target)
	}
	wg.Wait()

	applied := 0
	for i, r := range results {
		require.NoError(t, errs[i])
		if r == UpdateApplied {
			applied++
		}
	}
	require.Equal(t, 1, applied)

	final, err := ledger.Get(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, final.Status.Terminal())
}
