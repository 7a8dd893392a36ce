package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/mi/mitest"
	"github.com/matthewbaird/ioncon/internal/types"
)

func TestCheckAuthority_BitInRange(t *testing.T) {
	gw := mitest.New().On(ProgramAuthority, TxSelAuthority, mitest.Items(mi.Record{"ALO": "0101"}))
	svc := NewRecordService(gw, nil)

	ok, err := svc.CheckAuthority(context.Background(), "100", "AAA", "JDOE", "CRZ009", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, mi.Request{"DIVI": "AAA", "USID": "JDOE", "PGNM": "CRZ009"}, calls[0].Request)
}

func TestCheckAuthority_BitOutOfRange(t *testing.T) {
	gw := mitest.New().On(ProgramAuthority, TxSelAuthority, mitest.Items(mi.Record{"ALO": "0101"}))
	svc := NewRecordService(gw, nil)

	ok, err := svc.CheckAuthority(context.Background(), "100", "AAA", "JDOE", "CRZ009", 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CheckAuthority(context.Background(), "100", "AAA", "JDOE", "CRZ009", 0)
	require.NoError(t, err)
	assert.False(t, ok, "bit 0 is '0'")
}

func TestCheckAuthority_RetriesWithoutDivision(t *testing.T) {
	gw := mitest.New().On(ProgramAuthority, TxSelAuthority,
		mitest.Items(),
		mitest.Items(mi.Record{"ALO": "11"}),
	)
	svc := NewRecordService(gw, nil)

	ok, err := svc.CheckAuthority(context.Background(), "100", "AAA", "JDOE", "CRZ009", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	calls := gw.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "AAA", calls[0].Request["DIVI"])
	assert.Equal(t, "", calls[1].Request["DIVI"])
	assert.Equal(t, "JDOE", calls[1].Request["USID"])
}

func TestCheckAuthority_EmptyTwice(t *testing.T) {
	gw := mitest.New().On(ProgramAuthority, TxSelAuthority, mitest.Items())
	svc := NewRecordService(gw, nil)

	ok, err := svc.CheckAuthority(context.Background(), "100", "AAA", "JDOE", "CRZ009", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, gw.Calls(), 2)
}

func TestCheckAuthority_Error(t *testing.T) {
	gw := mitest.New().On(ProgramAuthority, TxSelAuthority, mitest.Fail("XAU0001", "", "not allowed"))
	svc := NewRecordService(gw, nil)

	_, err := svc.CheckAuthority(context.Background(), "100", "AAA", "JDOE", "CRZ009", 1)
	assert.True(t, mi.IsCode(err, "XAU0001"))
	assert.Len(t, gw.Calls(), 1, "errors are not retried")
}

func TestRequestShapes(t *testing.T) {
	ctx := context.Background()
	gw := mitest.New()
	svc := NewRecordService(gw, nil)
	key := types.Key{PK01: "A", PK02: "B", PK03: "C"}

	_, err := svc.List(ctx)
	require.NoError(t, err)
	_, err = svc.GetAlpha(ctx, "A", "B", "C")
	require.NoError(t, err)
	_, err = svc.GetNumeric(ctx, "A", "B", "C")
	require.NoError(t, err)
	_, err = svc.AddAlpha(ctx, key, types.Alpha{AL30: "desc", AL35: "x"})
	require.NoError(t, err)
	_, err = svc.ChangeNumeric(ctx, key, types.Numeric{N096: true, N296: 3})
	require.NoError(t, err)
	_, err = svc.DeleteAlpha(ctx, "A", "B", "C", "D")
	require.NoError(t, err)
	_, err = svc.DeleteNumeric(ctx, "A", "B", "C", "D")
	require.NoError(t, err)

	calls := gw.Calls()
	require.Len(t, calls, 7)

	assert.Equal(t, mi.Request{"KPID": "IONCON"}, calls[0].Request)
	assert.Equal(t, TxListAlpha, calls[0].Transaction)

	keyFields := mi.Request{"KPID": "IONCON", "PK01": "A", "PK02": "B", "PK03": "C"}
	assert.Equal(t, keyFields, calls[1].Request)
	assert.Equal(t, TxGetAlpha, calls[1].Transaction)
	assert.Equal(t, TxGetNumeric, calls[2].Transaction)

	assert.Equal(t, TxAddAlpha, calls[3].Transaction)
	assert.Equal(t, "desc", calls[3].Request["AL30"])
	assert.Equal(t, "A", calls[3].Request["PK01"])
	assert.Len(t, calls[3].Request, 11)

	assert.Equal(t, TxChangeNumeric, calls[4].Transaction)
	assert.Equal(t, "1", calls[4].Request["N096"])
	assert.Equal(t, "0", calls[4].Request["N196"])
	assert.Equal(t, "3", calls[4].Request["N296"])
	assert.Len(t, calls[4].Request, 14)

	for _, c := range calls[5:] {
		assert.Equal(t, keyFields, c.Request, "%s must not send PK04", c.Transaction)
		assert.Equal(t, ProgramExtension, c.Program)
	}
}

func TestList_PassesThrough(t *testing.T) {
	rows := []mi.Record{{"KPID": "IONCON", "PK01": "A"}, {"KPID": "OTHER", "PK01": "B"}}
	gw := mitest.New().On(ProgramExtension, TxListAlpha, mitest.Items(rows...))
	svc := NewRecordService(gw, nil)

	resp, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, resp.Items, "the service does not filter")
}

func TestWarehouses_RequestsAllRows(t *testing.T) {
	gw := mitest.New()
	svc := NewRecordService(gw, nil)
	_, err := svc.Warehouses(context.Background(), "100")
	require.NoError(t, err)

	calls := gw.CallsTo(ProgramWarehouse, TxListWarehouse)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Options.MaxRecordsSet)
	assert.Equal(t, 0, calls[0].Options.MaxRecords)
}

func TestHasAuthorityBit(t *testing.T) {
	assert.True(t, HasAuthorityBit("0101", 1))
	assert.True(t, HasAuthorityBit("0101", 3))
	assert.False(t, HasAuthorityBit("0101", 4))
	assert.False(t, HasAuthorityBit("0101", -1))
	assert.False(t, HasAuthorityBit("", 0))
}
