package extstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ioncon/internal/database"
	"github.com/matthewbaird/ioncon/internal/mi"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := New(ctx, db, nil)
	require.NoError(t, err)
	return s
}

func key(kpid, pk01 string) mi.Request {
	return mi.Request{"KPID": kpid, "PK01": pk01, "PK02": "DIV1", "PK03": "10"}
}

func with(base mi.Request, kv ...string) mi.Request {
	out := base.Clone()
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func TestAlphaLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	k := key("IONCON", "DIV1_A")

	_, err := s.Execute(ctx, "CUSEXTMI", "AddAlphaKPI", with(k, "AL30", "Connection A", "AL33", ":"))
	require.NoError(t, err)

	_, err = s.Execute(ctx, "CUSEXTMI", "AddAlphaKPI", with(k, "AL30", "again"))
	assert.True(t, mi.IsCode(err, CodeDuplicate))

	resp, err := s.Execute(ctx, "CUSEXTMI", "GetAlphaKPI", k)
	require.NoError(t, err)
	assert.Equal(t, "Connection A", resp.Item["AL30"])
	assert.Equal(t, ":", resp.Item["AL33"])
	assert.Equal(t, "", resp.Item["AL31"])

	_, err = s.Execute(ctx, "CUSEXTMI", "ChgAlphaKPI", with(k, "AL30", "Renamed"))
	require.NoError(t, err)
	resp, err = s.Execute(ctx, "CUSEXTMI", "GetAlphaKPI", k)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Item["AL30"])
	assert.Equal(t, ":", resp.Item["AL33"], "fields not sent are kept")

	_, err = s.Execute(ctx, "CUSEXTMI", "DelAlphaKPI", k)
	require.NoError(t, err)

	_, err = s.Execute(ctx, "CUSEXTMI", "GetAlphaKPI", k)
	var miErr *mi.Error
	require.ErrorAs(t, err, &miErr)
	assert.Equal(t, CodeNotFound, miErr.ErrorCode)
	assert.Equal(t, "GetAlphaKPI", miErr.Transaction)
	assert.Equal(t, k, miErr.RequestData)

	_, err = s.Execute(ctx, "CUSEXTMI", "DelAlphaKPI", k)
	assert.True(t, mi.IsCode(err, CodeNotFound))
	_, err = s.Execute(ctx, "CUSEXTMI", "ChgAlphaKPI", with(k, "AL30", "x"))
	assert.True(t, mi.IsCode(err, CodeNotFound))
}

func TestNumericLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	k := key("IONCON", "DIV1_A")

	_, err := s.Execute(ctx, "CUSEXTMI", "AddNumericKPI", with(k, "N096", "1", "N296", "42"))
	require.NoError(t, err)

	resp, err := s.Execute(ctx, "CUSEXTMI", "GetNumericKPI", k)
	require.NoError(t, err)
	assert.Equal(t, "1", resp.Item["N096"])
	assert.Equal(t, "42", resp.Item["N296"])
	assert.Equal(t, "0", resp.Item["N196"])

	_, err = s.Execute(ctx, "CUSEXTMI", "DelNumericKPI", k)
	require.NoError(t, err)
}

func TestList_StartsAtKPID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, r := range []mi.Request{
		with(key("ABC", "X"), "AL30", "before"),
		with(key("IONCON", "A"), "AL30", "mine"),
		with(key("OTHER", "B"), "AL30", "after"),
	} {
		_, err := s.Execute(ctx, "CUSEXTMI", "AddAlphaKPI", r)
		require.NoError(t, err)
	}

	resp, err := s.Execute(ctx, "CUSEXTMI", "LstAlphaKPI", mi.Request{"KPID": "IONCON"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "IONCON", resp.Items[0]["KPID"])
	assert.Equal(t, "OTHER", resp.Items[1]["KPID"], "positioned list includes following tables")

	resp, err = s.Execute(ctx, "CUSEXTMI", "LstAlphaKPI", mi.Request{"KPID": "IONCON"}, mi.MaxRecords(1))
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)

	resp, err = s.Execute(ctx, "CUSEXTMI", "LstAlphaKPI", mi.Request{"KPID": "IONCON"}, mi.ReturnColumns("PK01"))
	require.NoError(t, err)
	assert.Equal(t, mi.Record{"PK01": "A"}, resp.Items[0])
}

func TestMissingKey(t *testing.T) {
	s := newStore(t)
	_, err := s.Execute(context.Background(), "CUSEXTMI", "AddAlphaKPI", mi.Request{"KPID": "IONCON", "PK01": "A", "PK02": "B"})
	var miErr *mi.Error
	require.ErrorAs(t, err, &miErr)
	assert.Equal(t, CodeMissingKey, miErr.ErrorCode)
	assert.Equal(t, "PK03", miErr.ErrorField)
}

func TestAuthority(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.GrantAuthority(ctx, "", "JDOE", "CRZ009", "0101"))

	resp, err := s.Execute(ctx, "MDBREADMI", "SelCMNPUS30", mi.Request{"DIVI": "AAA", "USID": "JDOE", "PGNM": "CRZ009"})
	require.NoError(t, err)
	assert.True(t, resp.Empty())

	resp, err = s.Execute(ctx, "MDBREADMI", "SelCMNPUS30", mi.Request{"DIVI": "", "USID": "JDOE", "PGNM": "CRZ009"})
	require.NoError(t, err)
	assert.Equal(t, "0101", resp.Item["ALO"])

	require.NoError(t, s.GrantAuthority(ctx, "", "JDOE", "CRZ009", "1111"))
	resp, err = s.Execute(ctx, "MDBREADMI", "SelCMNPUS30", mi.Request{"DIVI": "", "USID": "JDOE", "PGNM": "CRZ009"})
	require.NoError(t, err)
	assert.Equal(t, "1111", resp.Item["ALO"])
}

func TestUnknownTransaction(t *testing.T) {
	s := newStore(t)
	_, err := s.Execute(context.Background(), "CUSEXTMI", "Nope", mi.Request{})
	assert.True(t, mi.IsCode(err, CodeUnknownTx))
}
