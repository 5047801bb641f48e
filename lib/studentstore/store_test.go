package studentstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	"vamkhelp-backend/lib/studentstore/db"
	"vamkhelp-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) Store {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "studentstore",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	return NewStore(res.DB)
}

func TestStore(t *testing.T) {
	store := setupStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, err := store.Get(ctx, "unknown-user")
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, store.SaveStudentData(ctx, "unknown-user", json.RawMessage(`{}`)), ErrNotFound)
	}
	{
		err := store.Put(ctx, Student{
			UserKey:       "alice",
			WinhaId:       "e1234567",
			WinhaPassword: "sealed-password",
			AutoWinha:     true,
		})
		require.NoError(t, err)
		err = store.Put(ctx, Student{
			UserKey:          "bob",
			TritoniaId:       "1234567",
			TritoniaLastName: "Virtanen",
			TritoniaPin:      "sealed-pin",
			AutoTritonia:     true,
		})
		require.NoError(t, err)

		alice, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "e1234567", alice.WinhaId)
		require.Equal(t, "sealed-password", alice.WinhaPassword)
		require.True(t, alice.AutoWinha)
		require.False(t, alice.AutoTritonia)
		require.Nil(t, alice.StudentData)
		require.Nil(t, alice.CoursesCalendar)
	}
	{
		require.NoError(t, store.SaveStudentData(ctx, "alice", json.RawMessage(`{"gpa": 4.25}`)))
		require.NoError(t, store.SaveCalendar(ctx, "alice", json.RawMessage(`[]`)))

		// re-registering keeps the crawled data
		err := store.Put(ctx, Student{
			UserKey:       "alice",
			WinhaId:       "e1234567",
			WinhaPassword: "new-sealed-password",
			AutoWinha:     false,
		})
		require.NoError(t, err)

		alice, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "new-sealed-password", alice.WinhaPassword)
		require.False(t, alice.AutoWinha)
		require.JSONEq(t, `{"gpa": 4.25}`, string(alice.StudentData))
		require.JSONEq(t, `[]`, string(alice.CoursesCalendar))
	}
	{
		winha, err := store.ListAutoWinha(ctx)
		require.NoError(t, err)
		require.Empty(t, winha)

		tritonia, err := store.ListAutoTritonia(ctx)
		require.NoError(t, err)
		require.Len(t, tritonia, 1)
		require.Equal(t, "bob", tritonia[0].UserKey)
		require.Equal(t, "Virtanen", tritonia[0].TritoniaLastName)
	}
	{
		require.NoError(t, store.Delete(ctx, "bob"))
		_, err := store.Get(ctx, "bob")
		require.ErrorIs(t, err, ErrNotFound)
	}
	{
		require.Error(t, store.Put(ctx, Student{}))
	}
}
