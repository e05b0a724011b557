package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seed(t *testing.T, db *badger.DB, entries map[string]string) {
	t.Helper()
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		for k, v := range entries {
			if err := txn.Set([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func Test_ScanPrefix_Only_Returns_Matching_Keys(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	seed(t, db, map[string]string{
		"peer:10.0.0.2:5000":          `{"ip":"10.0.0.2","port":5000}`,
		"peer:10.0.0.3:5000":          `{"ip":"10.0.0.3","port":5000}`,
		"msg:0000000000000000001:abc": `{"body":"hi"}`,
	})

	rows, err := ScanPrefix(db, "peer:", DefaultMapper)
	req.NoError(err)
	req.Len(rows, 2)
	req.Equal("peer:10.0.0.2:5000", rows[0].Key)
	req.Equal("PEER", rows[0].Type)
}

func Test_DefaultMapper_Truncates_Long_Values(t *testing.T) {
	req := require.New(t)
	row := DefaultMapper("msg:1:x", []byte(strings.Repeat("a", 100)))
	req.Equal("MSG", row.Type)
	req.Equal(100, row.Size)
	req.True(strings.HasSuffix(row.Detail, "..."))
}

func Test_RenderRows(t *testing.T) {
	var out bytes.Buffer
	RenderRows(&out, []InspectRow{{Key: "peer:a", Type: "PEER", Size: 2, Detail: "{}"}})
	require.Contains(t, out.String(), "peer:a")
}

func Test_StartInspector_Serves_Prefix(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	seed(t, db, map[string]string{"msg:0000000000000000001:abc": `{"body":"hello"}`})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := StartInspector(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), db, 0, nil)
	req.NoError(err)

	resp, err := http.Get(fmt.Sprintf("http://%s%s?prefix=msg:", addr, InspectEndpoint))
	req.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Contains(string(body), "hello")
}
