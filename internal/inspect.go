package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

const (
	InspectEndpoint = "/inspect"
	defaultPrefix   = "peer:"
	maxDetailLength = 60
)

// InspectRow is one badger entry as shown by the inspector.
type InspectRow struct {
	Key    string
	Type   string
	Size   int
	Detail string
}

type RowMapper func(key string, val []byte) InspectRow

// StartInspector serves a read-only text dump of the node's badger keys,
// e.g. http://localhost:8081/inspect?prefix=msg:
// The server is shut down when ctx is canceled.
func StartInspector(ctx context.Context, log *slog.Logger, db *badger.DB, port int, mapper RowMapper) (net.Addr, error) {
	if mapper == nil {
		mapper = DefaultMapper
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("inspector listen on %d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(InspectEndpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}
		rows, err := ScanPrefix(db, prefix, mapper)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		RenderRows(w, rows)
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Inspector stopped", "error", err)
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	log.Info("Badger inspector available", "url", fmt.Sprintf("http://%s%s", listener.Addr(), InspectEndpoint))
	return listener.Addr(), nil
}

func ScanPrefix(db *badger.DB, prefix string, mapper RowMapper) ([]InspectRow, error) {
	var rows []InspectRow
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if err := item.Value(func(val []byte) error {
				rows = append(rows, mapper(string(key), val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

func RenderRows(w io.Writer, rows []InspectRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Type", "Size", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, row := range rows {
		table.Append([]string{row.Key, row.Type, strconv.Itoa(row.Size), row.Detail})
	}
	table.Render()
}

// DefaultMapper types a row by its key prefix and shows the raw value.
func DefaultMapper(key string, val []byte) InspectRow {
	kind, _, found := strings.Cut(key, ":")
	if !found {
		kind = "raw"
	}
	detail := string(val)
	if len(detail) > maxDetailLength {
		detail = detail[:maxDetailLength] + "..."
	}
	return InspectRow{Key: key, Type: strings.ToUpper(kind), Size: len(val), Detail: detail}
}
