// Command inspect dumps the store of a stopped node, e.g.
//
//	go run ./cmd/inspect -data ./data -prefix msg:
//
// Badger holds a directory lock, use INSPECT_PORT instead while the node runs.
package main

import (
	"flag"
	"fmt"
	"lanchat/internal"
	"log"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

func main() {
	dataDir := flag.String("data", "./data", "Node data directory")
	prefix := flag.String("prefix", "peer:", "Key prefix to scan (peer: or msg:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(filepath.Join(*dataDir, "db")).
		WithReadOnly(true).
		WithLogger(nil))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	rows, err := internal.ScanPrefix(db, *prefix, internal.DefaultMapper)
	if err != nil {
		log.Fatal(err)
	}
	if len(rows) == 0 {
		fmt.Printf("No key under %q\n", *prefix)
		return
	}
	internal.RenderRows(os.Stdout, rows)
}
