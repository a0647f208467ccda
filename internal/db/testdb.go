package db

import (
	"database/sql"
	"fmt"
	"sync/atomic"
)

var testDBSeq uint64

// OpenForTesting opens a fresh in-memory database with the schema applied.
// Each call gets its own database; cache=shared only spans the connection
// pool of the returned handle.
func OpenForTesting() (*sql.DB, error) {
	n := atomic.AddUint64(&testDBSeq, 1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=on", n)
	return open(dsn)
}
