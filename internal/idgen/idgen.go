// Package idgen generates the two identifier shapes this system needs:
// time-sortable ULIDs for persisted records (subscriptions, protection
// events) and ephemeral UUIDs for connection and trace correlation.
package idgen

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewRecordID returns a ULID string, lexicographically sortable by
// generation time. Used for subscription IDs and protection event IDs
// so that an index scan and a time scan agree.
func NewRecordID() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// NewCorrelationID returns a random UUID for correlating a single
// connection or request across log lines, independent of generation
// order.
func NewCorrelationID() string {
	return uuid.New().String()
}
