package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// defaultNode is used when New is called before Init, e.g. from tests and buddyctl.
const defaultNode = 1

var (
	node *snowflake.Node
	mu   sync.Mutex
)

// Init sets the Snowflake node for this process. Each replica needs its own nodeID.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// New generates a time-ordered id, unique across replicas with distinct node ids.
func New() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(defaultNode)
	}
	n := node
	mu.Unlock()
	return n.Generate().Int64()
}
