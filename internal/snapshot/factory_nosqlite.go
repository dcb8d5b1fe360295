//go:build !sqlite

package snapshot

import "fmt"

func newSQLiteSink(_ string) (Sink, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}
