package common

import "fmt"

// StorageSize is a number of bytes formatted as a human-readable string
// with a byte-count unit, e.g. when logging leveldb cache allocation.
type StorageSize float64

func (s StorageSize) String() string {
	if s > 1099511627776 {
		return fmt.Sprintf("%.2f TiB", s/1099511627776)
	} else if s > 1073741824 {
		return fmt.Sprintf("%.2f GiB", s/1073741824)
	} else if s > 1048576 {
		return fmt.Sprintf("%.2f MiB", s/1048576)
	} else if s > 1024 {
		return fmt.Sprintf("%.2f KiB", s/1024)
	}
	return fmt.Sprintf("%.2f B", s)
}
