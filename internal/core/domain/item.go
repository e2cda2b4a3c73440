package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const MaxNameLength = 128

type Item struct {
	Name      string
	Quantity  int
	UpdatedAt time.Time
}

// Snapshot is the full set of records for one user, as returned by a refresh.
type Snapshot struct {
	UserID string
	Items  []Item
}

// NewSnapshot sorts items by name so snapshots compare deterministically.
func NewSnapshot(userID string, items []Item) Snapshot {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return Snapshot{UserID: userID, Items: sorted}
}

func (s Snapshot) Find(name string) (Item, bool) {
	for _, item := range s.Items {
		if item.Name == name {
			return item, true
		}
	}
	return Item{}, false
}

func (s Snapshot) Quantity(name string) int {
	item, _ := s.Find(name)
	return item.Quantity
}

func (s Snapshot) TotalUnits() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

func (s Snapshot) Clone() Snapshot {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	return Snapshot{UserID: s.UserID, Items: items}
}

// NormalizeName trims and NFC-normalizes an item name so that visually
// identical names share one record.
func NormalizeName(name string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("%w: item name is required", ErrInvalidArgument)
	}
	if len(n) > MaxNameLength {
		return "", fmt.Errorf("%w: item name exceeds %d bytes", ErrInvalidArgument, MaxNameLength)
	}
	return n, nil
}
