package inventory

import (
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
)

// LotFilters narrows project lot listings.
type LotFilters struct {
	Status *enums.LotStatus
	Block  *string
	Stage  *string
}

// LotList is one page of lots plus the cursor for the next page.
type LotList struct {
	Lots       []models.Lot
	NextCursor string
}
