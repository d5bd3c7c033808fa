package api

import "github.com/hexmap-sc/server/internal/service"

// DatasetRegistry holds the hexbin services for all configured datasets.
type DatasetRegistry struct {
	defaultID string
	title     string
	order     []string
	services  map[string]*service.HexbinService
}

// NewDatasetRegistry creates a registry with the given default dataset
// and display title.
func NewDatasetRegistry(defaultID, title string) *DatasetRegistry {
	return &DatasetRegistry{
		defaultID: defaultID,
		title:     title,
		services:  make(map[string]*service.HexbinService),
	}
}

// Register adds a dataset service; registration order is the listing order.
func (r *DatasetRegistry) Register(id string, svc *service.HexbinService) {
	if _, exists := r.services[id]; !exists {
		r.order = append(r.order, id)
	}
	r.services[id] = svc
}

// Get returns the service for a dataset ID; empty ID resolves the default.
func (r *DatasetRegistry) Get(id string) *service.HexbinService {
	if id == "" {
		id = r.defaultID
	}
	return r.services[id]
}

// DatasetIDs returns registered IDs in registration order.
func (r *DatasetRegistry) DatasetIDs() []string {
	return append([]string(nil), r.order...)
}

// DefaultDatasetID returns the default dataset ID.
func (r *DatasetRegistry) DefaultDatasetID() string { return r.defaultID }

// Title returns the display title.
func (r *DatasetRegistry) Title() string { return r.title }
