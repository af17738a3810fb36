// Package store defines Orbit's persistent state interface and its
// BoltDB-backed implementation.
package store

import "github.com/cuemby/orbit/pkg/types"

// Store is the interface for fleet state storage: nodes, the template
// catalogue, businesses, components and component metric history. The
// Manager is the sole writer; Agents only read through the Control Plane
// API, never directly against a Store.
type Store interface {
	// Nodes
	CreateNode(node *types.Node) error
	GetNode(id string) (*types.Node, error)
	ListNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(id string) error

	// Component templates
	CreateComponentTemplate(tmpl *types.ComponentTemplate) error
	GetComponentTemplate(id string) (*types.ComponentTemplate, error)
	ListComponentTemplates() ([]*types.ComponentTemplate, error)
	UpdateComponentTemplate(tmpl *types.ComponentTemplate) error
	DeleteComponentTemplate(id string) error

	// Business templates
	CreateBusinessTemplate(tmpl *types.BusinessTemplate) error
	GetBusinessTemplate(id string) (*types.BusinessTemplate, error)
	ListBusinessTemplates() ([]*types.BusinessTemplate, error)
	UpdateBusinessTemplate(tmpl *types.BusinessTemplate) error
	DeleteBusinessTemplate(id string) error

	// Businesses
	CreateBusiness(b *types.Business) error
	GetBusiness(id string) (*types.Business, error)
	ListBusinesses() ([]*types.Business, error)
	UpdateBusinessStatus(id string, status types.BusinessStatus) error
	DeleteBusiness(id string) error

	// Components
	CreateComponent(c *types.Component) error
	GetComponent(id string) (*types.Component, error)
	ListComponents() ([]*types.Component, error)
	ListComponentsByBusiness(businessID string) ([]*types.Component, error)
	ListComponentsByNode(nodeID string) ([]*types.Component, error)
	UpdateComponent(c *types.Component) error
	DeleteComponent(id string) error

	// Component metric history
	AppendComponentMetric(m *types.ComponentMetric) error
	ListComponentMetrics(componentID string, limit int) ([]*types.ComponentMetric, error)

	Close() error
}
