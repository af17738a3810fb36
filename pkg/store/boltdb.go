package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cuemby/orbit/pkg/apierr"
	"github.com/cuemby/orbit/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes              = []byte("nodes")
	bucketComponentTemplates = []byte("component_templates")
	bucketBusinessTemplates  = []byte("business_templates")
	bucketBusinesses         = []byte("businesses")
	bucketComponents         = []byte("components")
	bucketComponentMetrics   = []byte("component_metrics")
)

// BoltStore implements Store on top of go.etcd.io/bbolt, one bucket per
// entity, JSON-marshaled values keyed by entity ID. bbolt's single
// read-write transaction is the serialization boundary the Manager's
// single-writer model needs; there is no separate mutex guarding it.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) the bbolt database at
// <dataDir>/orbit.db and ensures every entity bucket exists.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "orbit.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketNodes,
			bucketComponentTemplates,
			bucketBusinessTemplates,
			bucketBusinesses,
			bucketComponents,
			bucketComponentMetrics,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// --- Nodes ---

func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put([]byte(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id string) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return apierr.NotFound("node", id)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	return s.CreateNode(node) // upsert
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.Delete([]byte(id))
	})
}

// --- Component templates ---

func (s *BoltStore) CreateComponentTemplate(tmpl *types.ComponentTemplate) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponentTemplates)
		data, err := json.Marshal(tmpl)
		if err != nil {
			return err
		}
		return b.Put([]byte(tmpl.ID), data)
	})
}

func (s *BoltStore) GetComponentTemplate(id string) (*types.ComponentTemplate, error) {
	var tmpl types.ComponentTemplate
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponentTemplates)
		data := b.Get([]byte(id))
		if data == nil {
			return apierr.NotFound("component_template", id)
		}
		return json.Unmarshal(data, &tmpl)
	})
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *BoltStore) ListComponentTemplates() ([]*types.ComponentTemplate, error) {
	var tmpls []*types.ComponentTemplate
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponentTemplates)
		return b.ForEach(func(k, v []byte) error {
			var tmpl types.ComponentTemplate
			if err := json.Unmarshal(v, &tmpl); err != nil {
				return err
			}
			tmpls = append(tmpls, &tmpl)
			return nil
		})
	})
	return tmpls, err
}

func (s *BoltStore) UpdateComponentTemplate(tmpl *types.ComponentTemplate) error {
	return s.CreateComponentTemplate(tmpl)
}

// DeleteComponentTemplate refuses to delete a component template that is
// still referenced by a business template.
func (s *BoltStore) DeleteComponentTemplate(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bt := tx.Bucket(bucketBusinessTemplates)
		referencedBy := ""
		err := bt.ForEach(func(k, v []byte) error {
			var tmpl types.BusinessTemplate
			if err := json.Unmarshal(v, &tmpl); err != nil {
				return err
			}
			for _, ctID := range tmpl.ComponentTemplateIDs {
				if ctID == id {
					referencedBy = tmpl.ID
					return nil
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if referencedBy != "" {
			return apierr.Conflict(fmt.Sprintf("component_template %q is referenced by business_template %q", id, referencedBy))
		}

		b := tx.Bucket(bucketComponentTemplates)
		return b.Delete([]byte(id))
	})
}

// --- Business templates ---

func (s *BoltStore) CreateBusinessTemplate(tmpl *types.BusinessTemplate) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinessTemplates)
		data, err := json.Marshal(tmpl)
		if err != nil {
			return err
		}
		return b.Put([]byte(tmpl.ID), data)
	})
}

func (s *BoltStore) GetBusinessTemplate(id string) (*types.BusinessTemplate, error) {
	var tmpl types.BusinessTemplate
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinessTemplates)
		data := b.Get([]byte(id))
		if data == nil {
			return apierr.NotFound("business_template", id)
		}
		return json.Unmarshal(data, &tmpl)
	})
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *BoltStore) ListBusinessTemplates() ([]*types.BusinessTemplate, error) {
	var tmpls []*types.BusinessTemplate
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinessTemplates)
		return b.ForEach(func(k, v []byte) error {
			var tmpl types.BusinessTemplate
			if err := json.Unmarshal(v, &tmpl); err != nil {
				return err
			}
			tmpls = append(tmpls, &tmpl)
			return nil
		})
	})
	return tmpls, err
}

func (s *BoltStore) UpdateBusinessTemplate(tmpl *types.BusinessTemplate) error {
	return s.CreateBusinessTemplate(tmpl)
}

func (s *BoltStore) DeleteBusinessTemplate(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinessTemplates)
		return b.Delete([]byte(id))
	})
}

// --- Businesses ---

func (s *BoltStore) CreateBusiness(biz *types.Business) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinesses)
		data, err := json.Marshal(biz)
		if err != nil {
			return err
		}
		return b.Put([]byte(biz.ID), data)
	})
}

func (s *BoltStore) GetBusiness(id string) (*types.Business, error) {
	var biz types.Business
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinesses)
		data := b.Get([]byte(id))
		if data == nil {
			return apierr.NotFound("business", id)
		}
		return json.Unmarshal(data, &biz)
	})
	if err != nil {
		return nil, err
	}
	return &biz, nil
}

func (s *BoltStore) ListBusinesses() ([]*types.Business, error) {
	var bizs []*types.Business
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinesses)
		return b.ForEach(func(k, v []byte) error {
			var biz types.Business
			if err := json.Unmarshal(v, &biz); err != nil {
				return err
			}
			bizs = append(bizs, &biz)
			return nil
		})
	})
	return bizs, err
}

// UpdateBusinessStatus is the one write path the Business Manager uses
// after creation; read paths pass this field to business.DeriveStatus,
// which returns it only when the components do not settle the status.
func (s *BoltStore) UpdateBusinessStatus(id string, status types.BusinessStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBusinesses)
		data := b.Get([]byte(id))
		if data == nil {
			return apierr.NotFound("business", id)
		}
		var biz types.Business
		if err := json.Unmarshal(data, &biz); err != nil {
			return err
		}
		biz.Status = status
		out, err := json.Marshal(&biz)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
}

// DeleteBusiness removes the business row, all of its component rows,
// and all component_metrics entries for those components, in one
// transaction.
func (s *BoltStore) DeleteBusiness(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		components := tx.Bucket(bucketComponents)
		metrics := tx.Bucket(bucketComponentMetrics)

		var toDelete [][]byte
		err := components.ForEach(func(k, v []byte) error {
			var c types.Component
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if c.BusinessID == id {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, key := range toDelete {
			if err := components.Delete(key); err != nil {
				return err
			}
			if err := deleteMetricsForComponent(metrics, string(key)); err != nil {
				return err
			}
		}

		b := tx.Bucket(bucketBusinesses)
		return b.Delete([]byte(id))
	})
}

// --- Components ---

func (s *BoltStore) CreateComponent(c *types.Component) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponents)
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return b.Put([]byte(c.ID), data)
	})
}

func (s *BoltStore) GetComponent(id string) (*types.Component, error) {
	var c types.Component
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponents)
		data := b.Get([]byte(id))
		if data == nil {
			return apierr.NotFound("component", id)
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *BoltStore) ListComponents() ([]*types.Component, error) {
	var components []*types.Component
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponents)
		return b.ForEach(func(k, v []byte) error {
			var c types.Component
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			components = append(components, &c)
			return nil
		})
	})
	return components, err
}

func (s *BoltStore) ListComponentsByBusiness(businessID string) ([]*types.Component, error) {
	components, err := s.ListComponents()
	if err != nil {
		return nil, err
	}
	var filtered []*types.Component
	for _, c := range components {
		if c.BusinessID == businessID {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (s *BoltStore) ListComponentsByNode(nodeID string) ([]*types.Component, error) {
	components, err := s.ListComponents()
	if err != nil {
		return nil, err
	}
	var filtered []*types.Component
	for _, c := range components {
		if c.NodeID == nodeID {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (s *BoltStore) UpdateComponent(c *types.Component) error {
	return s.CreateComponent(c)
}

func (s *BoltStore) DeleteComponent(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		components := tx.Bucket(bucketComponents)
		if err := components.Delete([]byte(id)); err != nil {
			return err
		}
		return deleteMetricsForComponent(tx.Bucket(bucketComponentMetrics), id)
	})
}

// --- Component metrics ---

// metricKey packs componentID and timestamp so that lexicographic byte
// order equals chronological order: a zero-padded nanosecond Unix
// timestamp sorts correctly as a string, letting a cursor walk
// (componentID, timestamp) ranges without a secondary index.
func metricKey(componentID string, unixNano int64) []byte {
	return []byte(fmt.Sprintf("%s/%020d", componentID, unixNano))
}

func (s *BoltStore) AppendComponentMetric(m *types.ComponentMetric) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComponentMetrics)
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return b.Put(metricKey(m.ComponentID, m.Timestamp.UnixNano()), data)
	})
}

// ListComponentMetrics returns up to limit samples for componentID, most
// recent first.
func (s *BoltStore) ListComponentMetrics(componentID string, limit int) ([]*types.ComponentMetric, error) {
	var metrics []*types.ComponentMetric
	prefix := []byte(componentID + "/")

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketComponentMetrics).Cursor()

		// Seek past the prefix's key range, then walk backwards so the
		// newest sample (highest timestamp) comes first.
		seekKey := append(append([]byte(nil), prefix...), 0xFF)
		k, v := c.Seek(seekKey)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}

		for ; k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Prev() {
			var m types.ComponentMetric
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			metrics = append(metrics, &m)
			if limit > 0 && len(metrics) >= limit {
				break
			}
		}
		return nil
	})
	return metrics, err
}

func deleteMetricsForComponent(b *bolt.Bucket, componentID string) error {
	prefix := []byte(componentID + "/")
	c := b.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
