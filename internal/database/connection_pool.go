package database

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"sqlpanel/internal/model"
)

// ConnectorManager caches connectors by descriptor fingerprint so repeated
// requests against the same server share one pool.
type ConnectorManager struct {
	connectors map[string]Connector
	mutex      sync.RWMutex
	opts       Options
	factory    func(desc *model.ConnectionDescriptor, opts Options) (Connector, error)
}

// NewConnectorManager creates a new ConnectorManager instance
func NewConnectorManager(opts Options) *ConnectorManager {
	return &ConnectorManager{
		connectors: make(map[string]Connector),
		opts:       opts,
		factory:    NewConnector,
	}
}

// Fingerprint identifies the server, credentials and default database a
// descriptor points at. Connectors bake the default database into their
// pools, so descriptors that differ only in it must not share one.
func Fingerprint(desc *model.ConnectionDescriptor) string {
	tls := "plain"
	if desc.TLSEnabled() {
		tls = "tls"
		if desc.TLS.SkipVerify {
			tls = "tls-insecure"
		}
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s|%s",
		desc.EngineKind, desc.Host, desc.Port, desc.Username, desc.Secret, tls, desc.Database, desc.ID)))
	return hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached connector for desc, creating it on first use.
func (m *ConnectorManager) Get(desc *model.ConnectionDescriptor) (Connector, error) {
	if desc == nil {
		return nil, fmt.Errorf("connection descriptor is required")
	}
	key := Fingerprint(desc)

	m.mutex.RLock()
	connector, exists := m.connectors[key]
	m.mutex.RUnlock()
	if exists {
		return connector, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// Double-check after acquiring write lock
	if connector, exists := m.connectors[key]; exists {
		return connector, nil
	}

	connector, err := m.factory(desc, m.opts)
	if err != nil {
		return nil, err
	}
	m.connectors[key] = connector
	return connector, nil
}

// Remove closes and forgets the connector for desc.
func (m *ConnectorManager) Remove(desc *model.ConnectionDescriptor) error {
	key := Fingerprint(desc)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	connector, exists := m.connectors[key]
	if !exists {
		return nil
	}
	delete(m.connectors, key)
	return connector.Close()
}

// CloseAll closes every cached connector
func (m *ConnectorManager) CloseAll() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var lastErr error
	for key, connector := range m.connectors {
		if err := connector.Close(); err != nil {
			lastErr = err
		}
		delete(m.connectors, key)
	}
	return lastErr
}

// GetStats returns pool statistics keyed by fingerprint
func (m *ConnectorManager) GetStats() map[string]PoolStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := make(map[string]PoolStats, len(m.connectors))
	for key, connector := range m.connectors {
		stats[key] = connector.Stats()
	}
	return stats
}

func (m *ConnectorManager) snapshot() map[string]Connector {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make(map[string]Connector, len(m.connectors))
	for key, connector := range m.connectors {
		out[key] = connector
	}
	return out
}

// evict removes key only while it still maps to connector.
func (m *ConnectorManager) evict(key string, connector Connector) bool {
	m.mutex.Lock()
	current, exists := m.connectors[key]
	if !exists || current != connector {
		m.mutex.Unlock()
		return false
	}
	delete(m.connectors, key)
	m.mutex.Unlock()

	_ = connector.Close()
	return true
}

// Len returns the number of cached connectors.
func (m *ConnectorManager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.connectors)
}
