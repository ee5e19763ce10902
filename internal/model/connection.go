package model

import "fmt"

// EngineKind is the canonical name of a database engine.
type EngineKind string

const (
	EngineMySQL      EngineKind = "mysql"
	EnginePostgreSQL EngineKind = "postgresql"
	EngineMSSQL      EngineKind = "mssql"
	EngineSQLite     EngineKind = "sqlite"
	EngineTiDB       EngineKind = "tidb"
	EngineOceanBase  EngineKind = "oceanbase"
	EngineClickHouse EngineKind = "clickhouse"
)

// EngineKinds lists every canonical engine kind in a stable order.
var EngineKinds = []EngineKind{
	EngineMySQL,
	EnginePostgreSQL,
	EngineMSSQL,
	EngineSQLite,
	EngineTiDB,
	EngineOceanBase,
	EngineClickHouse,
}

// IsMySQLProtocol reports whether the engine speaks the MySQL wire protocol.
func (k EngineKind) IsMySQLProtocol() bool {
	switch k {
	case EngineMySQL, EngineTiDB, EngineOceanBase:
		return true
	default:
		return false
	}
}

// TLSConfig controls transport security for a connection.
type TLSConfig struct {
	Enabled    bool `json:"enabled"`
	SkipVerify bool `json:"skipVerify"`
}

// ConnectionDescriptor is supplied by the caller on every request; it is
// never persisted.
type ConnectionDescriptor struct {
	ID         string     `json:"id,omitempty"`
	Title      string     `json:"title,omitempty"`
	EngineKind EngineKind `json:"engineType"`
	Host       string     `json:"host" validate:"required"`
	Port       int        `json:"port" validate:"required,min=1,max=65535"`
	Username   string     `json:"username" validate:"required"`
	Secret     string     `json:"secret"`
	Database   string     `json:"database,omitempty"`
	TLS        *TLSConfig `json:"tls,omitempty"`
}

// Address returns host:port.
func (d *ConnectionDescriptor) Address() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// TLSEnabled reports whether the descriptor asks for an encrypted transport.
func (d *ConnectionDescriptor) TLSEnabled() bool {
	return d.TLS != nil && d.TLS.Enabled
}

// String omits the secret so descriptors can be logged.
func (d *ConnectionDescriptor) String() string {
	return fmt.Sprintf("%s://%s@%s", d.EngineKind, d.Username, d.Address())
}
