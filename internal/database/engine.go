package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"sqlpanel/internal/model"
	"sqlpanel/internal/utils"
)

// engineKindFields are the descriptor keys that may carry the engine kind,
// in lookup order. Keys are matched case-insensitively.
var engineKindFields = []string{"engineType", "engine_type", "type", "engine", "engine_name"}

var engineAliases = map[string]model.EngineKind{
	"mysql":      model.EngineMySQL,
	"mariadb":    model.EngineMySQL,
	"pg":         model.EnginePostgreSQL,
	"postgres":   model.EnginePostgreSQL,
	"postgresql": model.EnginePostgreSQL,
	"pgsql":      model.EnginePostgreSQL,
	"mssql":      model.EngineMSSQL,
	"sqlserver":  model.EngineMSSQL,
	"sqlite":     model.EngineSQLite,
	"sqlite3":    model.EngineSQLite,
	"tidb":       model.EngineTiDB,
	"oceanbase":  model.EngineOceanBase,
	"ob":         model.EngineOceanBase,
	"clickhouse": model.EngineClickHouse,
	"ch":         model.EngineClickHouse,
}

var descriptorValidator = validator.New()

// AcceptedEngineValues lists every accepted spelling, sorted.
func AcceptedEngineValues() []string {
	values := make([]string, 0, len(engineAliases))
	for alias := range engineAliases {
		values = append(values, alias)
	}
	sort.Strings(values)
	return values
}

// LookupEngineKind resolves a single alias.
func LookupEngineKind(value string) (model.EngineKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if kind, ok := engineAliases[normalized]; ok {
		return kind, nil
	}
	if normalized == "" {
		return "", utils.NewPolicyViolation(fmt.Sprintf(
			"engine kind is missing; accepted values: %s", strings.Join(AcceptedEngineValues(), ", ")))
	}
	return "", utils.NewPolicyViolation(fmt.Sprintf(
		"unsupported engine kind %q; accepted values: %s", value, strings.Join(AcceptedEngineValues(), ", ")))
}

// ResolveEngineKind finds the engine kind in a decoded descriptor.
func ResolveEngineKind(raw map[string]any) (model.EngineKind, error) {
	for _, field := range engineKindFields {
		for key, value := range raw {
			if !strings.EqualFold(key, field) {
				continue
			}
			s, ok := value.(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			return LookupEngineKind(s)
		}
	}
	return LookupEngineKind("")
}

// ParseDescriptor decodes a caller-supplied descriptor, resolves its engine
// kind and validates the remaining fields.
func ParseDescriptor(data []byte) (*model.ConnectionDescriptor, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, utils.NewPolicyViolation(fmt.Sprintf("invalid connection descriptor: %v", err))
	}

	kind, err := ResolveEngineKind(raw)
	if err != nil {
		return nil, err
	}

	var desc model.ConnectionDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, utils.NewPolicyViolation(fmt.Sprintf("invalid connection descriptor: %v", err))
	}
	desc.EngineKind = kind

	if err := descriptorValidator.Struct(&desc); err != nil {
		return nil, utils.NewValidationError("invalid connection descriptor", err.Error())
	}
	return &desc, nil
}
