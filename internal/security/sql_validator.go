package security

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptyStatement   = errors.New("statement cannot be empty")
	ErrStatementTooLong = errors.New("statement exceeds maximum length")
	ErrNotReadOnly      = errors.New("only read-only SELECT, WITH ... SELECT and EXPLAIN SELECT statements are allowed")
)

const DefaultMaxStatementLength = 10000

var (
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentPattern  = regexp.MustCompile(`(?m)(--|#).*$`)

	forbiddenKeywordPattern = regexp.MustCompile(
		`\b(insert|update|delete|create|alter|drop|truncate|grant|revoke|replace|merge|call|do|use|set|commit|rollback)\b`)

	readOnlyPrefixPattern = regexp.MustCompile(
		`^(select\b|with\b[\s\S]*\bselect\b|explain\s+(analyze\s+)?select\b)`)

	leadingKeywordPattern = regexp.MustCompile(`^[a-z]+`)
)

// NormalizeStatement strips comments, trims and lower-cases a statement.
// Comment markers inside string literals are stripped too.
func NormalizeStatement(sql string) string {
	stripped := blockCommentPattern.ReplaceAllString(sql, " ")
	stripped = lineCommentPattern.ReplaceAllString(stripped, "")
	return strings.ToLower(strings.TrimSpace(stripped))
}

// LeadingKeyword returns the first word of the normalized statement.
func LeadingKeyword(sql string) string {
	normalized := strings.TrimLeft(NormalizeStatement(sql), "( \t\r\n")
	return leadingKeywordPattern.FindString(normalized)
}

// IsReadOnly decides whether a statement may run. It is a lexical check:
// anything it cannot prove read-only is rejected.
func IsReadOnly(sql string) bool {
	normalized := NormalizeStatement(sql)
	if normalized == "" {
		return false
	}

	var statement string
	for _, segment := range strings.Split(normalized, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if statement != "" {
			return false
		}
		statement = segment
	}
	if statement == "" {
		return false
	}

	if forbiddenKeywordPattern.MatchString(statement) {
		return false
	}
	return readOnlyPrefixPattern.MatchString(statement)
}

// SQLValidator turns the read-only decision into typed errors and enforces a
// length limit.
type SQLValidator struct {
	maxStatementLength int
}

// NewSQLValidator creates a new SQLValidator instance
func NewSQLValidator(maxStatementLength int) *SQLValidator {
	if maxStatementLength <= 0 {
		maxStatementLength = DefaultMaxStatementLength
	}
	return &SQLValidator{
		maxStatementLength: maxStatementLength,
	}
}

// Validate returns nil when the statement may be executed.
func (sv *SQLValidator) Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return ErrEmptyStatement
	}
	if len(sql) > sv.maxStatementLength {
		return ErrStatementTooLong
	}
	if !IsReadOnly(sql) {
		return ErrNotReadOnly
	}
	return nil
}

// IsReadOnly checks if the SQL statement is read-only
func (sv *SQLValidator) IsReadOnly(sql string) bool {
	return IsReadOnly(sql)
}

// MaxStatementLength returns the configured limit.
func (sv *SQLValidator) MaxStatementLength() int {
	return sv.maxStatementLength
}
