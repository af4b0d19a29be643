package migrations

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

var errQuotedSemicolon = errors.New("semicolon inside string literal")

type sqlFile struct {
	name       string
	body       string
	statements []string
}

// sqlFiles loads dir/*.sql from fsys sorted by name, with statements split.
func sqlFiles(fsys fs.FS, dir string) ([]sqlFile, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", dir, err)
	}
	sort.Strings(names)

	files := make([]sqlFile, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		body := string(data)
		if err := validateNoSemicolonInStrings(body); err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		files = append(files, sqlFile{
			name:       path.Base(name),
			body:       body,
			statements: splitStatements(body),
		})
	}
	return files, nil
}

// splitStatements drops full-line -- comments and splits on ';'.
// Migrations must not use block comments or quoted semicolons.
func splitStatements(input string) []string {
	var b strings.Builder
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var stmts []string
	for _, part := range strings.Split(b.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects a ';' inside a single-quoted literal.
// A doubled quote ('') is an escaped quote.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("%w at offset %d", errQuotedSemicolon, i)
			}
		}
	}
	return nil
}
