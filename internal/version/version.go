// Package version хранит сведения о сборке, заполняемые через -ldflags "-X".
package version

import (
	"fmt"
	"strings"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

// ClientID идентификатор сервиса для внешних систем (Kafka client.id и т.п.).
// Допустимы только [A-Za-z0-9._-], остальные символы заменяются на "-".
func ClientID(service string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, service+"-"+version)
}

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
