package utils

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DSNParams параметры подключения к PostgreSQL
type DSNParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	PoolSize int
	Timeout  time.Duration
}

func (p DSNParams) validate() error {
	if p.Host == "" {
		return ErrStorageEmptyHostName
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrStorageInvalidPortNumber
	}
	if p.User == "" {
		return ErrStorageEmptyUsername
	}
	if p.Password == "" {
		return ErrStorageEmptyPassword
	}
	if p.DBName == "" {
		return ErrStorageInvalidDatabaseName
	}
	switch p.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return ErrStorageInvalidSslMode
	}
	if p.Timeout < 0 {
		return ErrStorageInvalidTimeout
	}
	if p.PoolSize < 0 {
		return ErrStorageInvalidPoolSize
	}
	return nil
}

// GenerateConnectionString формирует строку подключения для pgxpool
func GenerateConnectionString(p DSNParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}

	var conStr strings.Builder

	conStr.WriteString("host=")
	conStr.WriteString(p.Host)
	conStr.WriteString(" port=")
	conStr.WriteString(strconv.Itoa(p.Port))
	conStr.WriteString(" user=")
	conStr.WriteString(p.User)
	conStr.WriteString(" password=")
	conStr.WriteString(p.Password)
	conStr.WriteString(" dbname=")
	conStr.WriteString(p.DBName)
	conStr.WriteString(" sslmode=")
	conStr.WriteString(p.SSLMode)

	if p.Timeout > 0 {
		conStr.WriteString(" connect_timeout=")
		conStr.WriteString(strconv.Itoa(int(p.Timeout.Seconds())))
	}
	if p.PoolSize > 0 {
		conStr.WriteString(" pool_max_conns=")
		conStr.WriteString(strconv.Itoa(p.PoolSize))
	}

	return conStr.String(), nil
}

// GenerateMigrationURL формирует URL для golang-migrate с драйвером pgx/v5
func GenerateMigrationURL(p DSNParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}

	u := url.URL{
		Scheme: "pgx5",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
		Path:   "/" + p.DBName,
	}
	q := u.Query()
	q.Set("sslmode", p.SSLMode)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
