// Package credentials resolves named warehouse connection profiles from a
// dbt-style profiles.yml into validated, typed credential bundles.
//
// A profile names one or more "outputs" (targets); each output describes a
// warehouse connection with exactly one authentication scheme: a password or
// a PEM-encoded private key (optionally encrypted with a passphrase). The
// resolver validates the scheme exhaustively up front so the connection
// factory never has to probe; every failure mode carries a distinct Kind so
// callers can tell a malformed key from a wrong passphrase.
//
// Secret material never appears in error messages or log output.
package credentials

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/youmark/pkcs8"
)

// Warehouse types this tool can mirror from.
const (
	TypeSnowflake = "snowflake"
	TypePostgres  = "postgres"
)

// ErrorKind classifies credential resolution failures.
type ErrorKind int

const (
	// KindUnknownProfile means the requested profile name (or, when no name
	// was given, a single unambiguous profile) could not be found.
	KindUnknownProfile ErrorKind = iota + 1
	// KindAmbiguousProfile means no profile name was given and more than one
	// profile in the registry has a supported warehouse output.
	KindAmbiguousProfile
	// KindUnknownTarget means the profile exists but has no such target.
	KindUnknownTarget
	// KindUnsupportedType means the output's warehouse type is not one this
	// tool knows how to connect to.
	KindUnsupportedType
	// KindAmbiguousAuth means both a password and private key material were
	// supplied.
	KindAmbiguousAuth
	// KindMissingAuth means neither a password nor key material was supplied.
	KindMissingAuth
	// KindMissingField means a required non-secret field (account, host,
	// user) is absent.
	KindMissingField
	// KindBadKey means the private key material failed to parse.
	KindBadKey
	// KindBadPassphrase means the key parsed as encrypted PKCS#8 but could
	// not be decrypted with the supplied passphrase.
	KindBadPassphrase
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownProfile:
		return "unknown profile"
	case KindAmbiguousProfile:
		return "ambiguous profile"
	case KindUnknownTarget:
		return "unknown target"
	case KindUnsupportedType:
		return "unsupported warehouse type"
	case KindAmbiguousAuth:
		return "ambiguous auth"
	case KindMissingAuth:
		return "missing auth"
	case KindMissingField:
		return "missing field"
	case KindBadKey:
		return "bad private key"
	case KindBadPassphrase:
		return "bad passphrase"
	default:
		return fmt.Sprintf("credential error(%d)", int(k))
	}
}

// Error is a credential resolution failure. It is fatal to the whole run and
// is surfaced before any source session is opened.
type Error struct {
	Kind    ErrorKind
	Profile string
	Detail  string
}

func (e *Error) Error() string {
	if e.Profile == "" {
		return fmt.Sprintf("credentials: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("credentials: profile %q: %s: %s", e.Profile, e.Kind, e.Detail)
}

// AuthMethod identifies the authentication scheme of a resolved profile.
type AuthMethod int

const (
	AuthPassword AuthMethod = iota + 1
	AuthKeyPair
)

// AuthScheme is a closed variant: exactly one scheme is populated, enforced
// at resolution time.
type AuthScheme struct {
	Method     AuthMethod
	Password   string
	PrivateKey *rsa.PrivateKey
}

// Param is one session parameter. Parameters are carried as an ordered slice
// because the profile file order is the order they are applied in.
type Param struct {
	Key   string
	Value string
}

// Profile is an immutable, resolved connection profile. One profile is active
// per run.
type Profile struct {
	Name   string
	Target string
	Type   string // TypeSnowflake or TypePostgres

	Account string // Snowflake account identifier
	Host    string // Postgres host
	Port    int    // Postgres port (0 = driver default)
	User    string

	Auth AuthScheme

	Database  string
	Schema    string
	Warehouse string
	Role      string

	Threads       int
	KeepAlive     bool
	QueryTag      string
	SessionParams []Param
}

// rawOutput mirrors one dbt profile output as it appears in profiles.yml.
type rawOutput struct {
	Type                   string `yaml:"type"`
	Account                string `yaml:"account"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	PrivateKey             string `yaml:"private_key"`
	PrivateKeyPath         string `yaml:"private_key_path"`
	PrivateKeyPassphrase   string `yaml:"private_key_passphrase"`
	Database               string `yaml:"database"`
	DBName                 string `yaml:"dbname"` // postgres profiles use dbname
	Schema                 string `yaml:"schema"`
	Warehouse              string `yaml:"warehouse"`
	Role                   string `yaml:"role"`
	Threads                int    `yaml:"threads"`
	ClientSessionKeepAlive bool   `yaml:"client_session_keep_alive"`
	QueryTag               string `yaml:"query_tag"`
}

// resolveOutput validates one raw output and builds the typed Profile.
func resolveOutput(profileName, target string, raw rawOutput, params []Param) (Profile, error) {
	typ := strings.ToLower(strings.TrimSpace(raw.Type))
	switch typ {
	case TypeSnowflake, TypePostgres:
	default:
		return Profile{}, &Error{
			Kind:    KindUnsupportedType,
			Profile: profileName,
			Detail:  fmt.Sprintf("target %q has type %q; supported: %s, %s", target, raw.Type, TypeSnowflake, TypePostgres),
		}
	}

	if strings.TrimSpace(raw.User) == "" {
		return Profile{}, &Error{Kind: KindMissingField, Profile: profileName, Detail: "user is required"}
	}
	if typ == TypeSnowflake && strings.TrimSpace(raw.Account) == "" {
		return Profile{}, &Error{Kind: KindMissingField, Profile: profileName, Detail: "account is required for snowflake"}
	}
	if typ == TypePostgres && strings.TrimSpace(raw.Host) == "" {
		return Profile{}, &Error{Kind: KindMissingField, Profile: profileName, Detail: "host is required for postgres"}
	}

	auth, err := resolveAuth(profileName, raw)
	if err != nil {
		return Profile{}, err
	}

	database := raw.Database
	if database == "" {
		database = raw.DBName
	}

	return Profile{
		Name:          profileName,
		Target:        target,
		Type:          typ,
		Account:       raw.Account,
		Host:          raw.Host,
		Port:          raw.Port,
		User:          raw.User,
		Auth:          auth,
		Database:      database,
		Schema:        raw.Schema,
		Warehouse:     raw.Warehouse,
		Role:          raw.Role,
		Threads:       raw.Threads,
		KeepAlive:     raw.ClientSessionKeepAlive,
		QueryTag:      raw.QueryTag,
		SessionParams: params,
	}, nil
}

// resolveAuth enforces the closed AuthScheme variant: exactly one of password
// and key material must be present.
func resolveAuth(profileName string, raw rawOutput) (AuthScheme, error) {
	hasPassword := raw.Password != ""
	hasKey := raw.PrivateKey != "" || raw.PrivateKeyPath != ""

	switch {
	case hasPassword && hasKey:
		return AuthScheme{}, &Error{
			Kind:    KindAmbiguousAuth,
			Profile: profileName,
			Detail:  "both password and private key material supplied; configure exactly one",
		}
	case !hasPassword && !hasKey:
		return AuthScheme{}, &Error{
			Kind:    KindMissingAuth,
			Profile: profileName,
			Detail:  "no authentication method; expected one of: password, private_key, private_key_path",
		}
	case hasPassword:
		return AuthScheme{Method: AuthPassword, Password: raw.Password}, nil
	}

	pemBytes := []byte(raw.PrivateKey)
	if raw.PrivateKeyPath != "" {
		b, err := os.ReadFile(raw.PrivateKeyPath)
		if err != nil {
			return AuthScheme{}, &Error{
				Kind:    KindBadKey,
				Profile: profileName,
				Detail:  fmt.Sprintf("read private key file: %v", err),
			}
		}
		pemBytes = b
	}

	key, err := parsePrivateKey(profileName, pemBytes, raw.PrivateKeyPassphrase)
	if err != nil {
		return AuthScheme{}, err
	}
	return AuthScheme{Method: AuthKeyPair, PrivateKey: key}, nil
}

// parsePrivateKey parses PEM-wrapped PKCS#8 key material. When a passphrase
// is supplied the material must be an encrypted PKCS#8 blob and a decryption
// failure is reported as KindBadPassphrase, distinct from KindBadKey, since
// the two indicate different user mistakes.
func parsePrivateKey(profileName string, pemBytes []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, &Error{Kind: KindBadKey, Profile: profileName, Detail: "private key is not PEM encoded"}
	}

	if passphrase != "" {
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			// Deliberately vague: neither the passphrase nor key bytes may leak.
			return nil, &Error{
				Kind:    KindBadPassphrase,
				Profile: profileName,
				Detail:  "private key decryption failed; check private_key_passphrase",
			}
		}
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &Error{
			Kind:    KindBadKey,
			Profile: profileName,
			Detail:  "private key failed to parse as PKCS#8; if the key is encrypted, set private_key_passphrase",
		}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, &Error{Kind: KindBadKey, Profile: profileName, Detail: "private key is not an RSA key"}
	}
	return key, nil
}
