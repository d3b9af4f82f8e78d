package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/redhat-data-and-ai/favourites/pkg/clients/ldap LDAPClient

const defaultDialTimeout = 10 * time.Second

var (
	// ErrInvalidCredentials is returned when the directory rejects the bind
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when the bound user cannot be found under the base DN
	ErrUserNotFound = errors.New("user not found in LDAP")
)

// LDAPClient is the subset of *ldap.Conn used by the authenticator
type LDAPClient interface {
	Bind(username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	IsClosing() bool
	Close() error
}

// Dialer opens a connection to server
type Dialer func(server string) (LDAPClient, error)

// DialURL is the default Dialer
func DialURL(server string) (LDAPClient, error) {
	conn, err := ldap.DialURL(server, ldap.DialWithDialer(&net.Dialer{Timeout: defaultDialTimeout}))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Authenticator verifies user credentials with a bind as the user.
// A new connection is used per call so one user's bind never leaks to another request
type Authenticator struct {
	server     string
	userDN     string
	baseUserDN string
	dial       Dialer
}

// NewAuthenticator creates an authenticator. userDN is a format string taking
// the escaped username, e.g. uid=%s,ou=users,dc=example,dc=com
func NewAuthenticator(server, userDN, baseUserDN string, dial Dialer) *Authenticator {
	if dial == nil {
		dial = DialURL
	}
	return &Authenticator{
		server:     server,
		userDN:     userDN,
		baseUserDN: baseUserDN,
		dial:       dial,
	}
}

// Authenticate binds as username and returns the uid to use as the user key
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (string, error) {
	log := logger.Logger(ctx).WithField("user", username)
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	conn, err := a.dial(a.server)
	if err != nil {
		log.WithError(err).Error("failed to connect to LDAP server")
		return "", fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Bind(fmt.Sprintf(a.userDN, ldap.EscapeDN(username)), password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			log.Debug("LDAP bind rejected")
			return "", ErrInvalidCredentials
		}
		log.WithError(err).Error("LDAP bind failed")
		return "", fmt.Errorf("LDAP bind failed: %w", err)
	}

	if a.baseUserDN == "" {
		return username, nil
	}
	return a.lookupUID(ctx, conn, username)
}

func (a *Authenticator) lookupUID(ctx context.Context, conn LDAPClient, username string) (string, error) {
	log := logger.Logger(ctx).WithField("user", username)
	if conn.IsClosing() {
		return "", errors.New("LDAP connection is closing")
	}

	searchRequest := ldap.NewSearchRequest(
		a.baseUserDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username)),
		[]string{"uid"},
		nil,
	)
	resp, err := conn.Search(searchRequest)
	if err != nil {
		log.WithError(err).Error("failed to search LDAP for user")
		return "", err
	}
	if len(resp.Entries) == 0 {
		return "", ErrUserNotFound
	}

	entry := resp.Entries[0]
	uid := entry.GetAttributeValue("uid")
	if uid == "" {
		// Fallback: parse uid from DN if attribute is not returned for some reason.
		if dn, parseErr := ldap.ParseDN(entry.DN); parseErr == nil {
			uid = parseUIDFromDN(dn)
		}
	}
	if uid == "" {
		return "", ErrUserNotFound
	}
	return uid, nil
}

func parseUIDFromDN(dn *ldap.DN) string {
	for _, rdn := range dn.RDNs {
		for _, atv := range rdn.Attributes {
			if atv.Type == "uid" && atv.Value != "" {
				return atv.Value
			}
		}
	}
	return ""
}
