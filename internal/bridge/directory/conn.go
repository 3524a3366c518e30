package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/pkg/slogx"
)

const defaultPoolSize = 5

// attribute names requested from the directory for person entries.
var personAttributes = []string{
	"sAMAccountName",
	"givenName",
	"sn",
	"displayName",
	"title",
	"department",
	"mail",
	"telephoneNumber",
}

// Config holds the connection settings for the upstream directory.
type Config struct {
	ServerURL  string // ldap://host:389 or ldaps://host:636
	BindDN     string // service account DN or UPN
	BindSecret string
	BaseDN     string // DC=corp,DC=example,DC=com
	SearchBase string // subtree holding person entries, defaults to BaseDN
	Domain     string // UPN suffix for user binds, corp.example.com
	StartTLS   bool
	TLS        *tls.Config
	Timeout    time.Duration
	PoolSize   int
}

// SessionManager maintains a pool of service-account sessions and hands
// out single-use connections for user credential checks. It implements
// Client against a live LDAP service.
type SessionManager struct {
	cfg  Config
	pool chan *ldap.Conn

	mu     sync.Mutex
	closed bool
}

// NewSessionManager validates cfg, applies defaults and verifies the
// service account can bind before returning.
func NewSessionManager(cfg Config) (*SessionManager, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("directory: server URL is required")
	}
	if cfg.BaseDN == "" {
		return nil, fmt.Errorf("directory: base DN is required")
	}
	if cfg.SearchBase == "" {
		cfg.SearchBase = cfg.BaseDN
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}

	m := &SessionManager{
		cfg:  cfg,
		pool: make(chan *ldap.Conn, cfg.PoolSize),
	}

	conn, err := m.dial()
	if err != nil {
		return nil, err
	}
	m.put(conn)

	return m, nil
}

// dial opens a fresh connection, upgrades to TLS when configured and
// binds the service account.
func (m *SessionManager) dial() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(m.cfg.ServerURL, ldap.DialWithDialer(&net.Dialer{Timeout: m.cfg.Timeout}))
	if err != nil {
		return nil, fmt.Errorf("directory: dial %s: %w", m.cfg.ServerURL, classify("dial", err))
	}
	conn.SetTimeout(m.cfg.Timeout)

	if m.cfg.StartTLS && !strings.HasPrefix(m.cfg.ServerURL, "ldaps://") {
		tlsCfg := m.cfg.TLS
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		}
		if err := conn.StartTLS(tlsCfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("directory: starttls: %w", classify("starttls", err))
		}
	}

	if m.cfg.BindDN != "" {
		if err := conn.Bind(m.cfg.BindDN, m.cfg.BindSecret); err != nil {
			conn.Close()
			return nil, fmt.Errorf("directory: service bind: %w", classify("bind", err))
		}
	}

	return conn, nil
}

func (m *SessionManager) get() (*ldap.Conn, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("directory: session manager is closed")
	}

	select {
	case conn := <-m.pool:
		if conn.IsClosing() {
			return m.dial()
		}
		return conn, nil
	default:
		return m.dial()
	}
}

func (m *SessionManager) put(conn *ldap.Conn) {
	if conn == nil || conn.IsClosing() {
		return
	}

	// Holding the lock here keeps put and Close ordered: after Close has
	// marked the manager closed, no connection re-enters the pool.
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		conn.Close()
		return
	}
	select {
	case m.pool <- conn:
	default:
		conn.Close()
	}
}

// withConn runs fn on a pooled service session, retrying once on a fresh
// connection when the failure looks transient.
func (m *SessionManager) withConn(ctx context.Context, fn func(*ldap.Conn) error) error {
	conn, err := m.get()
	if err != nil {
		return err
	}

	err = fn(conn)
	if err == nil {
		m.put(conn)
		return nil
	}

	if !retryable(err) {
		m.put(conn)
		return err
	}

	conn.Close()
	slogx.FromContext(ctx).Debug("directory operation retried on fresh session", slog.String("error", err.Error()))

	conn, dialErr := m.dial()
	if dialErr != nil {
		return dialErr
	}
	err = fn(conn)
	if err == nil {
		m.put(conn)
		return nil
	}
	conn.Close()
	return err
}

// AuthenticateUser checks the credentials with a dedicated connection,
// binding as loginID@Domain. The connection is never pooled.
func (m *SessionManager) AuthenticateUser(ctx context.Context, loginID, secret string) (bool, error) {
	if loginID == "" || secret == "" {
		// An empty secret would turn the bind into an anonymous one.
		return false, ErrInvalidCredentials
	}

	conn, err := ldap.DialURL(m.cfg.ServerURL, ldap.DialWithDialer(&net.Dialer{Timeout: m.cfg.Timeout}))
	if err != nil {
		return false, fmt.Errorf("directory: dial for user bind: %w", classify("dial", err))
	}
	defer conn.Close()
	conn.SetTimeout(m.cfg.Timeout)

	if m.cfg.StartTLS && !strings.HasPrefix(m.cfg.ServerURL, "ldaps://") {
		tlsCfg := m.cfg.TLS
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		}
		if err := conn.StartTLS(tlsCfg); err != nil {
			return false, fmt.Errorf("directory: starttls: %w", classify("starttls", err))
		}
	}

	principal := loginID
	if m.cfg.Domain != "" && !strings.Contains(loginID, "@") {
		principal = loginID + "@" + m.cfg.Domain
	}

	if err := conn.Bind(principal, secret); err != nil {
		classified := classify("bind", err)
		if errors.Is(classified, ErrInvalidCredentials) {
			return false, ErrInvalidCredentials
		}
		return false, fmt.Errorf("directory: user bind: %w", classified)
	}
	return true, nil
}

// FindByKey looks up one person entry by external key under the search base.
func (m *SessionManager) FindByKey(ctx context.Context, key string) (*domain.DirectoryIdentity, error) {
	var found *domain.DirectoryIdentity

	err := m.withConn(ctx, func(conn *ldap.Conn) error {
		req := ldap.NewSearchRequest(
			m.cfg.SearchBase,
			ldap.ScopeWholeSubtree,
			ldap.NeverDerefAliases,
			1,
			int(m.cfg.Timeout/time.Second),
			false,
			fmt.Sprintf("(&(objectClass=person)(sAMAccountName=%s))", ldap.EscapeFilter(key)),
			personAttributes,
			nil,
		)

		res, err := conn.Search(req)
		if err != nil {
			return classify("search", err)
		}
		if len(res.Entries) == 0 {
			return ErrNotFound
		}
		found = entryToIdentity(res.Entries[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SearchScope lists every person entry under scopeDN, paging through
// large result sets.
func (m *SessionManager) SearchScope(ctx context.Context, scopeDN string) ([]*domain.DirectoryIdentity, error) {
	if scopeDN == "" {
		scopeDN = m.cfg.SearchBase
	}

	var out []*domain.DirectoryIdentity

	err := m.withConn(ctx, func(conn *ldap.Conn) error {
		req := ldap.NewSearchRequest(
			scopeDN,
			ldap.ScopeWholeSubtree,
			ldap.NeverDerefAliases,
			0,
			int(m.cfg.Timeout/time.Second),
			false,
			"(objectClass=person)",
			personAttributes,
			nil,
		)

		res, err := conn.SearchWithPaging(req, 500)
		if err != nil {
			return classify("search", err)
		}

		out = out[:0]
		for _, e := range res.Entries {
			out = append(out, entryToIdentity(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MoveEntry relocates dn under newParent, keeping its RDN.
func (m *SessionManager) MoveEntry(ctx context.Context, dn, newRDN, newParent string) error {
	return m.withConn(ctx, func(conn *ldap.Conn) error {
		req := ldap.NewModifyDNRequest(dn, newRDN, true, newParent)
		if err := conn.ModifyDN(req); err != nil {
			return classify("modify_dn", err)
		}
		return nil
	})
}

// ModifyAttributes replaces the given attribute values on dn.
func (m *SessionManager) ModifyAttributes(ctx context.Context, dn string, attrs map[string][]string) error {
	if len(attrs) == 0 {
		return nil
	}
	return m.withConn(ctx, func(conn *ldap.Conn) error {
		req := ldap.NewModifyRequest(dn, nil)
		for name, values := range attrs {
			if len(values) == 0 {
				continue
			}
			req.Replace(name, values)
		}
		if err := conn.Modify(req); err != nil {
			return classify("modify", err)
		}
		return nil
	})
}

// Ping runs a base-object search of the search base on a pooled session.
func (m *SessionManager) Ping(ctx context.Context) error {
	return m.withConn(ctx, func(conn *ldap.Conn) error {
		req := ldap.NewSearchRequest(
			m.cfg.SearchBase,
			ldap.ScopeBaseObject,
			ldap.NeverDerefAliases,
			1, 0, false,
			"(objectClass=*)",
			[]string{"distinguishedName"},
			nil,
		)
		if _, err := conn.Search(req); err != nil {
			return classify("search", err)
		}
		return nil
	})
}

// Close drains and closes every pooled session. The channel itself is
// left open so an in-flight put cannot send on a closed channel; it
// hands its connection to the closed check in put instead. Close is
// idempotent.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	for {
		select {
		case conn := <-m.pool:
			conn.Close()
		default:
			return nil
		}
	}
}

func entryToIdentity(e *ldap.Entry) *domain.DirectoryIdentity {
	return &domain.DirectoryIdentity{
		Key:               e.GetAttributeValue("sAMAccountName"),
		DistinguishedName: e.DN,
		GivenName:         e.GetAttributeValue("givenName"),
		Surname:           e.GetAttributeValue("sn"),
		DisplayName:       e.GetAttributeValue("displayName"),
		Title:             e.GetAttributeValue("title"),
		Department:        e.GetAttributeValue("department"),
		Mail:              e.GetAttributeValue("mail"),
		Phone:             e.GetAttributeValue("telephoneNumber"),
	}
}
