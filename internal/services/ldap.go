package services

import (
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/pkg/response"
)

// DirectoryUser is the subset of a directory entry mapped onto a User.
type DirectoryUser struct {
	DN       string
	Username string
	Email    string
	Name     string
}

// LDAPService verifies credentials against a corporate directory using a
// search-then-bind flow.
type LDAPService struct {
	config *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

func (s *LDAPService) IsEnabled() bool {
	return s.config != nil && s.config.Enabled
}

func (s *LDAPService) dial() (*ldap.Conn, error) {
	if s.config.UseSSL {
		return ldap.DialURL(fmt.Sprintf("ldaps://%s:%d", s.config.Host, s.config.Port),
			ldap.DialWithTLSConfig(&tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12}))
	}
	return ldap.DialURL(fmt.Sprintf("ldap://%s:%d", s.config.Host, s.config.Port))
}

func (s *LDAPService) Authenticate(username, password string) (*DirectoryUser, error) {
	if !s.IsEnabled() {
		return nil, response.NewInvalidArgument("directory login is not enabled")
	}
	if username == "" || password == "" {
		return nil, response.NewUnauthenticated("invalid credentials")
	}

	conn, err := s.dial()
	if err != nil {
		return nil, response.NewUpstreamFailure("directory unavailable")
	}
	defer conn.Close()

	if s.config.BindDN != "" {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			return nil, response.NewUpstreamFailure("directory service bind failed")
		}
	}

	search := ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		fmt.Sprintf(s.config.UserFilter, ldap.EscapeFilter(username)),
		[]string{"dn", "cn", "displayName", "mail", "uid", "sAMAccountName"},
		nil,
	)
	result, err := conn.Search(search)
	if err != nil {
		return nil, response.NewUpstreamFailure("directory search failed")
	}
	if len(result.Entries) != 1 {
		return nil, response.NewUnauthenticated("invalid credentials")
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, response.NewUnauthenticated("invalid credentials")
	}

	user := &DirectoryUser{
		DN:       entry.DN,
		Username: entry.GetAttributeValue("uid"),
		Email:    entry.GetAttributeValue("mail"),
		Name:     entry.GetAttributeValue("displayName"),
	}
	if user.Username == "" {
		// Active Directory
		user.Username = entry.GetAttributeValue("sAMAccountName")
	}
	if user.Name == "" {
		user.Name = entry.GetAttributeValue("cn")
	}
	return user, nil
}
