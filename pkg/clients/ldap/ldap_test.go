package ldap

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/redhat-data-and-ai/favourites/pkg/clients/ldap/mocks"
)

const (
	testServer     = "ldaps://ldap.example.com:636"
	testUserDN     = "uid=%s,ou=users,dc=example,dc=com"
	testBaseUserDN = "ou=users,dc=example,dc=com"
)

type LDAPTestSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	ldapClient *mocks.MockLDAPClient
	dialed     []string
}

func TestLDAPTestSuite(t *testing.T) {
	suite.Run(t, new(LDAPTestSuite))
}

func (suite *LDAPTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ctrl = gomock.NewController(suite.T())
	suite.ldapClient = mocks.NewMockLDAPClient(suite.ctrl)
	suite.dialed = nil
}

func (suite *LDAPTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *LDAPTestSuite) authenticator(baseUserDN string) *Authenticator {
	return NewAuthenticator(testServer, testUserDN, baseUserDN, func(server string) (LDAPClient, error) {
		suite.dialed = append(suite.dialed, server)
		return suite.ldapClient, nil
	})
}

func (suite *LDAPTestSuite) TestAuthenticate_BindOnly() {
	assertions := assert.New(suite.T())

	suite.ldapClient.EXPECT().Bind("uid=alice,ou=users,dc=example,dc=com", "secret").Return(nil).Times(1)
	suite.ldapClient.EXPECT().Close().Return(nil).Times(1)

	uid, err := suite.authenticator("").Authenticate(suite.ctx, "alice", "secret")

	assertions.NoError(err)
	assertions.Equal("alice", uid)
	assertions.Equal([]string{testServer}, suite.dialed)
}

func (suite *LDAPTestSuite) TestAuthenticate_EscapesUsername() {
	assertions := assert.New(suite.T())

	suite.ldapClient.EXPECT().Bind(`uid=bob\,ou=admins,ou=users,dc=example,dc=com`, "secret").Return(nil).Times(1)
	suite.ldapClient.EXPECT().Close().Return(nil).Times(1)

	_, err := suite.authenticator("").Authenticate(suite.ctx, "bob,ou=admins", "secret")
	assertions.NoError(err)
}

func (suite *LDAPTestSuite) TestAuthenticate_InvalidCredentials() {
	assertions := assert.New(suite.T())

	suite.ldapClient.EXPECT().Bind(gomock.Any(), gomock.Any()).
		Return(ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password"))).Times(1)
	suite.ldapClient.EXPECT().Close().Return(nil).Times(1)

	_, err := suite.authenticator("").Authenticate(suite.ctx, "alice", "wrong")
	assertions.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *LDAPTestSuite) TestAuthenticate_EmptyPasswordNeverDials() {
	assertions := assert.New(suite.T())

	_, err := suite.authenticator("").Authenticate(suite.ctx, "alice", "")
	assertions.ErrorIs(err, ErrInvalidCredentials)
	assertions.Empty(suite.dialed)
}

func (suite *LDAPTestSuite) TestAuthenticate_ResolvesUID() {
	assertions := assert.New(suite.T())

	var capturedReq *ldap.SearchRequest
	suite.ldapClient.EXPECT().Bind(gomock.Any(), "secret").Return(nil).Times(1)
	suite.ldapClient.EXPECT().IsClosing().Return(false).Times(1)
	suite.ldapClient.EXPECT().Search(gomock.Any()).
		DoAndReturn(func(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
			capturedReq = req
			return &ldap.SearchResult{Entries: []*ldap.Entry{{
				DN:         "uid=Alice,ou=users,dc=example,dc=com",
				Attributes: []*ldap.EntryAttribute{{Name: "uid", Values: []string{"Alice"}}},
			}}}, nil
		}).Times(1)
	suite.ldapClient.EXPECT().Close().Return(nil).Times(1)

	uid, err := suite.authenticator(testBaseUserDN).Authenticate(suite.ctx, "alice", "secret")

	assertions.NoError(err)
	assertions.Equal("Alice", uid)
	if assertions.NotNil(capturedReq) {
		assertions.Equal(testBaseUserDN, capturedReq.BaseDN)
		assertions.Equal(ldap.ScopeWholeSubtree, capturedReq.Scope)
		assertions.Equal("(uid=alice)", capturedReq.Filter)
		assertions.Equal([]string{"uid"}, capturedReq.Attributes)
	}
}

func (suite *LDAPTestSuite) TestAuthenticate_UIDFromDN() {
	assertions := assert.New(suite.T())

	suite.ldapClient.EXPECT().Bind(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	suite.ldapClient.EXPECT().IsClosing().Return(false).Times(1)
	suite.ldapClient.EXPECT().Search(gomock.Any()).Return(&ldap.SearchResult{Entries: []*ldap.Entry{{
		DN: "uid=alice,ou=users,dc=example,dc=com",
	}}}, nil).Times(1)
	suite.ldapClient.EXPECT().Close().Return(nil).Times(1)

	uid, err := suite.authenticator(testBaseUserDN).Authenticate(suite.ctx, "alice", "secret")

	assertions.NoError(err)
	assertions.Equal("alice", uid)
}

func (suite *LDAPTestSuite) TestAuthenticate_UserNotFound() {
	assertions := assert.New(suite.T())

	suite.ldapClient.EXPECT().Bind(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	suite.ldapClient.EXPECT().IsClosing().Return(false).Times(1)
	suite.ldapClient.EXPECT().Search(gomock.Any()).Return(&ldap.SearchResult{}, nil).Times(1)
	suite.ldapClient.EXPECT().Close().Return(nil).Times(1)

	_, err := suite.authenticator(testBaseUserDN).Authenticate(suite.ctx, "alice", "secret")
	assertions.ErrorIs(err, ErrUserNotFound)
}

func (suite *LDAPTestSuite) TestAuthenticate_DialFailure() {
	assertions := assert.New(suite.T())

	a := NewAuthenticator(testServer, testUserDN, "", func(string) (LDAPClient, error) {
		return nil, errors.New("connection refused")
	})
	_, err := a.Authenticate(suite.ctx, "alice", "secret")

	assertions.Error(err)
	assertions.NotErrorIs(err, ErrInvalidCredentials)
}
